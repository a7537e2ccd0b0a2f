package cmeval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONFile writes an arbitrary but exportable Go object to a JSON file.
func WriteJSONFile(filename string, value interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create JSON file %s: %v", filename, err)
	}
	defer file.Close()
	m, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error in writing JSON file %s: %v", filename, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, m, "", "    "); err != nil {
		return err
	}
	_, err = buf.WriteTo(file)
	return err
}

// ReadJSONFile returns a map[string]interface{} with decoded JSON from a file.
// If a file is not organized as a JSON object, an error will be returned.
func ReadJSONFile(filename string) (map[string]interface{}, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var i interface{}
	if err := json.Unmarshal(fileBytes, &i); err != nil {
		return nil, fmt.Errorf("error reading JSON file %s: %v", filename, err)
	}
	value, ok := i.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("JSON file %s top level is not a valid JSON object", filename)
	}
	return value, nil
}

// ConvertToAbsolute returns an absolute path, converting any relative path
// with respect to the given directory.
func ConvertToAbsolute(path, dir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return path, fmt.Errorf("could not decode directory %q: %v", dir, err)
	}
	return filepath.Join(absDir, path), nil
}
