/*
	This file handles zipped submissions: producing an archive from a
	packaged store and extracting an uploaded one.
*/

package submission

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
	"github.com/janelia-cellmap/cellmap-eval/zarr"
)

// Zip archives a packaged store directory into "<store basename>.zip"
// next to the store, with all entries prefixed by the store directory
// name, e.g. "submission.zarr/volume/label/0.0.0".
func Zip(storePath string) (string, error) {
	storePath = filepath.Clean(storePath)
	info, err := os.Stat(storePath)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a store directory", storePath)
	}
	base := filepath.Base(storePath)
	zipPath := filepath.Join(filepath.Dir(storePath), strings.SplitN(base, ".", 2)[0]+".zip")

	f, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	zw := zip.NewWriter(f)

	err = filepath.Walk(storePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(storePath, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(filepath.Join(base, rel)))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return "", fmt.Errorf("error archiving %s: %v", storePath, err)
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	if info, err := os.Stat(zipPath); err == nil {
		cmeval.Infof("Archived %s to %s (%s)\n", storePath, zipPath, humanize.Bytes(uint64(info.Size())))
	}
	return zipPath, nil
}

// Unzip extracts a zipped submission into a directory next to the zip,
// named from the zip basename before the first dot.  Entries that would
// escape the destination directory are rejected.
func Unzip(zipPath string) (string, error) {
	name := filepath.Base(zipPath)
	extractPath := filepath.Join(filepath.Dir(zipPath), strings.SplitN(name, ".", 2)[0])

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("can't open submission zip %s: %v", zipPath, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		dest, err := safeDestination(extractPath, entry.Name)
		if err != nil {
			return "", err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", err
		}
		if err := extractFile(entry, dest); err != nil {
			return "", err
		}
	}
	return extractPath, nil
}

func extractFile(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}

// safeDestination joins an archive entry name under the extraction root,
// rejecting absolute paths and ".." traversal.
func safeDestination(root, entryName string) (string, error) {
	if filepath.IsAbs(entryName) {
		return "", fmt.Errorf("archive entry %q has an absolute path", entryName)
	}
	dest := filepath.Join(root, filepath.FromSlash(entryName))
	if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", entryName)
	}
	return dest, nil
}

// FindStore locates the store root under an extraction directory: the
// directory itself if it is a group, else a sole child directory that is
// one.  Submissions are commonly zipped with the ".zarr" directory as the
// top archive entry.
func FindStore(dir string) (string, error) {
	if _, err := zarr.OpenGroup(dir); err == nil {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if _, err := zarr.OpenGroup(child); err == nil {
			found = append(found, child)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("no zarr store found under %s", dir)
	default:
		return "", fmt.Errorf("multiple zarr stores found under %s", dir)
	}
}
