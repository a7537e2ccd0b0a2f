/*
	Package zarr implements a minimal Zarr v2 directory store: group
	hierarchies plus whole-array reads and writes, enough for chunked
	volumetric containers like challenge submissions.  Chunk compression
	follows the numcodecs convention (gzip, zlib, zstd, or raw).
*/
package zarr

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Group is a node in a store hierarchy that can contain arrays and other
// groups.  It corresponds to a directory holding a ".zgroup" key.
type Group struct {
	path string
}

// CreateGroup makes a new group at the given directory path, creating
// parent directories as needed.  An existing group at that path is opened
// rather than overwritten.
func CreateGroup(path string) (*Group, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("can't create group directory %s: %v", path, err)
	}
	metaPath := filepath.Join(path, groupMetaKey)
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		if err := writeJSON(metaPath, groupMeta{ZarrFormat: FormatVersion}); err != nil {
			return nil, err
		}
	}
	return &Group{path: path}, nil
}

// OpenGroup opens an existing group, failing if no ".zgroup" key is found.
func OpenGroup(path string) (*Group, error) {
	var meta groupMeta
	if err := readJSON(filepath.Join(path, groupMetaKey), &meta); err != nil {
		return nil, fmt.Errorf("no zarr group at %s: %v", path, err)
	}
	if meta.ZarrFormat != FormatVersion {
		return nil, fmt.Errorf("group %s has unsupported zarr_format %d", path, meta.ZarrFormat)
	}
	return &Group{path: path}, nil
}

// Path returns the directory path of this group.
func (g *Group) Path() string {
	return g.path
}

// CreateGroup creates a child group.  If overwrite is set, any existing
// child of that name is removed first; otherwise an existing child is an
// error.
func (g *Group) CreateGroup(name string, overwrite bool) (*Group, error) {
	childPath := filepath.Join(g.path, name)
	if _, err := os.Stat(childPath); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("group %s already has a child named %q", g.path, name)
		}
		if err := os.RemoveAll(childPath); err != nil {
			return nil, err
		}
	}
	return CreateGroup(childPath)
}

// OpenGroup opens a child group by name.
func (g *Group) OpenGroup(name string) (*Group, error) {
	return OpenGroup(filepath.Join(g.path, name))
}

// Groups returns the sorted names of child groups.
func (g *Group) Groups() ([]string, error) {
	return g.children(groupMetaKey)
}

// Arrays returns the sorted names of child arrays.
func (g *Group) Arrays() ([]string, error) {
	return g.children(arrayMetaKey)
}

func (g *Group) children(metaKey string) ([]string, error) {
	entries, err := os.ReadDir(g.path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metaPath := filepath.Join(g.path, entry.Name(), metaKey)
		if _, err := os.Stat(metaPath); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Attributes returns the group's userland metadata, or an empty set if
// none has been written.
func (g *Group) Attributes() (Attributes, error) {
	attrs := Attributes{}
	attrsPath := filepath.Join(g.path, attrsKey)
	if _, err := os.Stat(attrsPath); os.IsNotExist(err) {
		return attrs, nil
	}
	if err := readJSON(attrsPath, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// SetAttributes replaces the group's userland metadata.
func (g *Group) SetAttributes(attrs Attributes) error {
	return writeJSON(filepath.Join(g.path, attrsKey), attrs)
}

// CreateArray creates a child array with the given metadata.  Fields left
// at their zero value are defaulted: format version and C order.  The
// chunk grid is laid down lazily as data is written.
func (g *Group) CreateArray(name string, meta *ArrayMeta) (*Array, error) {
	return CreateArray(filepath.Join(g.path, name), meta)
}

// OpenArray opens a child array by name.
func (g *Group) OpenArray(name string) (*Array, error) {
	return OpenArray(filepath.Join(g.path, name))
}
