// Package index builds and holds the directory listing a mount exposes:
// one entry per *.chd file under the source directory, classified by
// component B and assigned a stable inode in name-sorted order.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat"
	"github.com/lloydsmart/chd2iso-fuse/internal/geometry"
)

// rootIno is the mount's root directory inode; entries start at 2.
const rootIno = 1

// Entry is one exposed file.
type Entry struct {
	Ino     uint64
	Name    string // displayed filename: "<stem>.iso" or "<stem> (Form2).bin"
	CHDPath string
	Geom    *geometry.Geometry
}

// Index is the full directory listing, sorted and inode-assigned.
type Index struct {
	Entries []Entry
}

// Build scans dir for *.chd files, classifies each one, and assigns inodes
// in lowercase-name sort order. Files that fail to open or parse are
// skipped with a logged warning rather than aborting the whole scan;
// files a classifier hides (an unopted Form2 track) are silently omitted.
func Build(dir string, allowForm2 bool, warn func(format string, args ...any)) (*Index, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(de.Name()), ".chd") {
			continue
		}

		path := filepath.Join(dir, de.Name())
		entry, ok, err := buildEntry(path, allowForm2)
		if err != nil {
			if warn != nil {
				warn("skipping %s: %v", path, err)
			}
			continue
		}
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	for i := range entries {
		entries[i].Ino = uint64(i) + rootIno + 1
	}

	return &Index{Entries: entries}, nil
}

func buildEntry(path string, allowForm2 bool) (Entry, bool, error) {
	r, err := chdformat.Open(path)
	if err != nil {
		return Entry{}, false, err
	}
	defer r.Close()

	geom, visible, err := geometry.Classify(r, allowForm2)
	if err != nil {
		return Entry{}, false, err
	}
	if !visible {
		return Entry{}, false, nil
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := displayName(stem, geom)

	return Entry{Name: name, CHDPath: path, Geom: geom}, true, nil
}

func displayName(stem string, geom *geometry.Geometry) string {
	if geom.Kind == geometry.CD2352 && geom.Payload == geometry.Mode2Form2_2324 {
		return fmt.Sprintf("%s (Form2).bin", stem)
	}
	return stem + ".iso"
}

// ByIno finds an entry by its inode, or reports ok=false.
func (idx *Index) ByIno(ino uint64) (Entry, bool) {
	for _, e := range idx.Entries {
		if e.Ino == ino {
			return e, true
		}
	}
	return Entry{}, false
}

// ByName finds an entry by its displayed filename, or reports ok=false.
func (idx *Index) ByName(name string) (Entry, bool) {
	for _, e := range idx.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
