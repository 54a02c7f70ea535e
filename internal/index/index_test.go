package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lloydsmart/chd2iso-fuse/internal/testutil"
)

func writeCHDAt(t *testing.T, dir, name string, hunkBytes, unitBytes uint32, data []byte) {
	t.Helper()
	src := testutil.BuildSingleHunkCHD(t, hunkBytes, unitBytes, data)
	contents, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read synthetic CHD: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuildSortsAndAssignsInodes(t *testing.T) {
	dir := t.TempDir()

	dvdData := make([]byte, 2048)
	writeCHDAt(t, dir, "Zelda.chd", 2048, 2048, dvdData)
	writeCHDAt(t, dir, "alpha.chd", 2048, 2048, dvdData)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}

	idx, err := Build(dir, false, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(idx.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(idx.Entries))
	}

	if idx.Entries[0].Name != "alpha.iso" {
		t.Errorf("Entries[0].Name = %q, want alpha.iso (case-insensitive sort)", idx.Entries[0].Name)
	}
	if idx.Entries[1].Name != "Zelda.iso" {
		t.Errorf("Entries[1].Name = %q, want Zelda.iso", idx.Entries[1].Name)
	}
	if idx.Entries[0].Ino != 2 || idx.Entries[1].Ino != 3 {
		t.Errorf("inodes = %d, %d, want 2, 3", idx.Entries[0].Ino, idx.Entries[1].Ino)
	}
}

func TestBuildSkipsUnopenableCHD(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "corrupt.chd"), []byte("not a chd"), 0o644); err != nil {
		t.Fatalf("write corrupt.chd: %v", err)
	}

	var warnings []string
	idx, err := Build(dir, false, func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(idx.Entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(idx.Entries))
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(warnings))
	}
}

func TestByInoAndByName(t *testing.T) {
	dir := t.TempDir()
	writeCHDAt(t, dir, "game.chd", 2048, 2048, make([]byte, 2048))

	idx, err := Build(dir, false, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	e, ok := idx.ByName("game.iso")
	if !ok {
		t.Fatalf("ByName(game.iso) not found")
	}
	if _, ok := idx.ByIno(e.Ino); !ok {
		t.Errorf("ByIno(%d) not found", e.Ino)
	}
	if _, ok := idx.ByIno(9999); ok {
		t.Errorf("ByIno(9999) unexpectedly found")
	}
	if _, ok := idx.ByName("missing.iso"); ok {
		t.Errorf("ByName(missing.iso) unexpectedly found")
	}
}
