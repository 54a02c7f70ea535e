package sectorview

import (
	"bytes"
	"testing"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat"
	"github.com/lloydsmart/chd2iso-fuse/internal/framecache"
	"github.com/lloydsmart/chd2iso-fuse/internal/geometry"
	"github.com/lloydsmart/chd2iso-fuse/internal/testutil"
)

func TestViewReadLogical(t *testing.T) {
	hunkBytes := uint32(2048)
	want := bytes.Repeat([]byte{0x42}, int(hunkBytes))
	path := testutil.BuildSingleHunkCHD(t, hunkBytes, 2048, want)

	r, err := chdformat.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	geom := &geometry.Geometry{Kind: geometry.DVD2048, ISOSize: uint64(hunkBytes)}
	v := New(r, geom, nil, 2)

	got, err := v.ReadAt(0, hunkBytes)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAt() = %x, want %x", got, want)
	}

	// Partial read starting mid-hunk.
	got, err = v.ReadAt(100, 50)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, want[100:150]) {
		t.Errorf("partial ReadAt() = %x, want %x", got, want[100:150])
	}
}

func TestViewReadCD(t *testing.T) {
	hunkBytes := uint32(2352)
	frame := make([]byte, hunkBytes)
	for i := range frame[16:] {
		frame[16+i] = byte(i)
	}
	path := testutil.BuildSingleHunkCHD(t, hunkBytes, 2352, frame)

	r, err := chdformat.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	geom := &geometry.Geometry{
		Kind:           geometry.CD2352,
		FirstDataFrame: 0,
		Payload:        geometry.Mode1_2048,
		ISOSize:        2048,
	}
	cache, err := framecache.New(8, 0)
	if err != nil {
		t.Fatalf("framecache.New() error = %v", err)
	}
	v := New(r, geom, cache, 3)

	got, err := v.ReadAt(0, 2048)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, frame[16:16+2048]) {
		t.Errorf("ReadAt() did not extract Mode1 payload correctly")
	}
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1 after one frame read", cache.Len())
	}

	// Reading again should hit the cache rather than error.
	got2, err := v.ReadAt(0, 2048)
	if err != nil {
		t.Fatalf("second ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, got2) {
		t.Errorf("cached read mismatch")
	}
}

func TestViewReadAtOutOfRange(t *testing.T) {
	geom := &geometry.Geometry{Kind: geometry.DVD2048, ISOSize: 100}
	v := New(nil, geom, nil, 1)

	got, err := v.ReadAt(100, 10)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadAt() past end = %v, want empty", got)
	}
}
