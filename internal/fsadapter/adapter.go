// Package fsadapter holds the mount's pure, bridge-independent logic:
// name/inode lookups against the index, the open-file handle table, and
// reads dispatched through a sector view. rawfs.go is the only file in
// this package that knows about the FUSE wire protocol; everything here
// is plain Go and unit-testable without a mount.
package fsadapter

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat"
	"github.com/lloydsmart/chd2iso-fuse/internal/framecache"
	"github.com/lloydsmart/chd2iso-fuse/internal/index"
	"github.com/lloydsmart/chd2iso-fuse/internal/sectorview"
)

// RootIno is the mount's root directory inode, matching FUSE's
// reserved root node ID.
const RootIno = 1

// Sentinel errors for the adapter's own protocol-level failures.
var (
	ErrNotFound  = errors.New("fsadapter: no such entry")
	ErrNotDir    = errors.New("fsadapter: not a directory")
	ErrBadHandle = errors.New("fsadapter: bad file handle")
)

// Attr is a bridge-agnostic stat result.
type Attr struct {
	Ino     uint64
	Size    uint64
	IsDir   bool
	Mode    uint32 // permission bits only (e.g. 0o444, 0o755)
	ModTime time.Time
	Uid     uint32
	Gid     uint32
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Ino   uint64
	Name  string
	IsDir bool
}

type handle struct {
	fileID  uint64
	chdPath string
	entry   index.Entry
}

// Adapter holds the directory index, the shared frame cache, and the
// open-file handle table behind one mutex.
type Adapter struct {
	idx   *index.Index
	cache *framecache.Cache

	mu      sync.Mutex
	handles map[uint64]*handle
	nextFH  uint64
}

// New builds an Adapter over an already-built index and frame cache.
func New(idx *index.Index, cache *framecache.Cache) *Adapter {
	return &Adapter{
		idx:     idx,
		cache:   cache,
		handles: make(map[uint64]*handle),
		nextFH:  1,
	}
}

// Lookup resolves a name within a directory inode to its attributes.
func (a *Adapter) Lookup(parent uint64, name string) (Attr, error) {
	if parent != RootIno {
		return Attr{}, ErrNotFound
	}
	e, ok := a.idx.ByName(name)
	if !ok {
		return Attr{}, ErrNotFound
	}
	return a.attrFor(e), nil
}

// GetAttr resolves an inode to its attributes.
func (a *Adapter) GetAttr(ino uint64) (Attr, error) {
	if ino == RootIno {
		uid, gid := processOwner()
		return Attr{Ino: RootIno, IsDir: true, Mode: 0o755, ModTime: time.Now(), Uid: uid, Gid: gid}, nil
	}
	e, ok := a.idx.ByIno(ino)
	if !ok {
		return Attr{}, ErrNotFound
	}
	return a.attrFor(e), nil
}

// attrFor derives a file's attributes from its backing archive where
// possible: mtime and ownership follow the archive's own filesystem
// metadata, falling back to the invoking process's identity and the
// current time when that metadata isn't available (e.g. a non-Unix
// stat_t, or the archive having vanished between index build and read).
func (a *Adapter) attrFor(e index.Entry) Attr {
	mtime := time.Now()
	uid, gid := processOwner()
	if info, err := os.Stat(e.CHDPath); err == nil {
		mtime = info.ModTime()
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			uid, gid = st.Uid, st.Gid
		}
	}
	return Attr{Ino: e.Ino, Size: e.Geom.ISOSize, Mode: 0o444, ModTime: mtime, Uid: uid, Gid: gid}
}

// processOwner is the fallback identity for attributes whose backing file
// couldn't be stat'd: the invoking process's own effective uid/gid.
func processOwner() (uid, gid uint32) {
	return uint32(os.Geteuid()), uint32(os.Getegid())
}

// ReadDir lists the root directory's entries. Any other inode errors
// with ErrNotDir, since the mount never exposes subdirectories.
func (a *Adapter) ReadDir(ino uint64) ([]DirEntry, error) {
	if ino != RootIno {
		return nil, ErrNotDir
	}
	out := make([]DirEntry, 0, len(a.idx.Entries))
	for _, e := range a.idx.Entries {
		out = append(out, DirEntry{Ino: e.Ino, Name: e.Name})
	}
	return out, nil
}

// Open allocates a handle for ino, stat-checking the backing CHD still
// exists before handing the caller a file handle to read through.
func (a *Adapter) Open(ino uint64) (uint64, error) {
	e, ok := a.idx.ByIno(ino)
	if !ok {
		return 0, ErrNotFound
	}
	if _, err := os.Stat(e.CHDPath); err != nil {
		return 0, fmt.Errorf("fsadapter: open %s: %w", e.CHDPath, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	fh := a.nextFH
	a.nextFH++
	a.handles[fh] = &handle{fileID: e.Ino, chdPath: e.CHDPath, entry: e}
	return fh, nil
}

// Release drops a handle. Releasing an unknown handle is a no-op, as
// there is no client-visible error path for it.
func (a *Adapter) Release(fh uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handles, fh)
}

// Read satisfies a read against an open handle. The backing CHD is
// reopened fresh for every call rather than kept open on the handle:
// archive descriptors are not pooled, matching the teacher's archive
// readers and the original daemon's per-read open/close discipline. The
// whole read runs under the adapter's mutex, which is what serializes
// access to the shared frame cache.
func (a *Adapter) Read(fh uint64, offset uint64, size uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.handles[fh]
	if !ok {
		return nil, ErrBadHandle
	}
	if size == 0 {
		return nil, nil
	}

	r, err := chdformat.Open(h.chdPath)
	if err != nil {
		return nil, fmt.Errorf("fsadapter: reopen %s: %w", h.chdPath, err)
	}
	defer r.Close()

	view := sectorview.New(r, h.entry.Geom, a.cache, h.fileID)
	return view.ReadAt(offset, size)
}
