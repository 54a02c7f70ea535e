package fsadapter

import (
	"errors"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

const attrTimeout = time.Second

// RawFS adapts an Adapter to go-fuse's low-level fuse.RawFileSystem
// interface. Everything outside lookup/getattr/opendir/readdir/
// releasedir/open/read/release falls through to
// fuse.NewDefaultRawFileSystem()'s ENOSYS defaults; opendir and
// releasedir are the two additions over the six operations the original
// daemon's Filesystem trait impl overrode.
type RawFS struct {
	fuse.RawFileSystem
	adapter *Adapter
	log     Logger
}

// NewRawFS wraps an Adapter for mounting via fuse.NewServer.
func NewRawFS(a *Adapter, log Logger) *RawFS {
	return &RawFS{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		adapter:       a,
		log:           log,
	}
}

func (fs *RawFS) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	attr, err := fs.adapter.Lookup(header.NodeId, name)
	if err != nil {
		return fuse.ENOENT
	}
	out.NodeId = attr.Ino
	out.Generation = 1
	out.SetEntryTimeout(attrTimeout)
	out.SetAttrTimeout(attrTimeout)
	fillAttr(&out.Attr, attr)
	return fuse.OK
}

func (fs *RawFS) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	attr, err := fs.adapter.GetAttr(input.NodeId)
	if err != nil {
		return fuse.ENOENT
	}
	out.SetTimeout(attrTimeout)
	fillAttr(&out.Attr, attr)
	return fuse.OK
}

func (fs *RawFS) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	if _, err := fs.adapter.ReadDir(input.NodeId); err != nil {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

func (fs *RawFS) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, err := fs.adapter.ReadDir(input.NodeId)
	if err != nil {
		return fuse.ENOTDIR
	}
	for i, e := range entries {
		if i < int(input.Offset) {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if e.IsDir {
			mode = uint32(fuse.S_IFDIR)
		}
		if !out.AddDirEntry(fuse.DirEntry{Mode: mode, Name: e.Name, Ino: e.Ino}) {
			break
		}
	}
	return fuse.OK
}

func (fs *RawFS) ReleaseDir(input *fuse.ReleaseIn) {}

func (fs *RawFS) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	fh, err := fs.adapter.Open(input.NodeId)
	if err != nil {
		fs.log.Warnf("open inode %d: %v", input.NodeId, err)
		return fuse.EIO
	}
	out.Fh = fh
	return fuse.OK
}

func (fs *RawFS) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	size := input.Size
	if int(size) > len(buf) {
		size = uint32(len(buf))
	}
	data, err := fs.adapter.Read(input.Fh, input.Offset, size)
	if err != nil {
		if errors.Is(err, ErrBadHandle) {
			return nil, fuse.EBADF
		}
		fs.log.Warnf("read fh %d offset %d: %v", input.Fh, input.Offset, err)
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (fs *RawFS) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	fs.adapter.Release(input.Fh)
}

func fillAttr(a *fuse.Attr, attr Attr) {
	a.Ino = attr.Ino
	a.Size = attr.Size
	a.Blocks = (attr.Size + 511) / 512
	a.Mode = attr.Mode
	a.Owner = fuse.Owner{Uid: attr.Uid, Gid: attr.Gid}
	if attr.IsDir {
		a.Mode |= fuse.S_IFDIR
		a.Nlink = 2
	} else {
		a.Mode |= fuse.S_IFREG
		a.Nlink = 1
	}
	sec := uint64(attr.ModTime.Unix())
	a.Mtime, a.Ctime, a.Atime = sec, sec, sec
}
