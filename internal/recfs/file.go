//go:build linux
// +build linux

package recfs

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RecordingFileNode is a finished recording, served straight off disk: no
// materializer involved, since the bytes already exist once the
// RecordingWorker has closed the file.
type RecordingFileNode struct {
	fs.Inode
	Path string
}

var _ fs.NodeGetattrer = (*RecordingFileNode)(nil)
var _ fs.NodeOpener = (*RecordingFileNode)(nil)
var _ fs.NodeReader = (*RecordingFileNode)(nil)

func (n *RecordingFileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fi, err := os.Stat(n.Path)
	if err != nil {
		return syscall.ENOENT
	}
	out.Mode = fuse.S_IFREG | 0444
	out.Size = uint64(fi.Size())
	out.SetTimes(nil, ptr(fi.ModTime()), nil)
	return 0
}

func (n *RecordingFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *RecordingFileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f, err := os.Open(n.Path)
	if err != nil {
		return nil, syscall.EIO
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, syscall.EIO
	}
	if off >= fi.Size() {
		return fuse.ReadResultData(dest[:0]), 0
	}
	end := off + int64(len(dest))
	if end > fi.Size() {
		end = fi.Size()
	}
	n2, err := f.ReadAt(dest[:end-off], off)
	if err != nil && n2 == 0 {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n2]), 0
}
