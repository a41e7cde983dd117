//go:build linux
// +build linux

package recfs

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ChannelDirNode lists one channel's recordings as files.
type ChannelDirNode struct {
	fs.Inode
	Root    *Root
	Channel string
}

var _ fs.NodeReaddirer = (*ChannelDirNode)(nil)
var _ fs.NodeLookuper = (*ChannelDirNode)(nil)

func (n *ChannelDirNode) indexes() []int {
	return n.Root.byChannel[n.Channel]
}

func (n *ChannelDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	indexes := n.indexes()
	names := uniqueFileNames(n.Root.Recordings, indexes)
	entries := make([]fuse.DirEntry, 0, len(indexes))
	for _, idx := range indexes {
		entries = append(entries, fuse.DirEntry{
			Name: names[idx],
			Ino:  n.Root.ino("file:" + n.Root.Recordings[idx].Path),
			Mode: fuse.S_IFREG | 0444,
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *ChannelDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	indexes := n.indexes()
	names := uniqueFileNames(n.Root.Recordings, indexes)
	for _, idx := range indexes {
		if names[idx] != name {
			continue
		}
		rec := n.Root.Recordings[idx]
		fileNode := &RecordingFileNode{Path: rec.Path}
		ch := n.NewInode(ctx, fileNode, fs.StableAttr{
			Mode: fuse.S_IFREG,
			Ino:  n.Root.ino("file:" + rec.Path),
		})
		out.Mode = fuse.S_IFREG | 0444
		if fi, err := os.Stat(rec.Path); err == nil {
			out.Size = uint64(fi.Size())
			out.SetTimes(nil, ptr(fi.ModTime()), nil)
		}
		out.SetEntryTimeout(time.Second)
		out.SetAttrTimeout(time.Second)
		return ch, 0
	}
	return nil, syscall.ENOENT
}

func ptr(t time.Time) *time.Time { return &t }
