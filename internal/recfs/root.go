//go:build linux
// +build linux

package recfs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Root is the FUSE tree root: one child directory per channel name present
// in Recordings.
type Root struct {
	fs.Inode
	Recordings []Recording

	byChannel   map[string][]int
	channelDirs map[string]bool
}

var _ fs.NodeReaddirer = (*Root)(nil)
var _ fs.NodeLookuper = (*Root)(nil)

func (r *Root) build() {
	r.byChannel = make(map[string][]int)
	for i, rec := range r.Recordings {
		r.byChannel[rec.Channel] = append(r.byChannel[rec.Channel], i)
	}
	r.channelDirs = make(map[string]bool, len(r.byChannel))
	for name := range r.byChannel {
		r.channelDirs[name] = true
	}
}

func (r *Root) ino(key string) uint64 {
	return inoFromString("recfs:" + key)
}

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names := uniqueChannelNames(r.Recordings)
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{
			Name: name,
			Ino:  r.ino("channel:" + name),
			Mode: fuse.S_IFDIR | 0755,
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if !r.channelDirs[name] {
		return nil, syscall.ENOENT
	}
	child := &ChannelDirNode{Root: r, Channel: name}
	ch := r.NewInode(ctx, child, fs.StableAttr{
		Mode: fuse.S_IFDIR,
		Ino:  r.ino("channel:" + name),
	})
	out.Mode = fuse.S_IFDIR | 0755
	out.SetEntryTimeout(time.Second)
	out.SetAttrTimeout(time.Second)
	return ch, 0
}
