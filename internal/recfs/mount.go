//go:build linux
// +build linux

package recfs

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Mount mounts the recording tree at mountPoint and blocks until the
// process receives SIGINT/SIGTERM or the server exits.
func Mount(mountPoint string, recordings []Recording) error {
	root := &Root{Recordings: recordings}
	root.build()

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:    false,
			FsName:   "tvcore-recfs",
			ReadOnly: true,
		},
	}
	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		_ = server.Unmount()
	}()

	server.Wait()
	stop()
	return nil
}

// MountBackground mounts the recording tree without blocking; call the
// returned unmount func, or cancel ctx, to tear it down. Used when
// cmd/tvcore wires recfs alongside the rest of the engine in one process.
func MountBackground(ctx context.Context, mountPoint string, recordings []Recording) (unmount func(), err error) {
	root := &Root{Recordings: recordings}
	root.build()

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:    false,
			FsName:   "tvcore-recfs",
			ReadOnly: true,
		},
	}
	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		_ = server.Unmount()
	}()

	return func() { _ = server.Unmount() }, nil
}
