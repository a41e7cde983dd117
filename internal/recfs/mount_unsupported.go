//go:build !linux
// +build !linux

package recfs

import (
	"context"
	"fmt"
)

// Mount is unavailable on non-Linux builds because recfs depends on go-fuse.
func Mount(mountPoint string, recordings []Recording) error {
	return fmt.Errorf("recfs mount is only supported on linux builds")
}

// MountBackground is unavailable on non-Linux builds because recfs depends
// on go-fuse.
func MountBackground(_ context.Context, mountPoint string, recordings []Recording) (func(), error) {
	return nil, fmt.Errorf("recfs mount is only supported on linux builds")
}
