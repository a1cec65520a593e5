//go:build !unix

package fsutil

import (
	"os"

	"github.com/buildcache/buildcache/internal/core/ports"
)

// toFileInfo on non-unix platforms has no atime/inode syscall available;
// mtime stands in for atime and inode is left zero.
func toFileInfo(path string, info os.FileInfo) ports.FileInfo {
	return ports.FileInfo{
		Path:  path,
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
		Atime: info.ModTime().Unix(),
		IsDir: info.IsDir(),
	}
}
