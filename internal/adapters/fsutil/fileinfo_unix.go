//go:build unix

package fsutil

import (
	"os"
	"syscall"

	"github.com/buildcache/buildcache/internal/core/ports"
)

// toFileInfo extracts inode and atime from the platform-specific stat_t,
// falling back to mtime for atime when the syscall type isn't available.
func toFileInfo(path string, info os.FileInfo) ports.FileInfo {
	fi := ports.FileInfo{
		Path:  path,
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
		Atime: info.ModTime().Unix(),
		IsDir: info.IsDir(),
	}

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		fi.Inode = st.Ino
		fi.Atime = atimeFromStat(st)
	}
	return fi
}
