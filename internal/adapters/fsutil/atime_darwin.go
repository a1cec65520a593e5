//go:build darwin

package fsutil

import "syscall"

func atimeFromStat(st *syscall.Stat_t) int64 {
	return st.Atimespec.Sec
}
