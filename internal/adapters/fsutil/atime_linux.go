//go:build linux

package fsutil

import "syscall"

func atimeFromStat(st *syscall.Stat_t) int64 {
	return st.Atim.Sec
}
