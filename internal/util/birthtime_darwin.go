//go:build darwin
// +build darwin

package util

import (
	"io/fs"
	"syscall"
	"time"
)

// fileBirthTime extracts the file creation time from Darwin stat data
func fileBirthTime(info fs.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	ts := stat.Birthtimespec
	if ts.Sec == 0 && ts.Nsec == 0 {
		return time.Time{}, false
	}
	return time.Unix(ts.Sec, ts.Nsec), true
}
