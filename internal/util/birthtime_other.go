//go:build !darwin
// +build !darwin

package util

import (
	"io/fs"
	"time"
)

// fileBirthTime is a stub for platforms without a creation timestamp
func fileBirthTime(info fs.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
