package util

import (
	"os"
	"time"
)

// FileCreationTime returns the best available creation timestamp for a file:
// the birth time where the platform records one, otherwise the modification
// time. Returns a zero time and false if the file cannot be stat'd.
func FileCreationTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	if born, ok := fileBirthTime(info); ok {
		return born, true
	}
	return info.ModTime(), true
}
