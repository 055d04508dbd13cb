// Package fileutil holds small path helpers shared by the cache, classifier,
// and relay client.
package fileutil

import (
	"strings"
)

// BaseName returns the final path element, splitting on both forward and
// backward slashes. Documents arrive from Windows-style hosts as often as
// POSIX ones, so filepath.Base alone is not enough.
func BaseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
