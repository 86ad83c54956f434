package endpoint

import (
	"runtime"
	"strings"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

const maxSegmentLength = 255

// maxPathLength returns the per-OS path length ceiling named in
// spec.md §4.A.
func maxPathLength() int {
	switch runtime.GOOS {
	case "darwin":
		return 1016
	case "windows":
		return 1024
	default:
		return 4096
	}
}

// CheckPathLength rejects ".", "..", "/", any path segment longer than
// 255 bytes, and any total length above the per-OS limit.
func CheckPathLength(p string) *diskerr.Error {
	if p == "." || p == ".." || p == "/" {
		return diskerr.New(diskerr.FileAccessDenied)
	}
	if len(p) > maxPathLength() {
		return diskerr.New(diskerr.FileNameTooLong)
	}
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if len(seg) > maxSegmentLength {
			return diskerr.New(diskerr.FileNameTooLong)
		}
	}
	return nil
}

// IsDirPath reports whether p denotes a directory path (trailing
// separator) as opposed to a file path — they have different
// rename/delete semantics per spec.md §4.A.
func IsDirPath(p string) bool {
	return strings.HasSuffix(p, "/")
}
