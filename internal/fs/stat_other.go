//go:build !unix

package fs

import (
	"io/fs"

	"tw-go/internal/tw"
)

// ExtractStatData falls back to portable mode bits; ownership and inode
// numbers are not available on this platform.
func (m *OSFilesystemManager) ExtractStatData(info fs.FileInfo) (*tw.StatData, error) {
	return &tw.StatData{Mode: uint32(info.Mode())}, nil
}
