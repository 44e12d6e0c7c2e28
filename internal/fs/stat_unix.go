//go:build unix

package fs

import (
	"fmt"
	"io/fs"
	"syscall"

	"tw-go/internal/tw"
)

// ExtractStatData extracts Unix-specific stat data from a FileInfo.
func (m *OSFilesystemManager) ExtractStatData(info fs.FileInfo) (*tw.StatData, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("cannot extract stat data: expected *syscall.Stat_t, got %T", info.Sys())
	}

	return &tw.StatData{
		Mode:  uint32(stat.Mode),
		UID:   stat.Uid,
		GID:   stat.Gid,
		Inode: tw.Inode{Value: uint64(stat.Ino), Valid: true},
	}, nil
}
