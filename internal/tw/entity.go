package tw

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a filesystem entry as seen through lstat.
// The set is closed: every switch over Kind in this package is exhaustive.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDir
	KindSymlink
	KindSpecial
)

// KindOf classifies a mode returned by lstat.
// Precedence is regular file, directory, symlink, then everything else.
func KindOf(mode fs.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindSpecial
	}
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	case KindSpecial:
		return "special"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindFile && k <= KindSpecial
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*k = KindFile
	case "dir":
		*k = KindDir
	case "symlink":
		*k = KindSymlink
	case "special":
		*k = KindSpecial
	default:
		return fmt.Errorf("unknown file type %q", text)
	}
	return nil
}

// Digest is an optional lowercase hex content hash.
// The zero value means "unknown": the content was never hashed or hashing failed.
type Digest struct {
	Hex   string
	Valid bool
}

// NewDigest returns a present digest.
func NewDigest(hex string) Digest {
	return Digest{Hex: hex, Valid: true}
}

func (d Digest) String() string {
	if !d.Valid {
		return "<absent>"
	}
	return d.Hex
}

func (d Digest) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Hex)
}

func (d *Digest) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Digest{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}
	*d = NewDigest(s)
	return nil
}

// Inode is an optional inode number. It is absent on platforms without one.
type Inode struct {
	Value uint64
	Valid bool
}

func (i Inode) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.Value)
}

func (i *Inode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*i = Inode{}
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decoding inode: %w", err)
	}
	*i = Inode{Value: v, Valid: true}
	return nil
}

// Digests holds the content hashes computed for one regular file.
type Digests struct {
	Primary   Digest
	Secondary Digest
}

// StatData is the platform-specific part of an lstat result.
type StatData struct {
	Mode  uint32 // raw st_mode on unix, fs.FileMode bits elsewhere
	UID   uint32
	GID   uint32
	Inode Inode
}

// FileEntity is the record kept for one path in a baseline.
// Entities are built once per scan and never modified afterwards.
type FileEntity struct {
	Path      string `json:"path"`
	Kind      Kind   `json:"file_type"`
	Size      int64  `json:"size"`
	Mode      uint32 `json:"mode"`
	UID       uint32 `json:"uid"`
	GID       uint32 `json:"gid"`
	MTime     int64  `json:"mtime"`
	Inode     Inode  `json:"inode"`
	Primary   Digest `json:"blake3"`
	Secondary Digest `json:"sha256"`
}

// NewFileEntity builds the entity for path from its lstat result.
// Digests are only kept for regular files.
func NewFileEntity(path string, info fs.FileInfo, stat *StatData, sums Digests) *FileEntity {
	e := &FileEntity{
		Path:  path,
		Kind:  KindOf(info.Mode()),
		Size:  info.Size(),
		Mode:  uint32(info.Mode()),
		MTime: info.ModTime().Unix(),
	}
	if stat != nil {
		e.Mode = stat.Mode
		e.UID = stat.UID
		e.GID = stat.GID
		e.Inode = stat.Inode
	}
	if e.Kind == KindFile {
		e.Primary = sums.Primary
		e.Secondary = sums.Secondary
	}
	return e
}

var errEmptyPath = errors.New("empty path")

// Validate checks the invariants a loaded record must satisfy.
func (e *FileEntity) Validate() error {
	if e.Path == "" {
		return errEmptyPath
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%s: invalid file type", e.Path)
	}
	if e.Kind != KindFile && (e.Primary.Valid || e.Secondary.Valid) {
		return fmt.Errorf("%s: digest present on %s entry", e.Path, e.Kind)
	}
	return nil
}
