// Package transcript reads the unread tail of a transcript file since the
// last recorded byte offset, a "read what's new" shape reduced to its
// single responsibility: producing bytes, not deciding whether to store
// them.
package transcript

import (
	"fmt"
	"io"
	"os"
)

// Delta is the unread tail of one transcript file.
type Delta struct {
	Bytes     []byte
	NewOffset int64
	Mtime     string
}

// ReadDelta reads path from currentOffset to EOF and reports the new
// offset to persist. If the file is shorter than currentOffset (the
// transcript was truncated or replaced), it is treated as starting over:
// the whole file is read and NewOffset starts from zero.
func ReadDelta(path string, currentOffset int64) (Delta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Delta{}, fmt.Errorf("open transcript %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Delta{}, fmt.Errorf("stat transcript %s: %w", path, err)
	}

	offset := currentOffset
	if info.Size() < offset {
		offset = 0
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return Delta{}, fmt.Errorf("seek transcript %s to %d: %w", path, offset, err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return Delta{}, fmt.Errorf("read transcript %s: %w", path, err)
	}

	return Delta{
		Bytes:     data,
		NewOffset: offset + int64(len(data)),
		Mtime:     info.ModTime().UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}, nil
}
