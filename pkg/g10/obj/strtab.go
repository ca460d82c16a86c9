package obj

import (
	"bytes"

	"github.com/Manu343726/g10/pkg/utils"
)

// StringTable builds and reads the null-terminated string pools of the
// binary containers. Offset 0 always holds the empty string.
type StringTable struct {
	buf     []byte
	offsets map[string]uint32
}

// NewStringTable returns an empty table containing only ""
func NewStringTable() *StringTable {
	return &StringTable{
		buf:     []byte{0},
		offsets: map[string]uint32{"": 0},
	}
}

// Add interns a string and returns its offset
func (t *StringTable) Add(s string) uint32 {
	if offset, ok := t.offsets[s]; ok {
		return offset
	}

	offset := uint32(len(t.buf))
	t.buf = append(t.buf, s...)
	t.buf = append(t.buf, 0)
	t.offsets[s] = offset
	return offset
}

// Bytes returns the serialized pool
func (t *StringTable) Bytes() []byte {
	return t.buf
}

// ReadStringTable wraps a loaded pool for lookups
func ReadStringTable(data []byte) *StringTable {
	return &StringTable{buf: data}
}

// Lookup returns the string at an offset
func (t *StringTable) Lookup(offset uint32) (string, error) {
	if offset >= uint32(len(t.buf)) {
		return "", utils.MakeError(ErrBounds, "string offset %v exceeds table size %v", offset, len(t.buf))
	}

	end := bytes.IndexByte(t.buf[offset:], 0)
	if end < 0 {
		return "", utils.MakeError(ErrTruncated, "unterminated string at offset %v", offset)
	}

	return string(t.buf[offset : offset+uint32(end)]), nil
}
