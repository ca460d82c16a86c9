package prog

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProgram() *Program {
	return &Program{
		Flags:     FlagHasEntry | FlagHasStackInit,
		Entry:     0x2000,
		StackInit: DefaultStackInit,
		Segments: []Segment{
			{
				LoadAddr: 0x2000,
				MemSize:  4,
				FileSize: 4,
				Type:     SegmentCode,
				Flags:    DefaultSegmentFlags(SegmentCode),
				Data:     []byte{0x00, 0x00, 0x00, 0x00},
			},
			{
				LoadAddr: 0x80000000,
				MemSize:  128,
				Type:     SegmentBSS,
				Flags:    DefaultSegmentFlags(SegmentBSS),
				Data:     []byte{},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleProgram()

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, original))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, original.Flags, loaded.Flags)
	assert.Equal(t, original.Entry, loaded.Entry)
	assert.Equal(t, original.StackInit, loaded.StackInit)
	assert.Equal(t, original.Segments, loaded.Segments)
	assert.Nil(t, loaded.Info)
}

func TestRoundTripWithInfo(t *testing.T) {
	original := sampleProgram()
	original.Flags |= FlagHasInfo
	original.Info = &Info{
		Name:        "demo",
		Version:     "1.2.3",
		Author:      "someone",
		Description: "a demo image",
		BuildDate:   1750000000,
		Checksum:    0xCAFEBABE,
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, original))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	require.NotNil(t, loaded.Info)
	assert.Equal(t, *original.Info, *loaded.Info)
}

func TestRejectBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleProgram()))

	data := buf.Bytes()
	data[3] ^= 0xFF

	_, err := Load(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestRejectBadVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleProgram()))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[4:], 0x02000000)

	_, err := Load(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestRejectFileSizeBeyondMemSize(t *testing.T) {
	p := sampleProgram()
	p.Segments[0].MemSize = 2
	assert.ErrorIs(t, p.Validate(), ErrBadSegment)
}

func TestRejectEntryOutsideExecutableSegments(t *testing.T) {
	p := sampleProgram()
	p.Entry = 0x80000010 // inside the bss segment
	assert.ErrorIs(t, p.Validate(), ErrBadEntry)

	p = sampleProgram()
	p.Entry = 0x7000 // inside no segment
	assert.ErrorIs(t, p.Validate(), ErrBadEntry)
}

func TestRejectOverlappingSegments(t *testing.T) {
	p := sampleProgram()
	p.Segments = append(p.Segments, Segment{
		LoadAddr: 0x2002,
		MemSize:  8,
		FileSize: 8,
		Type:     SegmentData,
		Data:     make([]byte, 8),
	})
	assert.ErrorIs(t, p.Validate(), ErrSegmentOverlap)
}

func TestRejectRegionCrossing(t *testing.T) {
	p := sampleProgram()
	p.Segments[0].LoadAddr = 0x1FFE // interrupt window, crossing into ROM
	assert.ErrorIs(t, p.Validate(), ErrRegion)
}

func TestRejectTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleProgram()))

	_, err := Load(bytes.NewReader(buf.Bytes()[:16]))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Load(bytes.NewReader(buf.Bytes()[:headerSize+4]))
	assert.ErrorIs(t, err, ErrBounds)
}
