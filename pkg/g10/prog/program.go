// Package prog defines the executable program image produced by the
// linker and its binary container codec. The image is the sole ABI to the
// simulator: a header, a segment table, and the concatenated segment data.
package prog

import (
	"errors"
	"fmt"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

var (
	ErrBadMagic       = errors.New("not a G10 program image")
	ErrBadVersion     = errors.New("unsupported program image version")
	ErrTruncated      = errors.New("truncated program image")
	ErrBounds         = errors.New("table bounds exceed file size")
	ErrBadSegment     = errors.New("invalid segment")
	ErrSegmentOverlap = errors.New("overlapping segments")
	ErrRegion         = errors.New("segment outside its permitted region")
	ErrBadEntry       = errors.New("entry point outside executable segments")
)

// Default initial stack pointer, the top dword of the address space
const DefaultStackInit uint32 = 0xFFFFFFFC

// Flags is the program header flag word
type Flags uint32

const (
	FlagHasEntry Flags = 1 << iota
	FlagHasStackInit
	FlagHasInfo
	FlagDebug
	FlagDoubleSpeed
)

// SegmentType classifies a loadable segment
type SegmentType uint16

const (
	SegmentCode SegmentType = iota
	SegmentData
	SegmentBSS
	SegmentMetadata
	SegmentInterrupt

	totalSegmentTypes
)

func (t SegmentType) String() string {
	switch t {
	case SegmentCode:
		return "code"
	case SegmentData:
		return "data"
	case SegmentBSS:
		return "bss"
	case SegmentMetadata:
		return "metadata"
	case SegmentInterrupt:
		return "interrupt"
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Valid reports whether the value is a defined segment type
func (t SegmentType) Valid() bool {
	return t < totalSegmentTypes
}

// Executable reports whether the CPU may fetch instructions from the
// segment
func (t SegmentType) Executable() bool {
	return t == SegmentCode || t == SegmentInterrupt
}

// SegmentFlags is the segment attribute bitset
type SegmentFlags uint16

const (
	SegmentFlagLoad SegmentFlags = 1 << iota
	SegmentFlagExec
	SegmentFlagWrite
	SegmentFlagZeroFill
)

// DefaultSegmentFlags returns the attribute set of a segment type
func DefaultSegmentFlags(t SegmentType) SegmentFlags {
	switch t {
	case SegmentCode, SegmentInterrupt:
		return SegmentFlagLoad | SegmentFlagExec
	case SegmentData, SegmentMetadata:
		return SegmentFlagLoad
	case SegmentBSS:
		return SegmentFlagZeroFill | SegmentFlagWrite
	}
	return 0
}

// Segment is a contiguous region of the linked image: a load address, a
// memory size, and up to FileSize bytes of initializing data (zero for
// zero-filled segments)
type Segment struct {
	LoadAddr uint32
	MemSize  uint32
	FileSize uint32
	Type     SegmentType
	Flags    SegmentFlags
	Data     []byte
}

// End returns the first address past the segment's memory range
func (s *Segment) End() uint32 {
	return s.LoadAddr + s.MemSize
}

// Contains reports whether an address falls inside the segment
func (s *Segment) Contains(addr uint32) bool {
	return addr >= s.LoadAddr && uint64(addr) < uint64(s.LoadAddr)+uint64(s.MemSize)
}

func (s *Segment) String() string {
	return fmt.Sprintf("%v @ %v (%v bytes in memory, %v in file)",
		s.Type, utils.FormatUintHex(uint64(s.LoadAddr), 8), s.MemSize, s.FileSize)
}

// Info is the optional program information section
type Info struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`

	// Unix build timestamp, stamped by the linker
	BuildDate uint32 `yaml:"-"`
	// CRC32 of the concatenated segment file data, stamped by the linker
	Checksum uint32 `yaml:"-"`
}

// Program is a linked executable image
type Program struct {
	Flags     Flags
	Entry     uint32
	StackInit uint32
	Segments  []Segment
	Info      *Info
}

// Validate checks the invariants a reader must enforce: segment types and
// sizes, pairwise non-overlap, region fit, and an entry point inside an
// executable segment
func (p *Program) Validate() error {
	for i := range p.Segments {
		s := &p.Segments[i]

		if !s.Type.Valid() {
			return utils.MakeError(ErrBadSegment, "segment %v has unknown type %v", i, uint16(s.Type))
		}
		if s.FileSize > s.MemSize {
			return utils.MakeError(ErrBadSegment, "'%v' initializes %v bytes of a %v byte segment",
				s, s.FileSize, s.MemSize)
		}
		if s.FileSize != uint32(len(s.Data)) {
			return utils.MakeError(ErrBadSegment, "'%v' declares %v file bytes but carries %v",
				s, s.FileSize, len(s.Data))
		}
		if !obj.FitsRegion(s.LoadAddr, s.MemSize) {
			return utils.MakeError(ErrRegion, "'%v' crosses the end of the %v region",
				s, obj.RegionOf(s.LoadAddr))
		}

		for j := range p.Segments[:i] {
			other := &p.Segments[j]
			if s.MemSize == 0 || other.MemSize == 0 {
				continue
			}
			if s.LoadAddr < other.End() && other.LoadAddr < s.End() {
				return utils.MakeError(ErrSegmentOverlap, "'%v' and '%v'", s, other)
			}
		}
	}

	if p.Flags&FlagHasEntry != 0 {
		if !p.entryExecutable() {
			return utils.MakeError(ErrBadEntry, "entry 0x%08X", p.Entry)
		}
	}

	return nil
}

func (p *Program) entryExecutable() bool {
	for i := range p.Segments {
		s := &p.Segments[i]
		if s.Contains(p.Entry) && s.Type.Executable() {
			return true
		}
	}
	return false
}
