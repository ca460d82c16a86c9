package obj

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/utils"
)

// SectionType classifies a section's contents
type SectionType uint16

const (
	// Executable code
	SectionCode SectionType = iota
	// Initialized data
	SectionData
	// Zero-filled RAM reservation; carries a size but no file data
	SectionBSS

	totalSectionTypes
)

func (t SectionType) String() string {
	switch t {
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionBSS:
		return "bss"
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Valid reports whether the value is a defined section type
func (t SectionType) Valid() bool {
	return t < totalSectionTypes
}

// SectionFlags is the section attribute bitset
type SectionFlags uint16

const (
	SectionFlagAlloc SectionFlags = 1 << iota
	SectionFlagLoad
	SectionFlagExec
	SectionFlagWrite
	SectionFlagMerge
	SectionFlagStrings
)

func (f SectionFlags) String() string {
	names := []struct {
		flag SectionFlags
		name string
	}{
		{SectionFlagAlloc, "alloc"},
		{SectionFlagLoad, "load"},
		{SectionFlagExec, "exec"},
		{SectionFlagWrite, "write"},
		{SectionFlagMerge, "merge"},
		{SectionFlagStrings, "strings"},
	}

	var set []string
	for _, n := range names {
		if f&n.flag != 0 {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return utils.FormatSlice(set, "|")
}

// Section is a contiguous run of bytes with a common base address and type
// within an object. For bss sections Size is the reservation and Data is
// nil; for all other types Size equals len(Data).
type Section struct {
	Name        string
	VirtualAddr uint32
	Size        uint32
	Type        SectionType
	Flags       SectionFlags
	Data        []byte
}

// End returns the first address past the section
func (s *Section) End() uint32 {
	return s.VirtualAddr + s.Size
}

// Contains reports whether an absolute address falls inside the section
func (s *Section) Contains(addr uint32) bool {
	return addr >= s.VirtualAddr && (uint64(addr) < uint64(s.VirtualAddr)+uint64(s.Size))
}

// Overlaps reports whether two sections' address ranges intersect
func (s *Section) Overlaps(other *Section) bool {
	if s.Size == 0 || other.Size == 0 {
		return false
	}
	return s.VirtualAddr < other.End() && other.VirtualAddr < s.End()
}

// DefaultFlags returns the attribute set a section of the given type
// carries unless overridden
func DefaultFlags(t SectionType) SectionFlags {
	switch t {
	case SectionCode:
		return SectionFlagAlloc | SectionFlagLoad | SectionFlagExec
	case SectionData:
		return SectionFlagAlloc | SectionFlagLoad
	case SectionBSS:
		return SectionFlagAlloc | SectionFlagWrite
	}

	return 0
}

func (s *Section) String() string {
	return fmt.Sprintf("%v @ %v (%v, %v bytes, %v)", s.Name,
		utils.FormatUintHex(uint64(s.VirtualAddr), 8), s.Type, s.Size, s.Flags)
}
