package obj

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/utils"
)

// RelocType selects the byte pattern the linker writes at a patch site
type RelocType uint16

const (
	RelocNone RelocType = iota
	RelocAbs32
	RelocAbs16
	RelocAbs8
	RelocRel32
	RelocRel16
	RelocRel8
	RelocQuick16
	RelocPort8

	totalRelocTypes
)

func (t RelocType) String() string {
	switch t {
	case RelocNone:
		return "none"
	case RelocAbs32:
		return "abs32"
	case RelocAbs16:
		return "abs16"
	case RelocAbs8:
		return "abs8"
	case RelocRel32:
		return "rel32"
	case RelocRel16:
		return "rel16"
	case RelocRel8:
		return "rel8"
	case RelocQuick16:
		return "quick16"
	case RelocPort8:
		return "port8"
	}
	return fmt.Sprintf("reloc(%d)", uint16(t))
}

// Valid reports whether the value is a defined relocation type
func (t RelocType) Valid() bool {
	return t > RelocNone && t < totalRelocTypes
}

// Width returns the patched field size in bytes
func (t RelocType) Width() uint32 {
	switch t {
	case RelocAbs8, RelocRel8, RelocPort8:
		return 1
	case RelocAbs16, RelocRel16, RelocQuick16:
		return 2
	case RelocAbs32, RelocRel32:
		return 4
	}
	return 0
}

// PCRelative reports whether the written value depends on the patch site
// address
func (t RelocType) PCRelative() bool {
	switch t {
	case RelocRel32, RelocRel16, RelocRel8:
		return true
	}
	return false
}

// WideAddend reports whether the relocation's addend is carried in the
// patch-site initial bytes instead of the record's 16 bit addend field
func (t RelocType) WideAddend() bool {
	return t.Width() == 4
}

// Relocation is a deferred patch: once the target symbol's final address
// is known, the bytes at (section, offset) are overwritten according to
// the relocation type. The addend is added to the resolved address first.
//
// The record's addend field is 16 bits wide on the wire; relocation kinds
// with a 4 byte patch field carry their addend in the patch-site initial
// bytes instead (see RelocType.WideAddend).
type Relocation struct {
	Offset       uint32
	SectionIndex uint32
	SymbolIndex  uint32
	Type         RelocType
	Addend       int32
}

func (r *Relocation) String() string {
	return fmt.Sprintf("%v section %v + %v -> symbol %v addend %v",
		r.Type, r.SectionIndex, utils.FormatUintHex(uint64(r.Offset), 8), r.SymbolIndex, r.Addend)
}
