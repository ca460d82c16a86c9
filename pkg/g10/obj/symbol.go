package obj

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/utils"
)

// Special symbol section indices
const (
	// The symbol is not defined in this object
	IndexUndef uint32 = 0xFFFFFFFF
	// The symbol value is an absolute constant, not tied to a section
	IndexAbs uint32 = 0xFFFFFFFE
	// The symbol is a common (tentative) definition
	IndexCommon uint32 = 0xFFFFFFFD
)

// SymbolType classifies what a symbol names
type SymbolType uint8

const (
	SymbolNone SymbolType = iota
	SymbolLabel
	SymbolData
	SymbolSection
	SymbolFile

	totalSymbolTypes
)

func (t SymbolType) String() string {
	switch t {
	case SymbolNone:
		return "none"
	case SymbolLabel:
		return "label"
	case SymbolData:
		return "data"
	case SymbolSection:
		return "section"
	case SymbolFile:
		return "file"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether the value is a defined symbol type
func (t SymbolType) Valid() bool {
	return t < totalSymbolTypes
}

// SymbolBinding controls cross-object visibility and resolution
type SymbolBinding uint8

const (
	BindingLocal SymbolBinding = iota
	BindingGlobal
	BindingExtern
	BindingWeak

	totalBindings
)

func (b SymbolBinding) String() string {
	switch b {
	case BindingLocal:
		return "local"
	case BindingGlobal:
		return "global"
	case BindingExtern:
		return "extern"
	case BindingWeak:
		return "weak"
	}
	return fmt.Sprintf("binding(%d)", uint8(b))
}

// Valid reports whether the value is a defined binding
func (b SymbolBinding) Valid() bool {
	return b < totalBindings
}

// SymbolFlags is the symbol attribute bitset
type SymbolFlags uint16

const (
	// The symbol is the program entry point
	SymbolFlagEntry SymbolFlags = 1 << iota
	// The symbol value is absolute, not an address
	SymbolFlagAbsolute
	// The symbol is a common definition
	SymbolFlagCommon
)

// Symbol is a named address (or special token) defined or referenced
// within an object. Value is the absolute address assigned by the
// assembler's layout pass.
type Symbol struct {
	Name         string
	Value        uint32
	SectionIndex uint32
	Type         SymbolType
	Binding      SymbolBinding
	Flags        SymbolFlags
}

// Defined reports whether the symbol has a definition in its object
func (s *Symbol) Defined() bool {
	return s.SectionIndex != IndexUndef
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%v = %v (%v %v)", s.Name,
		utils.FormatUintHex(uint64(s.Value), 8), s.Binding, s.Type)
}
