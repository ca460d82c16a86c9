// Package obj defines the data model shared by the assembler and the
// linker (sections, symbols, relocations) and the binary object file
// container that carries it between them.
package obj

import (
	"github.com/Manu343726/g10/pkg/utils"
)

// Object is one relocatable translation unit: the output of assembling one
// source file and the input unit of the linker. Once serialized, an object
// is immutable; the linker works on deep copies of section data.
type Object struct {
	// Path the object was loaded from or will be saved to. Not part of
	// the serialized container; diagnostics use it when the unit recorded
	// no file symbol.
	Path string

	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
}

// Name returns the best human readable identifier for diagnostics: the
// file symbol if the unit recorded one, the path otherwise
func (o *Object) Name() string {
	for i := range o.Symbols {
		if o.Symbols[i].Type == SymbolFile {
			return o.Symbols[i].Name
		}
	}
	if o.Path != "" {
		return o.Path
	}
	return "<unnamed object>"
}

// Section returns the section at the given index, or nil when the index is
// one of the special symbol indices or out of range
func (o *Object) Section(index uint32) *Section {
	if index >= uint32(len(o.Sections)) {
		return nil
	}
	return &o.Sections[index]
}

// SymbolByName finds a symbol by name
func (o *Object) SymbolByName(name string) *Symbol {
	for i := range o.Symbols {
		if o.Symbols[i].Name == name {
			return &o.Symbols[i]
		}
	}
	return nil
}

// SectionAt finds the section containing an absolute address
func (o *Object) SectionAt(addr uint32) *Section {
	for i := range o.Sections {
		if o.Sections[i].Contains(addr) {
			return &o.Sections[i]
		}
	}
	return nil
}

// Validate checks the semantic invariants of the data model: section
// region consistency and overlap, symbol section indices and binding
// rules, and relocation bounds. The codec calls it after loading; the
// assembler calls it before saving.
func (o *Object) Validate() error {
	for i := range o.Sections {
		if err := o.validateSection(&o.Sections[i]); err != nil {
			return err
		}
		for j := range o.Sections[:i] {
			if o.Sections[i].Overlaps(&o.Sections[j]) {
				return utils.MakeError(ErrSectionOverlap, "'%v' and '%v'",
					&o.Sections[i], &o.Sections[j])
			}
		}
	}

	for i := range o.Symbols {
		if err := o.validateSymbol(&o.Symbols[i]); err != nil {
			return err
		}
	}

	for i := range o.Relocations {
		if err := o.validateRelocation(&o.Relocations[i]); err != nil {
			return err
		}
	}

	return nil
}

func (o *Object) validateSection(s *Section) error {
	if !s.Type.Valid() {
		return utils.MakeError(ErrBadSection, "'%v' has unknown type %v", s.Name, uint16(s.Type))
	}

	if s.Type == SectionBSS {
		if s.VirtualAddr < RAMBase {
			return utils.MakeError(ErrRegion, "bss section '%v' at %v must live at or above %v",
				s.Name, utils.FormatUintHex(uint64(s.VirtualAddr), 8), utils.FormatUintHex(uint64(RAMBase), 8))
		}
	} else {
		if s.VirtualAddr >= RAMBase {
			return utils.MakeError(ErrRegion, "%v section '%v' at %v must live below %v",
				s.Type, s.Name, utils.FormatUintHex(uint64(s.VirtualAddr), 8), utils.FormatUintHex(uint64(RAMBase), 8))
		}
		if s.Size != uint32(len(s.Data)) {
			return utils.MakeError(ErrBadSection, "'%v' declares %v bytes but carries %v", s.Name, s.Size, len(s.Data))
		}
	}

	if !FitsRegion(s.VirtualAddr, s.Size) {
		return utils.MakeError(ErrRegion, "section '%v' crosses the end of the %v region",
			s.Name, RegionOf(s.VirtualAddr))
	}

	return nil
}

func (o *Object) validateSymbol(s *Symbol) error {
	if !s.Type.Valid() {
		return utils.MakeError(ErrBadSymbol, "'%v' has unknown type %v", s.Name, uint8(s.Type))
	}
	if !s.Binding.Valid() {
		return utils.MakeError(ErrBadSymbol, "'%v' has unknown binding %v", s.Name, uint8(s.Binding))
	}

	switch s.SectionIndex {
	case IndexUndef:
		if s.Binding != BindingExtern {
			return utils.MakeError(ErrBadSymbol, "'%v' is %v but has no section", s.Name, s.Binding)
		}
	case IndexAbs, IndexCommon:
		// Not tied to a section
	default:
		if s.SectionIndex >= uint32(len(o.Sections)) {
			return utils.MakeError(ErrBadSymbol, "'%v' references section %v of %v",
				s.Name, s.SectionIndex, len(o.Sections))
		}
		if s.Binding == BindingExtern {
			return utils.MakeError(ErrBadSymbol, "extern '%v' must not carry a section index", s.Name)
		}
	}

	return nil
}

func (o *Object) validateRelocation(r *Relocation) error {
	if !r.Type.Valid() {
		return utils.MakeError(ErrBadRelocation, "unknown relocation type %v", uint16(r.Type))
	}

	section := o.Section(r.SectionIndex)
	if section == nil {
		return utils.MakeError(ErrBadRelocation, "%v references section %v of %v",
			r, r.SectionIndex, len(o.Sections))
	}
	if section.Type == SectionBSS {
		return utils.MakeError(ErrBadRelocation, "%v patches bss section '%v'", r, section.Name)
	}

	if uint64(r.Offset)+uint64(r.Type.Width()) > uint64(section.Size) {
		return utils.MakeError(ErrBadRelocation, "%v reaches past the end of section '%v' (%v bytes)",
			r, section.Name, section.Size)
	}

	if r.SymbolIndex >= uint32(len(o.Symbols)) {
		return utils.MakeError(ErrBadRelocation, "%v references symbol %v of %v",
			r, r.SymbolIndex, len(o.Symbols))
	}

	return nil
}
