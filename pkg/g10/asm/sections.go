package asm

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

// sectionBuilder maintains the ordered set of sections of one translation
// unit, keyed by origin address, and tracks the active section's location
// counter. An origin directive with a new base opens a section; repeating
// a base switches back to the existing section and keeps appending.
type sectionBuilder struct {
	sections []obj.Section
	byBase   map[uint32]int
	current  int
}

func newSectionBuilder() *sectionBuilder {
	return &sectionBuilder{
		byBase:  make(map[uint32]int),
		current: -1,
	}
}

// open makes the section based at addr the active one, creating it on
// first use. Section type is inferred from the address space region: bases
// in RAM reserve zero-filled memory (bss), bases below hold data until an
// instruction promotes them to code.
func (b *sectionBuilder) open(base uint32) {
	if index, exists := b.byBase[base]; exists {
		b.current = index
		return
	}

	sectionType := obj.SectionData
	if base >= obj.RAMBase {
		sectionType = obj.SectionBSS
	}

	b.sections = append(b.sections, obj.Section{
		Name:        fmt.Sprintf("org@%08X", base),
		VirtualAddr: base,
		Type:        sectionType,
		Flags:       obj.DefaultFlags(sectionType),
	})
	b.byBase[base] = len(b.sections) - 1
	b.current = len(b.sections) - 1
}

// active returns the current section, or an error before the first origin
// directive
func (b *sectionBuilder) active() (*obj.Section, error) {
	if b.current < 0 {
		return nil, ErrNoActiveSection
	}
	return &b.sections[b.current], nil
}

// activeIndex returns the current section's index
func (b *sectionBuilder) activeIndex() uint32 {
	return uint32(b.current)
}

// pc returns the absolute address of the next byte to be emitted into the
// active section
func (b *sectionBuilder) pc() (uint32, error) {
	section, err := b.active()
	if err != nil {
		return 0, err
	}
	return section.VirtualAddr + section.Size, nil
}

// grow advances the active section's location counter without emitting
// bytes (layout pass, and bss reservations)
func (b *sectionBuilder) grow(n uint32) error {
	section, err := b.active()
	if err != nil {
		return err
	}
	section.Size += n
	return nil
}

// emit appends bytes to the active section (emission pass)
func (b *sectionBuilder) emit(data []byte) error {
	section, err := b.active()
	if err != nil {
		return err
	}

	if section.Type == obj.SectionBSS {
		return utils.MakeError(ErrBSSContent, "section '%v'", section.Name)
	}

	section.Data = append(section.Data, data...)
	section.Size = uint32(len(section.Data))
	return nil
}

// markCode promotes the active section to a code section. Emitting an
// instruction into a bss section is an error.
func (b *sectionBuilder) markCode() error {
	section, err := b.active()
	if err != nil {
		return err
	}

	if section.Type == obj.SectionBSS {
		return utils.MakeError(ErrBSSContent, "cannot emit instructions into '%v'", section.Name)
	}

	if section.Type != obj.SectionCode {
		section.Type = obj.SectionCode
		section.Flags = obj.DefaultFlags(obj.SectionCode)
	}
	return nil
}

// resetForEmission clears the location counters and data buffers so the
// emission pass can re-walk the statement stream, keeping the section
// identities (and their layout-pass sizes for cross-checking)
func (b *sectionBuilder) resetForEmission() []uint32 {
	layoutSizes := make([]uint32, len(b.sections))

	for i := range b.sections {
		layoutSizes[i] = b.sections[i].Size
		b.sections[i].Size = 0
		b.sections[i].Data = nil
	}

	b.current = -1
	return layoutSizes
}
