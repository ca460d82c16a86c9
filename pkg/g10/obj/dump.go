package obj

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a detailed debugging representation of an object to the
// given writer. This output is intended for inspection, not for parsing.
func Dump(w io.Writer, o *Object) error {
	d := &objectDumper{w: w, obj: o}
	return d.dump()
}

type objectDumper struct {
	w   io.Writer
	obj *Object
}

func (d *objectDumper) dump() error {
	d.dumpHeader()
	d.dumpSections()
	d.dumpSymbols()
	d.dumpRelocations()
	return nil
}

func (d *objectDumper) dumpHeader() {
	fmt.Fprintln(d.w, "=== Object File ===")
	fmt.Fprintf(d.w, "Name: %s\n", d.obj.Name())
	if d.obj.Path != "" {
		fmt.Fprintf(d.w, "Path: %s\n", d.obj.Path)
	}
	fmt.Fprintln(d.w)
}

func (d *objectDumper) dumpSections() {
	fmt.Fprintf(d.w, "=== Sections (%d) ===\n", len(d.obj.Sections))

	if len(d.obj.Sections) == 0 {
		fmt.Fprintln(d.w, "(none)")
	}

	for i := range d.obj.Sections {
		s := &d.obj.Sections[i]
		fmt.Fprintf(d.w, "  [%2d] %-12s 0x%08X - 0x%08X  %-4s  %4d bytes  %s\n",
			i, s.Name, s.VirtualAddr, s.End(), s.Type, s.Size, s.Flags)

		if len(s.Data) > 0 {
			d.dumpData(s)
		}
	}
	fmt.Fprintln(d.w)
}

func (d *objectDumper) dumpData(s *Section) {
	const bytesPerRow = 16

	for row := 0; row < len(s.Data); row += bytesPerRow {
		end := row + bytesPerRow
		if end > len(s.Data) {
			end = len(s.Data)
		}

		var hex strings.Builder
		for i := row; i < end; i++ {
			fmt.Fprintf(&hex, "%02X ", s.Data[i])
		}

		fmt.Fprintf(d.w, "       %08X  %s\n", s.VirtualAddr+uint32(row), strings.TrimRight(hex.String(), " "))
	}
}

func (d *objectDumper) dumpSymbols() {
	fmt.Fprintf(d.w, "=== Symbols (%d) ===\n", len(d.obj.Symbols))

	if len(d.obj.Symbols) == 0 {
		fmt.Fprintln(d.w, "(none)")
	}

	for i := range d.obj.Symbols {
		s := &d.obj.Symbols[i]

		section := "-"
		switch s.SectionIndex {
		case IndexUndef:
			section = "UNDEF"
		case IndexAbs:
			section = "ABS"
		case IndexCommon:
			section = "COMMON"
		default:
			if sec := d.obj.Section(s.SectionIndex); sec != nil {
				section = sec.Name
			}
		}

		flags := ""
		if s.Flags&SymbolFlagEntry != 0 {
			flags += " entry"
		}
		if s.Flags&SymbolFlagAbsolute != 0 {
			flags += " absolute"
		}
		if s.Flags&SymbolFlagCommon != 0 {
			flags += " common"
		}

		fmt.Fprintf(d.w, "  [%2d] %-20s 0x%08X  %-7s %-7s %-10s%s\n",
			i, s.Name, s.Value, s.Binding, s.Type, section, flags)
	}
	fmt.Fprintln(d.w)
}

func (d *objectDumper) dumpRelocations() {
	fmt.Fprintf(d.w, "=== Relocations (%d) ===\n", len(d.obj.Relocations))

	if len(d.obj.Relocations) == 0 {
		fmt.Fprintln(d.w, "(none)")
	}

	for i := range d.obj.Relocations {
		r := &d.obj.Relocations[i]

		section := fmt.Sprint(r.SectionIndex)
		if sec := d.obj.Section(r.SectionIndex); sec != nil {
			section = sec.Name
		}

		symbol := fmt.Sprint(r.SymbolIndex)
		if r.SymbolIndex < uint32(len(d.obj.Symbols)) {
			symbol = d.obj.Symbols[r.SymbolIndex].Name
		}

		fmt.Fprintf(d.w, "  [%2d] %-8s %s+0x%04X -> %s %+d\n",
			i, r.Type, section, r.Offset, symbol, r.Addend)
	}
}
