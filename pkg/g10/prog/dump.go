package prog

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Dump writes a detailed debugging representation of a program image to
// the given writer. This output is intended for inspection, not parsing.
func Dump(w io.Writer, p *Program) error {
	fmt.Fprintln(w, "=== Program Image ===")

	var flagNames []string
	for _, f := range []struct {
		flag Flags
		name string
	}{
		{FlagHasEntry, "entry"},
		{FlagHasStackInit, "stack-init"},
		{FlagHasInfo, "info"},
		{FlagDebug, "debug"},
		{FlagDoubleSpeed, "double-speed"},
	} {
		if p.Flags&f.flag != 0 {
			flagNames = append(flagNames, f.name)
		}
	}
	if len(flagNames) == 0 {
		flagNames = []string{"none"}
	}

	fmt.Fprintf(w, "Flags: %s\n", strings.Join(flagNames, "|"))
	if p.Flags&FlagHasEntry != 0 {
		fmt.Fprintf(w, "Entry: 0x%08X\n", p.Entry)
	}
	if p.Flags&FlagHasStackInit != 0 {
		fmt.Fprintf(w, "Stack: 0x%08X\n", p.StackInit)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "=== Segments (%d) ===\n", len(p.Segments))
	for i := range p.Segments {
		s := &p.Segments[i]
		fmt.Fprintf(w, "  [%2d] %-10s 0x%08X - 0x%08X  mem %6d  file %6d\n",
			i, s.Type, s.LoadAddr, s.End(), s.MemSize, s.FileSize)

		dumpSegmentData(w, s)
	}
	fmt.Fprintln(w)

	if p.Info != nil {
		fmt.Fprintln(w, "=== Program Info ===")
		fmt.Fprintf(w, "Name:        %s\n", p.Info.Name)
		fmt.Fprintf(w, "Version:     %s\n", p.Info.Version)
		fmt.Fprintf(w, "Author:      %s\n", p.Info.Author)
		fmt.Fprintf(w, "Description: %s\n", p.Info.Description)
		if p.Info.BuildDate != 0 {
			fmt.Fprintf(w, "Built:       %s\n", time.Unix(int64(p.Info.BuildDate), 0).UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(w, "Checksum:    0x%08X\n", p.Info.Checksum)
	}

	return nil
}

func dumpSegmentData(w io.Writer, s *Segment) {
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

		fmt.Fprintf(w, "       %08X  %s\n", s.LoadAddr+uint32(row), strings.TrimRight(hex.String(), " "))
	}
}
