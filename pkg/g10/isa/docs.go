package isa

import (
	"fmt"
	"strings"

	"github.com/Manu343726/g10/pkg/utils"
)

// DocString returns the full instruction set documentation, one entry per
// table form with its encoding frame
func DocString() string {
	var builder strings.Builder

	builder.WriteString("G10 instruction set\n")
	builder.WriteString("===================\n\n")
	builder.WriteString(fmt.Sprintf("%v instruction forms. Opcodes are 16 bit words, stored little-endian,\n", len(Forms)))
	builder.WriteString("optionally followed by an immediate or address field (also little-endian).\n")
	builder.WriteString(fmt.Sprintf("Condition codes: %v.\n\n", utils.FormatSlice(utils.Iota(int(totalConditions), func(i int) ConditionCode { return ConditionCode(i) }), ", ")))

	for _, form := range Forms {
		builder.WriteString(form.Documentation(2))
		builder.WriteString("\n")
	}

	return builder.String()
}
