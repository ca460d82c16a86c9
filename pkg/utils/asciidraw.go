package utils

import (
	"fmt"
	"strings"
)

// A named range of units within an ascii frame drawing
type AsciiFrameField struct {
	// Name of the field
	Name string

	// Units within the frame the field begins from
	Begin int

	// Field width
	Width int
}

// The first unit within the frame used by the next field
func (f *AsciiFrameField) PastTopUnit() int {
	return f.Begin + f.Width
}

// Draws a frame of fixed total width split into named fields, with a unit
// ruler on top. Used to document binary encodings:
//
//	 15       8 7    4 3    0
//	┌──────────┬──────┬──────┐
//	│  opcode  │  n   │  b   │
//	└──────────┴──────┴──────┘
//
// Units increase right to left (bit numbering). Gaps between fields are
// rendered as unnamed cells.
func AsciiFrame(fields []AsciiFrameField, frameWidth int, unit string, leftpad int) string {
	const cellScale = 2 // characters per unit

	pad := strings.Repeat(" ", leftpad)

	// Normalize: fill gaps with anonymous fields, ordered by Begin ascending
	cells := normalizeFrameFields(fields, frameWidth)

	var ruler, top, mid, bottom strings.Builder

	ruler.WriteString(pad + " ")
	top.WriteString(pad + "┌")
	mid.WriteString(pad + "│")
	bottom.WriteString(pad + "└")

	// Drawn left to right, units decrease: iterate cells from highest Begin
	for i := len(cells) - 1; i >= 0; i-- {
		cell := cells[i]
		width := cell.Width*cellScale + (cell.Width - 1)

		hi := fmt.Sprint(cell.PastTopUnit() - 1)
		lo := fmt.Sprint(cell.Begin)
		rulerText := hi
		if cell.Width > 1 {
			gap := width - len(hi) - len(lo)
			if gap < 1 {
				gap = 1
			}
			rulerText = hi + strings.Repeat(" ", gap) + lo
		}
		ruler.WriteString(padCell(rulerText, width))
		ruler.WriteString(" ")

		top.WriteString(strings.Repeat("─", width))
		mid.WriteString(centerCell(cell.Name, width))
		bottom.WriteString(strings.Repeat("─", width))

		if i > 0 {
			top.WriteString("┬")
			mid.WriteString("│")
			bottom.WriteString("┴")
		}
	}

	top.WriteString("┐")
	mid.WriteString("│")
	bottom.WriteString("┘")

	return ruler.String() + "\n" + top.String() + "\n" + mid.String() + "\n" +
		bottom.String() + "\n" + pad + fmt.Sprintf("(%v %v)", frameWidth, unit) + "\n"
}

func normalizeFrameFields(fields []AsciiFrameField, frameWidth int) []AsciiFrameField {
	used := make([]bool, frameWidth)
	cells := make([]AsciiFrameField, 0, len(fields)+2)

	for _, f := range fields {
		if f.Width <= 0 {
			continue
		}
		for u := f.Begin; u < f.PastTopUnit() && u < frameWidth; u++ {
			used[u] = true
		}
		cells = append(cells, f)
	}

	// Anonymous filler for unused unit runs
	for begin := 0; begin < frameWidth; {
		if used[begin] {
			begin++
			continue
		}
		end := begin
		for end < frameWidth && !used[end] {
			end++
		}
		cells = append(cells, AsciiFrameField{Name: "", Begin: begin, Width: end - begin})
		begin = end
	}

	// Insertion sort by Begin (cell counts are tiny)
	for i := 1; i < len(cells); i++ {
		for j := i; j > 0 && cells[j-1].Begin > cells[j].Begin; j-- {
			cells[j-1], cells[j] = cells[j], cells[j-1]
		}
	}

	return cells
}

func padCell(text string, width int) string {
	if len(text) > width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

func centerCell(text string, width int) string {
	if len(text) > width {
		text = text[:width]
	}
	left := (width - len(text)) / 2
	right := width - len(text) - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}
