// Package utils provides generic helpers shared across the g10 toolchain.
package utils

import (
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// Assembly syntax highlighting colors
var (
	asmMnemonicColor  = color.New(color.FgYellow, color.Bold)
	asmRegisterColor  = color.New(color.FgGreen)
	asmConditionColor = color.New(color.FgMagenta)
	asmNumberColor    = color.New(color.FgCyan)
	asmLabelColor     = color.New(color.FgHiBlue)
	asmDirectiveColor = color.New(color.FgBlue)
	asmCommentColor   = color.New(color.FgHiBlack)
)

// Condition code mnemonics as they appear in operand position
var asmConditions = map[string]bool{
	"nc": true, "zs": true, "zc": true, "cs": true,
	"cc": true, "vs": true, "vc": true,
}

// Patterns for assembly syntax elements
var (
	asmCommentPattern   = regexp.MustCompile(`;.*$`)
	asmLabelPattern     = regexp.MustCompile(`^\s*[A-Za-z_.][A-Za-z0-9_.]*:`)
	asmDirectivePattern = regexp.MustCompile(`^\s*\.[a-z]+\b`)
	asmMnemonicPattern  = regexp.MustCompile(`^\s*[a-z][a-z0-9]*\b`)
	asmRegisterPattern  = regexp.MustCompile(`\b[lwdLWD](1[0-5]|[0-9])\b`)
	asmNumberPattern    = regexp.MustCompile(`\b(?:0[xX][0-9a-fA-F]+|0[bB][01]+|[0-9]+)\b`)
	asmIdentPattern     = regexp.MustCompile(`\b[a-z]+\b`)
)

type asmToken struct {
	text  string
	color *color.Color
	start int
	end   int
}

// HighlightAsm applies syntax highlighting to one line of G10 assembly text
// and returns the colored string
func HighlightAsm(line string) string {
	if line == "" {
		return ""
	}

	var tokens []asmToken

	claim := func(start, end int, c *color.Color) {
		if start < 0 || end <= start {
			return
		}
		for _, t := range tokens {
			if start < t.end && end > t.start {
				return
			}
		}
		tokens = append(tokens, asmToken{text: line[start:end], color: c, start: start, end: end})
	}

	// Comments first, nothing inside them is highlighted separately
	if m := asmCommentPattern.FindStringIndex(line); m != nil {
		claim(m[0], m[1], asmCommentColor)
	}

	if m := asmLabelPattern.FindStringIndex(line); m != nil {
		claim(m[0], m[1], asmLabelColor)
	} else if m := asmDirectivePattern.FindStringIndex(line); m != nil {
		claim(m[0], m[1], asmDirectiveColor)
	} else if m := asmMnemonicPattern.FindStringIndex(line); m != nil {
		claim(m[0], m[1], asmMnemonicColor)
	}

	for _, m := range asmRegisterPattern.FindAllStringIndex(line, -1) {
		claim(m[0], m[1], asmRegisterColor)
	}

	for _, m := range asmNumberPattern.FindAllStringIndex(line, -1) {
		claim(m[0], m[1], asmNumberColor)
	}

	for _, m := range asmIdentPattern.FindAllStringIndex(line, -1) {
		if asmConditions[line[m[0]:m[1]]] {
			claim(m[0], m[1], asmConditionColor)
		}
	}

	return buildHighlightedString(line, tokens)
}

// buildHighlightedString constructs the final string with color codes
func buildHighlightedString(line string, tokens []asmToken) string {
	if len(tokens) == 0 {
		return line
	}

	// Sort tokens by start position (insertion sort, token counts are small)
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j-1].start > tokens[j].start; j-- {
			tokens[j-1], tokens[j] = tokens[j], tokens[j-1]
		}
	}

	var result strings.Builder
	pos := 0

	for _, t := range tokens {
		if t.start > pos {
			result.WriteString(line[pos:t.start])
		}
		result.WriteString(t.color.Sprint(t.text))
		pos = t.end
	}

	if pos < len(line) {
		result.WriteString(line[pos:])
	}

	return result.String()
}
