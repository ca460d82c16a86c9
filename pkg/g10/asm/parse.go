package asm

import (
	"strings"

	"github.com/Manu343726/g10/pkg/g10/expr"
	"github.com/Manu343726/g10/pkg/g10/isa"
	"github.com/Manu343726/g10/pkg/utils"
)

// ParseStatements parses assembly source text into a statement stream.
//
// The statement grammar is line based: one statement per line, labels may
// share a line with the statement they precede, ';' starts a comment.
// Operand commas are mandatory separators; expressions never contain them.
func ParseStatements(source string) ([]Statement, error) {
	var statements []Statement

	for i, line := range strings.Split(source, "\n") {
		lineNumber := i + 1

		if comment := strings.IndexByte(line, ';'); comment >= 0 {
			line = line[:comment]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// A leading label may precede another statement on the same line
		if name, rest, isLabel := splitLabel(line); isLabel {
			statements = append(statements, &LabelDef{stmtBase{lineNumber}, name})
			line = strings.TrimSpace(rest)
			if line == "" {
				continue
			}
		}

		stmt, err := parseLine(lineNumber, line)
		if err != nil {
			return nil, utils.MakeError(err, "at line %v", lineNumber)
		}

		statements = append(statements, stmt)
	}

	return statements, nil
}

// splitLabel recognizes "name:" at the start of a line
func splitLabel(line string) (string, string, bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", false
	}

	name := line[:colon]
	if !isIdentifier(name) {
		return "", "", false
	}

	return name, line[colon+1:], true
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		alpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.'
		if !alpha && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return len(s) > 0
}

func parseLine(line int, text string) (Statement, error) {
	head, tail := splitHead(text)

	if strings.HasPrefix(head, ".") {
		return parseDirective(line, head, tail)
	}

	return parseInstruction(line, strings.ToLower(head), tail)
}

func splitHead(text string) (string, string) {
	if space := strings.IndexAny(text, " \t"); space >= 0 {
		return text[:space], strings.TrimSpace(text[space+1:])
	}
	return text, ""
}

func parseDirective(line int, head, tail string) (Statement, error) {
	base := stmtBase{line}

	switch strings.ToLower(head) {
	case ".org":
		addr, err := expr.Parse(tail)
		if err != nil {
			return nil, err
		}
		return &Org{base, addr}, nil

	case ".global", ".globl":
		names, err := parseNameList(tail)
		if err != nil {
			return nil, err
		}
		return &GlobalDecl{base, names}, nil

	case ".extern":
		names, err := parseNameList(tail)
		if err != nil {
			return nil, err
		}
		return &ExternDecl{base, names}, nil

	case ".weak":
		names, err := parseNameList(tail)
		if err != nil {
			return nil, err
		}
		return &WeakDecl{base, names}, nil

	case ".entry":
		names, err := parseNameList(tail)
		if err != nil {
			return nil, err
		}
		if len(names) != 1 {
			return nil, utils.MakeError(ErrSyntax, ".entry takes exactly one symbol name")
		}
		return &EntryDecl{base, names[0]}, nil

	case ".file":
		name := strings.Trim(tail, "\"")
		if name == "" {
			return nil, utils.MakeError(ErrSyntax, ".file takes a file name")
		}
		return &FileDecl{base, name}, nil

	case ".byte":
		return parseData(base, DataByte, tail)
	case ".word":
		return parseData(base, DataWord, tail)
	case ".dword":
		return parseData(base, DataDword, tail)
	}

	return nil, utils.MakeError(ErrSyntax, "unknown directive '%v'", head)
}

func parseNameList(text string) ([]string, error) {
	var names []string

	for _, field := range strings.Split(text, ",") {
		name := strings.TrimSpace(field)
		if !isIdentifier(name) {
			return nil, utils.MakeError(ErrSyntax, "'%v' is not a symbol name", name)
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, utils.MakeError(ErrSyntax, "expected at least one symbol name")
	}

	return names, nil
}

func parseData(base stmtBase, kind DataKind, tail string) (Statement, error) {
	if strings.TrimSpace(tail) == "" {
		return nil, utils.MakeError(ErrSyntax, ".%v takes at least one operand", kind)
	}

	var args []expr.Node
	for _, field := range strings.Split(tail, ",") {
		arg, err := expr.Parse(field)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	return &Data{base, kind, args}, nil
}

func parseInstruction(line int, mnemonic, tail string) (Statement, error) {
	instr := &Instr{stmtBase{line}, mnemonic, nil}

	if tail == "" {
		return instr, nil
	}

	fields := strings.Split(tail, ",")
	instr.Operands = make([]Operand, len(fields))

	for i, field := range fields {
		operand, err := parseOperand(mnemonic, i, strings.TrimSpace(field))
		if err != nil {
			return nil, utils.MakeError(err, "operand %v of '%v'", i+1, mnemonic)
		}
		instr.Operands[i] = operand
	}

	return instr, nil
}

func parseOperand(mnemonic string, position int, text string) (Operand, error) {
	if text == "" {
		return Operand{}, utils.MakeError(ErrSyntax, "empty operand")
	}

	// [Dn] is register-indirect, [expr] a direct address
	if strings.HasPrefix(text, "[") {
		if !strings.HasSuffix(text, "]") {
			return Operand{}, utils.MakeError(ErrSyntax, "missing ']' in '%v'", text)
		}
		inner := strings.TrimSpace(text[1 : len(text)-1])

		if isa.IsRegisterName(inner) {
			class, index, err := isa.ParseRegister(inner)
			if err != nil {
				return Operand{}, err
			}
			if class != isa.RegD {
				return Operand{}, utils.MakeError(ErrSyntax, "indirect addressing requires a D register, got '%v'", inner)
			}
			return Operand{Kind: OperandIndirect, Class: class, Index: index}, nil
		}

		node, err := expr.Parse(inner)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandDirect, Expr: node}, nil
	}

	if isa.IsRegisterName(text) {
		class, index, err := isa.ParseRegister(text)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandReg, Class: class, Index: index}, nil
	}

	// The first operand of a conditional mnemonic may be a condition code;
	// everywhere else names like 'cs' are ordinary identifiers
	if position == 0 && isa.TakesCondition(mnemonic) && isa.IsConditionName(text) {
		code, err := isa.ParseCondition(text)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandCond, Cond: code}, nil
	}

	node, err := expr.Parse(text)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Kind: OperandImm, Expr: node}, nil
}
