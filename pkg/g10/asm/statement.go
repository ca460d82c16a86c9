// Package asm implements the G10 assembler back end: it turns a stream of
// parsed statements into a relocatable object file in two passes, a layout
// pass that binds label addresses and sizes sections, and an emission pass
// that encodes instructions and data and records relocations for symbol
// references it cannot resolve locally.
package asm

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/g10/expr"
	"github.com/Manu343726/g10/pkg/g10/isa"
)

// Statement is one parsed assembly statement. The statement stream is the
// upstream contract: a parser (or a test) produces it, the assembler
// consumes it.
type Statement interface {
	// Line returns the source line the statement came from, for diagnostics
	Line() int

	statement()
}

type stmtBase struct {
	LineNumber int
}

func (s stmtBase) Line() int  { return s.LineNumber }
func (s stmtBase) statement() {}

// Org opens (or switches back to) the section based at the given address
type Org struct {
	stmtBase
	Addr expr.Node
}

// LabelDef binds a name to the current location counter
type LabelDef struct {
	stmtBase
	Name string
}

// GlobalDecl marks names as visible to other objects; each must be defined
// in this unit
type GlobalDecl struct {
	stmtBase
	Names []string
}

// ExternDecl marks names as imported from other objects; none may be
// defined in this unit
type ExternDecl struct {
	stmtBase
	Names []string
}

// WeakDecl marks names as weak global definitions, superseded at link time
// by any non-weak global of the same name
type WeakDecl struct {
	stmtBase
	Names []string
}

// EntryDecl flags a defined symbol as the program entry point
type EntryDecl struct {
	stmtBase
	Name string
}

// FileDecl records the translation unit's source file name
type FileDecl struct {
	stmtBase
	Name string
}

// DataKind selects the element width of a data directive
type DataKind int

const (
	DataByte DataKind = iota
	DataWord
	DataDword
)

// Width returns the element size in bytes
func (k DataKind) Width() uint32 {
	switch k {
	case DataByte:
		return 1
	case DataWord:
		return 2
	case DataDword:
		return 4
	}

	panic("unreachable")
}

func (k DataKind) String() string {
	switch k {
	case DataByte:
		return "byte"
	case DataWord:
		return "word"
	case DataDword:
		return "dword"
	}

	panic("unreachable")
}

// Data emits its operand values little-endian in ROM sections; in BSS
// sections each operand is a reservation count of Width-sized elements
type Data struct {
	stmtBase
	Kind DataKind
	Args []expr.Node
}

// OperandKind tags the variants of a source-level instruction operand
type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandCond
	OperandImm
	OperandDirect
	OperandIndirect
)

// Operand is one source-level instruction operand. Immediate and direct
// operands carry unevaluated expression trees; the emission pass folds
// them or turns them into relocations.
type Operand struct {
	Kind  OperandKind
	Class isa.RegisterClass
	Index int
	Cond  isa.ConditionCode
	Expr  expr.Node
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandReg:
		return isa.RegisterName(o.Class, o.Index)
	case OperandCond:
		return o.Cond.String()
	case OperandImm:
		return o.Expr.String()
	case OperandDirect:
		return fmt.Sprintf("[%v]", o.Expr)
	case OperandIndirect:
		return fmt.Sprintf("[%v]", isa.RegisterName(o.Class, o.Index))
	}

	panic("unreachable")
}

// Pattern returns the shape selector matching the instruction table
func (o Operand) Pattern() isa.Pattern {
	switch o.Kind {
	case OperandReg:
		switch o.Class {
		case isa.RegL:
			return isa.PatRegL
		case isa.RegW:
			return isa.PatRegW
		case isa.RegD:
			return isa.PatRegD
		}
	case OperandCond:
		return isa.PatCond
	case OperandImm:
		return isa.PatImm
	case OperandDirect:
		return isa.PatDirect
	case OperandIndirect:
		return isa.PatIndirectD
	}

	panic("unreachable")
}

// Instr is one instruction statement: a mnemonic and its operands
type Instr struct {
	stmtBase
	Mnemonic string
	Operands []Operand
}
