package isa

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/utils"
)

// OperandKind tags the variants of an instruction operand
type OperandKind int

const (
	// A register of any class
	OperandReg OperandKind = iota
	// A condition code
	OperandCond
	// An immediate value expression
	OperandImm
	// A direct memory address expression, written [expr]
	OperandDirect
	// An indirect register address, written [Dn]
	OperandIndirect
)

// Operand is one instruction operand, reduced to the form the encoder
// consumes: registers and conditions are always concrete, immediates and
// direct addresses carry a value only once the assembler has resolved their
// expression (HasValue is false while the value pends a relocation).
type Operand struct {
	Kind  OperandKind
	Class RegisterClass // Reg and Indirect operands
	Index int           // Reg and Indirect operands
	Cond  ConditionCode // Cond operands

	Value    int64 // Imm and Direct operands
	HasValue bool
}

// Reg builds a register operand
func Reg(class RegisterClass, index int) Operand {
	return Operand{Kind: OperandReg, Class: class, Index: index}
}

// Cond builds a condition code operand
func Cond(code ConditionCode) Operand {
	return Operand{Kind: OperandCond, Cond: code}
}

// Imm builds a resolved immediate operand
func Imm(value int64) Operand {
	return Operand{Kind: OperandImm, Value: value, HasValue: true}
}

// PendingImm builds an immediate operand whose value pends a relocation
func PendingImm() Operand {
	return Operand{Kind: OperandImm}
}

// Direct builds a resolved direct address operand
func Direct(value int64) Operand {
	return Operand{Kind: OperandDirect, Value: value, HasValue: true}
}

// PendingDirect builds a direct address operand whose value pends a relocation
func PendingDirect() Operand {
	return Operand{Kind: OperandDirect}
}

// Indirect builds an indirect register operand
func Indirect(class RegisterClass, index int) Operand {
	return Operand{Kind: OperandIndirect, Class: class, Index: index}
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandReg:
		return RegisterName(o.Class, o.Index)
	case OperandCond:
		return o.Cond.String()
	case OperandImm:
		if o.HasValue {
			return fmt.Sprint(o.Value)
		}
		return "<pending>"
	case OperandDirect:
		if o.HasValue {
			return fmt.Sprintf("[%v]", utils.FormatUintHex(uint64(uint32(o.Value)), 8))
		}
		return "[<pending>]"
	case OperandIndirect:
		return fmt.Sprintf("[%v]", RegisterName(o.Class, o.Index))
	}

	panic("unreachable")
}

// Pattern is the operand shape selector used to match an operand list
// against the instruction table
type Pattern int

const (
	PatRegL Pattern = iota
	PatRegW
	PatRegD
	PatCond
	PatImm
	PatDirect
	PatIndirectD
)

func (p Pattern) String() string {
	switch p {
	case PatRegL:
		return "Ln"
	case PatRegW:
		return "Wn"
	case PatRegD:
		return "Dn"
	case PatCond:
		return "<cond>"
	case PatImm:
		return "imm"
	case PatDirect:
		return "[addr]"
	case PatIndirectD:
		return "[Dn]"
	}

	panic("unreachable")
}

// Pattern returns the shape selector of the operand. Every indirect operand
// maps to the D register indirect pattern whatever its class; the table has
// no other indirect form.
func (o Operand) Pattern() Pattern {
	switch o.Kind {
	case OperandReg:
		switch o.Class {
		case RegL:
			return PatRegL
		case RegW:
			return PatRegW
		case RegD:
			return PatRegD
		}
	case OperandCond:
		return PatCond
	case OperandImm:
		return PatImm
	case OperandDirect:
		return PatDirect
	case OperandIndirect:
		return PatIndirectD
	}

	panic("unreachable")
}

// ShapeOf returns the pattern sequence of an operand list
func ShapeOf(operands []Operand) []Pattern {
	return utils.Map(operands, func(op Operand) Pattern { return op.Pattern() })
}

// ShapeString formats a shape for diagnostics, e.g. "Dn, [addr]"
func ShapeString(shape []Pattern) string {
	return utils.FormatSlice(shape, ", ")
}
