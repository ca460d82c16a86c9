package isa

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Manu343726/g10/pkg/utils"
)

// Decoded is a disassembled instruction
type Decoded struct {
	Form     *Form
	Operands []Operand
}

// Size returns the decoded instruction length in bytes
func (d *Decoded) Size() int {
	return d.Form.Size()
}

// String returns the assembly text of the decoded instruction
func (d *Decoded) String() string {
	if len(d.Operands) == 0 {
		return d.Form.Mnemonic
	}

	operands := utils.Map(d.Operands, func(op Operand) string { return op.String() })
	return d.Form.Mnemonic + " " + strings.Join(operands, ", ")
}

// Decode disassembles the instruction at the start of data. It identifies
// the unique form whose fixed opcode bits match, unpacks the operand slots
// and reads the trailing field. It is the inverse of Form.Encode.
func Decode(data []byte) (*Decoded, error) {
	if len(data) < 2 {
		return nil, utils.MakeError(ErrTruncatedInstruction, "%v bytes left, opcode needs 2", len(data))
	}

	opcode := binary.LittleEndian.Uint16(data)

	form := matchOpcode(opcode)
	if form == nil {
		return nil, utils.MakeError(ErrInvalidOpcode, "%v", utils.FormatUintHex(uint64(opcode), 4))
	}

	if len(data) < form.Size() {
		return nil, utils.MakeError(ErrTruncatedInstruction, "'%v' needs %v bytes, %v left", form, form.Size(), len(data))
	}

	operands, err := unpackOperands(form, opcode, data[2:form.Size()])
	if err != nil {
		return nil, err
	}

	return &Decoded{Form: form, Operands: operands}, nil
}

func matchOpcode(opcode uint16) *Form {
	for _, form := range Forms {
		if opcode&form.FixedMask() == form.Base {
			return form
		}
	}
	return nil
}

func unpackOperands(form *Form, opcode uint16, field []byte) ([]Operand, error) {
	operands := make([]Operand, len(form.Shape))
	covered := make([]bool, len(form.Shape))

	view := utils.CreateBitView(&opcode)

	for _, slot := range form.Slots {
		value := int64(view.Read(slot.Shift, slot.Bits))
		pattern := form.Shape[slot.Operand]

		switch pattern {
		case PatRegL:
			operands[slot.Operand] = Reg(RegL, int(value))
		case PatRegW:
			operands[slot.Operand] = Reg(RegW, int(value))
		case PatRegD:
			operands[slot.Operand] = Reg(RegD, int(value))
		case PatIndirectD:
			operands[slot.Operand] = Indirect(RegD, int(value))
		case PatCond:
			code := ConditionCode(value)
			if !code.Valid() {
				return nil, utils.MakeError(ErrInvalidOpcode, "'%v': %v is not a condition code", form, value)
			}
			operands[slot.Operand] = Cond(code)
		case PatImm:
			operands[slot.Operand] = Imm(value)
		default:
			panic(fmt.Sprintf("pattern %v cannot be slot-encoded", pattern))
		}

		covered[slot.Operand] = true
	}

	if form.Field != FieldNone {
		value := readField(form.Field, field)
		if form.Shape[form.FieldOperand] == PatDirect {
			operands[form.FieldOperand] = Direct(value)
		} else {
			operands[form.FieldOperand] = Imm(value)
		}
		covered[form.FieldOperand] = true
	}

	for i := range operands {
		if covered[i] {
			continue
		}
		// The only operand a form leaves unencoded is the implied accumulator
		if form.Accumulator && i == 0 {
			operands[i] = Reg(accumulatorClass(form.Shape[0]), 0)
			continue
		}
		panic(fmt.Sprintf("form '%v' leaves operand %v unencoded", form, i))
	}

	return operands, nil
}

func accumulatorClass(pattern Pattern) RegisterClass {
	switch pattern {
	case PatRegL:
		return RegL
	case PatRegW:
		return RegW
	case PatRegD:
		return RegD
	}
	panic("unreachable")
}

// readField reads the little-endian trailing field. Branch offsets decode
// to their signed value, every other kind to its raw unsigned value.
func readField(kind FieldKind, data []byte) int64 {
	switch kind {
	case FieldImm8, FieldPort8:
		return int64(data[0])
	case FieldImm16, FieldQuick16:
		return int64(binary.LittleEndian.Uint16(data))
	case FieldRel16:
		return int64(int16(binary.LittleEndian.Uint16(data)))
	case FieldImm32, FieldAddr32:
		return int64(binary.LittleEndian.Uint32(data))
	}

	panic("unreachable")
}
