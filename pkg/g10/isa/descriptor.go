package isa

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Manu343726/g10/pkg/utils"
)

// Slot maps one operand into a bit range of the 16 bit opcode word.
// Registers and indirect registers contribute their index, conditions their
// code, and immediate operands their (constant) value.
type Slot struct {
	// Index of the source operand within the instruction's operand list
	Operand int
	// First bit of the destination range within the opcode word
	Shift int
	// Width of the destination range in bits
	Bits int
}

// Form describes one (mnemonic, operand shape) entry of the instruction
// table: the fixed opcode bits, the operand slots packed into the opcode
// word, and the trailing immediate/address field if any.
type Form struct {
	// Instruction mnemonic, lower case
	Mnemonic string
	// Expected operand shape
	Shape []Pattern
	// Opcode word with all slot bits zero
	Base uint16
	// Operand slots packed into the opcode word
	Slots []Slot
	// Kind of the trailing field, FieldNone when the opcode stands alone
	Field FieldKind
	// Index of the operand that supplies the trailing field value
	FieldOperand int
	// If true the first register operand must be the accumulator of its class
	Accumulator bool
	// One line description (for documentation and diagnostics)
	Description string
}

// Size returns the total encoded instruction length in bytes
func (f *Form) Size() int {
	return 2 + f.Field.Width()
}

// String returns the assembly-like signature of the form, e.g. "ld Dn, imm"
func (f *Form) String() string {
	if len(f.Shape) == 0 {
		return f.Mnemonic
	}
	return f.Mnemonic + " " + ShapeString(f.Shape)
}

// Matches reports whether an operand shape selects this form
func (f *Form) Matches(shape []Pattern) bool {
	if len(shape) != len(f.Shape) {
		return false
	}
	for i := range shape {
		if shape[i] != f.Shape[i] {
			return false
		}
	}
	return true
}

// slotMask returns the opcode bits covered by operand slots
func (f *Form) slotMask() uint16 {
	var mask uint16
	view := utils.CreateBitView(&mask)
	for _, slot := range f.Slots {
		view.Write(utils.AllOnes[uint16](slot.Bits), slot.Shift, slot.Bits)
	}
	return mask
}

// FixedMask returns the opcode bits that identify the form during decoding
func (f *Form) FixedMask() uint16 {
	return ^f.slotMask()
}

// EncodeOpcode packs the operands into the form's opcode word. The operand
// list must already match the form's shape; slot-resolved immediates (bit
// indices, interrupt vectors) must be constants in range.
func (f *Form) EncodeOpcode(operands []Operand) (uint16, error) {
	if f.Accumulator && operands[0].Index != 0 {
		return 0, utils.MakeError(ErrAccumulatorViolation, "'%v' requires %v, got %v",
			f, Accumulator(operands[0].Class), operands[0])
	}

	opcode := f.Base
	view := utils.CreateBitView(&opcode)

	for _, slot := range f.Slots {
		op := operands[slot.Operand]

		var value uint16
		switch op.Kind {
		case OperandReg, OperandIndirect:
			value = uint16(op.Index)
		case OperandCond:
			value = uint16(op.Cond)
		case OperandImm:
			if !op.HasValue {
				return 0, utils.MakeError(ErrConstantRequired, "operand %v of '%v' is encoded in the opcode word and cannot be relocated", slot.Operand+1, f)
			}
			limit := int64(utils.AllOnes[uint16](slot.Bits))
			if op.Value < 0 || op.Value > limit {
				return 0, utils.MakeError(ErrImmediateRange, "operand %v of '%v' must be 0..%v, got %v", slot.Operand+1, f, limit, op.Value)
			}
			value = uint16(op.Value)
		default:
			panic(fmt.Sprintf("operand kind %v cannot fill an opcode slot", op.Kind))
		}

		view.Write(value, slot.Shift, slot.Bits)
	}

	return opcode, nil
}

// Encode produces the full byte encoding of the instruction. Every operand
// must be resolved; callers that defer a field value to a relocation use
// EncodeOpcode and AppendFieldBytes with a zero placeholder instead.
func (f *Form) Encode(operands []Operand) ([]byte, error) {
	opcode, err := f.EncodeOpcode(operands)
	if err != nil {
		return nil, err
	}

	bytes := binary.LittleEndian.AppendUint16(make([]byte, 0, f.Size()), opcode)

	if f.Field == FieldNone {
		return bytes, nil
	}

	op := operands[f.FieldOperand]
	if !op.HasValue {
		return nil, utils.MakeError(ErrConstantRequired, "operand %v of '%v' is unresolved", f.FieldOperand+1, f)
	}

	encoded, err := EncodeField(f.Field, op.Value)
	if err != nil {
		return nil, utils.MakeError(err, "operand %v of '%v'", f.FieldOperand+1, f)
	}

	return AppendFieldBytes(bytes, f.Field, encoded), nil
}

// Documentation returns the form's doc entry with an encoding frame drawing
func (f *Form) Documentation(leftpad int) string {
	var builder strings.Builder
	pad := strings.Repeat(" ", leftpad)

	builder.WriteString(pad)
	builder.WriteString(fmt.Sprintf("%v  (opcode %v)\n", f, utils.FormatUintHex(uint64(f.Base), 4)))
	builder.WriteString(pad)
	builder.WriteString(fmt.Sprintf("  %v\n\n", f.Description))

	fields := []utils.AsciiFrameField{}
	for _, slot := range f.Slots {
		fields = append(fields, utils.AsciiFrameField{
			Name:  f.Shape[slot.Operand].String(),
			Begin: slot.Shift,
			Width: slot.Bits,
		})
	}
	builder.WriteString(utils.AsciiFrame(fields, 16, "bits", leftpad+2))

	if f.Field != FieldNone {
		builder.WriteString(pad)
		builder.WriteString(fmt.Sprintf("  + %v bytes: %v (little-endian)\n", f.Field.Width(), f.Field))
	}

	return builder.String()
}
