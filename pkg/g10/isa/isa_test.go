package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, mnemonic string, operands ...Operand) []byte {
	form, err := Lookup(mnemonic, ShapeOf(operands))
	require.NoError(t, err)

	bytes, err := form.Encode(operands)
	require.NoError(t, err)
	return bytes
}

func TestEncodeNop(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00}, encode(t, "nop"))
}

func TestEncodeImmediateLoads(t *testing.T) {
	// ld d0, 0xDEADBEEF -> opcode 0x3000, immediate little-endian
	assert.Equal(t, []byte{0x00, 0x30, 0xEF, 0xBE, 0xAD, 0xDE},
		encode(t, "ld", Reg(RegD, 0), Imm(0xDEADBEEF)))

	// ld d0, 0x80000000 -> 00 00 00 80
	assert.Equal(t, []byte{0x00, 0x30, 0x00, 0x00, 0x00, 0x80},
		encode(t, "ld", Reg(RegD, 0), Imm(0x80000000)))

	// ld l3, 0x42 -> opcode 0x1030
	assert.Equal(t, []byte{0x30, 0x10, 0x42},
		encode(t, "ld", Reg(RegL, 3), Imm(0x42)))

	// ld w7, 0x1234 -> opcode 0x2070
	assert.Equal(t, []byte{0x70, 0x20, 0x34, 0x12},
		encode(t, "ld", Reg(RegW, 7), Imm(0x1234)))
}

func TestEncodeRegisterForms(t *testing.T) {
	// ld d2, [d5] -> 0x3225
	assert.Equal(t, []byte{0x25, 0x32}, encode(t, "ld", Reg(RegD, 2), Indirect(RegD, 5)))

	// ldq d1, [0x1234] -> 0x3310 + window offset
	assert.Equal(t, []byte{0x10, 0x33, 0x34, 0x12},
		encode(t, "ldq", Reg(RegD, 1), Direct(0x1234)))

	// ldq through a full quick window address
	assert.Equal(t, []byte{0x10, 0x33, 0x10, 0x00},
		encode(t, "ldq", Reg(RegD, 1), Direct(0xFFFF0010)))

	// ldp l2, [0xFFFFFF40] -> 0x1520 + port offset 0x40
	assert.Equal(t, []byte{0x20, 0x15, 0x40},
		encode(t, "ldp", Reg(RegL, 2), Direct(0xFFFFFF40)))
}

func TestEncodeControl(t *testing.T) {
	// jmp cs, 0x2000 -> opcode 0x4030
	assert.Equal(t, []byte{0x30, 0x40, 0x00, 0x20, 0x00, 0x00},
		encode(t, "jmp", Cond(CondCS), Imm(0x2000)))

	// ret nc -> 0x4500
	assert.Equal(t, []byte{0x00, 0x45}, encode(t, "ret", Cond(CondNC)))

	// int 31 -> 0x441F
	assert.Equal(t, []byte{0x1F, 0x44}, encode(t, "int", Imm(31)))

	// bit 5, l3 -> 0xA035
	assert.Equal(t, []byte{0x35, 0xA0}, encode(t, "bit", Imm(5), Reg(RegL, 3)))
}

func TestEncodeALU(t *testing.T) {
	// add l0, l7 -> 0x5107
	assert.Equal(t, []byte{0x07, 0x51}, encode(t, "add", Reg(RegL, 0), Reg(RegL, 7)))

	// and l0, l2 -> 0x7102
	assert.Equal(t, []byte{0x02, 0x71}, encode(t, "and", Reg(RegL, 0), Reg(RegL, 2)))

	// cmp d0, d9 -> 0x7F09
	assert.Equal(t, []byte{0x09, 0x7F}, encode(t, "cmp", Reg(RegD, 0), Reg(RegD, 9)))

	// add d0, 0x1000 -> 0x6300 + imm32
	assert.Equal(t, []byte{0x00, 0x63, 0x00, 0x10, 0x00, 0x00},
		encode(t, "add", Reg(RegD, 0), Imm(0x1000)))
}

func TestAccumulatorViolation(t *testing.T) {
	form, err := Lookup("add", []Pattern{PatRegL, PatRegL})
	require.NoError(t, err)

	_, err = form.Encode([]Operand{Reg(RegL, 1), Reg(RegL, 2)})
	assert.ErrorIs(t, err, ErrAccumulatorViolation)
}

func TestUnknownMnemonic(t *testing.T) {
	_, err := Lookup("frobnicate", nil)
	assert.ErrorIs(t, err, ErrUnknownMnemonic)
}

func TestOperandShapeMismatch(t *testing.T) {
	_, err := Lookup("nop", []Pattern{PatRegL})
	assert.ErrorIs(t, err, ErrOperandShape)

	_, err = Lookup("ld", []Pattern{PatImm, PatRegD})
	assert.ErrorIs(t, err, ErrOperandShape)
}

func TestImmediateRange(t *testing.T) {
	form, err := Lookup("ld", []Pattern{PatRegL, PatImm})
	require.NoError(t, err)

	_, err = form.Encode([]Operand{Reg(RegL, 0), Imm(256)})
	assert.ErrorIs(t, err, ErrImmediateRange)

	_, err = form.Encode([]Operand{Reg(RegL, 0), Imm(-129)})
	assert.ErrorIs(t, err, ErrImmediateRange)

	// int vectors are 0..31, encoded in the opcode word
	form, err = Lookup("int", []Pattern{PatImm})
	require.NoError(t, err)

	_, err = form.Encode([]Operand{Imm(32)})
	assert.ErrorIs(t, err, ErrImmediateRange)
}

func TestBranchOffsetBoundaries(t *testing.T) {
	// Offsets -0x8000 and +0x7FFF encode, -0x8001 does not
	encoded, err := EncodeBranchOffset(0x10000-0x8000, 0x10000)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x8000), encoded)

	encoded, err = EncodeBranchOffset(0x10000+0x7FFF, 0x10000)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x7FFF), encoded)

	_, err = EncodeBranchOffset(0x10000-0x8001, 0x10000)
	assert.ErrorIs(t, err, ErrBranchRange)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0x00})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)

	// 0xFFFF matches no form
	_, err = Decode([]byte{0xFF, 0xFF})
	assert.ErrorIs(t, err, ErrInvalidOpcode)

	// ld d0, imm32 with the immediate cut short
	_, err = Decode([]byte{0x00, 0x30, 0x01})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)
}

// sampleOperand builds a representative concrete operand for a pattern,
// varying with the seed so register indices and values differ per form
func sampleOperand(form *Form, index int, seed int) Operand {
	switch form.Shape[index] {
	case PatRegL:
		if form.Accumulator && index == 0 {
			return Reg(RegL, 0)
		}
		return Reg(RegL, 1+seed%15)
	case PatRegW:
		if form.Accumulator && index == 0 {
			return Reg(RegW, 0)
		}
		return Reg(RegW, 1+seed%15)
	case PatRegD:
		if form.Accumulator && index == 0 {
			return Reg(RegD, 0)
		}
		return Reg(RegD, 1+seed%15)
	case PatIndirectD:
		return Indirect(RegD, 2+seed%14)
	case PatCond:
		return Cond(ConditionCode(seed % int(totalConditions)))
	case PatDirect:
		if form.Field == FieldQuick16 {
			return Direct(int64(0x100 + seed))
		}
		if form.Field == FieldPort8 {
			return Direct(int64(0x10 + seed%0xE0))
		}
		return Direct(int64(0x2000 + seed*4))
	case PatImm:
		// Slot-encoded immediates (int vectors, bit indices) have tight ranges
		for _, slot := range form.Slots {
			if slot.Operand == index {
				return Imm(int64(seed % (1 << slot.Bits)))
			}
		}
		switch form.Field {
		case FieldImm8:
			return Imm(int64(seed % 0x100))
		case FieldImm16, FieldRel16:
			return Imm(int64(seed % 0x8000))
		default:
			return Imm(int64(0x1000 + seed))
		}
	}

	panic("unreachable")
}

// Every form encodes and decodes back to the same mnemonic, shape and
// operand values
func TestEncodeDecodeRoundTrip(t *testing.T) {
	for seed, form := range Forms {
		operands := make([]Operand, len(form.Shape))
		for i := range operands {
			operands[i] = sampleOperand(form, i, seed)
		}

		bytes, err := form.Encode(operands)
		require.NoError(t, err, "encoding '%v'", form)
		require.Equal(t, form.Size(), len(bytes), "size of '%v'", form)

		decoded, err := Decode(bytes)
		require.NoError(t, err, "decoding '%v' from % X", form, bytes)

		assert.Equal(t, form.Mnemonic, decoded.Form.Mnemonic, "mnemonic of '%v'", form)
		assert.True(t, form.Matches(ShapeOf(decoded.Operands)), "shape of '%v': got '%v'", form, decoded)
		require.Equal(t, len(operands), len(decoded.Operands), "operand count of '%v'", form)

		for i := range operands {
			switch operands[i].Kind {
			case OperandReg, OperandIndirect:
				assert.Equal(t, operands[i].Class, decoded.Operands[i].Class, "operand %v class of '%v'", i, form)
				assert.Equal(t, operands[i].Index, decoded.Operands[i].Index, "operand %v index of '%v'", i, form)
			case OperandCond:
				assert.Equal(t, operands[i].Cond, decoded.Operands[i].Cond, "operand %v cond of '%v'", i, form)
			case OperandImm, OperandDirect:
				assert.Equal(t, operands[i].Value, decoded.Operands[i].Value, "operand %v value of '%v'", i, form)
			}
		}
	}
}

func TestTableDocs(t *testing.T) {
	docs := DocString()
	assert.Contains(t, docs, "jpb")
	assert.Contains(t, docs, "opcode 0x4200")
	t.Logf("\n%v", Forms[0].Documentation(0))
}
