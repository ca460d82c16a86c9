package isa

import (
	"encoding/binary"

	"github.com/Manu343726/g10/pkg/utils"
)

// Base addresses of the two relative addressing windows
const (
	QuickWindowBase = 0xFFFF0000
	PortWindowBase  = 0xFFFFFF00
)

// FieldKind describes the immediate/address bytes that follow an opcode
type FieldKind int

const (
	// No trailing bytes
	FieldNone FieldKind = iota
	// 8 bit immediate
	FieldImm8
	// 16 bit immediate, little-endian
	FieldImm16
	// 32 bit immediate, little-endian
	FieldImm32
	// 32 bit absolute address, little-endian
	FieldAddr32
	// 16 bit offset into the quick RAM window
	FieldQuick16
	// 8 bit offset into the I/O port window
	FieldPort8
	// 16 bit signed PC-relative branch offset, measured from the byte
	// after the instruction
	FieldRel16
)

// Width returns the field size in bytes
func (k FieldKind) Width() int {
	switch k {
	case FieldNone:
		return 0
	case FieldImm8, FieldPort8:
		return 1
	case FieldImm16, FieldQuick16, FieldRel16:
		return 2
	case FieldImm32, FieldAddr32:
		return 4
	}

	panic("unreachable")
}

func (k FieldKind) String() string {
	switch k {
	case FieldNone:
		return "none"
	case FieldImm8:
		return "imm8"
	case FieldImm16:
		return "imm16"
	case FieldImm32:
		return "imm32"
	case FieldAddr32:
		return "addr32"
	case FieldQuick16:
		return "addr16"
	case FieldPort8:
		return "addr8"
	case FieldRel16:
		return "simm16"
	}

	panic("unreachable")
}

// EncodeField range-checks a resolved constant operand value and narrows it
// to the field's wire form. Quick and port fields accept either an offset
// that already fits the window or a full absolute address inside it.
func EncodeField(kind FieldKind, value int64) (uint32, error) {
	switch kind {
	case FieldImm8:
		if value < -0x80 || value > 0xFF {
			return 0, utils.MakeError(ErrImmediateRange, "%v does not fit in 8 bits", value)
		}
		return uint32(value) & 0xFF, nil

	case FieldImm16:
		if value < -0x8000 || value > 0xFFFF {
			return 0, utils.MakeError(ErrImmediateRange, "%v does not fit in 16 bits", value)
		}
		return uint32(value) & 0xFFFF, nil

	case FieldImm32, FieldAddr32:
		if value < -0x80000000 || value > 0xFFFFFFFF {
			return 0, utils.MakeError(ErrImmediateRange, "%v does not fit in 32 bits", value)
		}
		return uint32(value), nil

	case FieldQuick16:
		return encodeWindowOffset(value, QuickWindowBase, 0xFFFF)

	case FieldPort8:
		return encodeWindowOffset(value, PortWindowBase, 0xFF)

	case FieldRel16:
		if value < -0x8000 || value > 0x7FFF {
			return 0, utils.MakeError(ErrBranchRange, "offset %v does not fit in a signed 16 bit field", value)
		}
		return uint32(value) & 0xFFFF, nil
	}

	panic("unreachable")
}

func encodeWindowOffset(value int64, base uint32, max int64) (uint32, error) {
	if value >= int64(base) && value <= 0xFFFFFFFF {
		value -= int64(base)
	}
	if value < 0 || value > max {
		return 0, utils.MakeError(ErrImmediateRange, "%v is neither a window offset nor an address within the window at 0x%08X", value, base)
	}
	return uint32(value), nil
}

// EncodeBranchOffset computes and range-checks the jpb offset from the
// address of the byte after the instruction to the target
func EncodeBranchOffset(target, next uint32) (uint32, error) {
	offset := int64(target) - int64(next)
	if offset < -0x8000 || offset > 0x7FFF {
		return 0, utils.MakeError(ErrBranchRange, "target 0x%08X is %v bytes away, beyond the signed 16 bit range", target, offset)
	}
	return uint32(offset) & 0xFFFF, nil
}

// AppendFieldBytes appends the little-endian wire form of an encoded field
func AppendFieldBytes(dst []byte, kind FieldKind, encoded uint32) []byte {
	switch kind.Width() {
	case 0:
		return dst
	case 1:
		return append(dst, byte(encoded))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(encoded))
	case 4:
		return binary.LittleEndian.AppendUint32(dst, encoded)
	}

	panic("unreachable")
}
