package isa

import (
	"fmt"

	"github.com/Manu343726/g10/pkg/utils"
)

// The canonical G10 instruction table. Every (mnemonic, operand shape)
// combination maps to exactly one opcode pattern; the slot layout follows
// the nibble positions of the CPU manual's opcode patterns (e.g. 0x32xy:
// x in bits 7..4, y in bits 3..0).

// Nibble slot helpers for the common layouts
func slotN1(operand int) Slot { return Slot{Operand: operand, Shift: 4, Bits: 4} }
func slotN0(operand int) Slot { return Slot{Operand: operand, Shift: 0, Bits: 4} }

// widthFamily returns the load/store family digit of a register class
// (1 = L, 2 = W, 3 = D), shifted into the opcode's high nibble
func widthFamily(class RegisterClass) uint16 {
	return uint16(class+1) << 12
}

func regPattern(class RegisterClass) Pattern {
	switch class {
	case RegL:
		return PatRegL
	case RegW:
		return PatRegW
	case RegD:
		return PatRegD
	}
	panic("unreachable")
}

func immFieldFor(class RegisterClass) FieldKind {
	switch class {
	case RegL:
		return FieldImm8
	case RegW:
		return FieldImm16
	case RegD:
		return FieldImm32
	}
	panic("unreachable")
}

var allClasses = []RegisterClass{RegL, RegW, RegD}

// buildLoadStoreForms generates the per-width load/store/move family
func buildLoadStoreForms() []*Form {
	var forms []*Form

	for _, class := range allClasses {
		family := widthFamily(class)
		reg := regPattern(class)

		forms = append(forms,
			&Form{
				Mnemonic: "ld", Shape: []Pattern{reg, PatImm},
				Base: family | 0x0000, Slots: []Slot{slotN1(0)},
				Field: immFieldFor(class), FieldOperand: 1,
				Description: fmt.Sprintf("Load a %v bit immediate into a %v register", class.Width()*8, class),
			},
			&Form{
				Mnemonic: "ld", Shape: []Pattern{reg, PatDirect},
				Base: family | 0x0100, Slots: []Slot{slotN1(0)},
				Field: FieldAddr32, FieldOperand: 1,
				Description: fmt.Sprintf("Load a %v register from an absolute address", class),
			},
			&Form{
				Mnemonic: "ld", Shape: []Pattern{reg, PatIndirectD},
				Base: family | 0x0200, Slots: []Slot{slotN1(0), slotN0(1)},
				Description: fmt.Sprintf("Load a %v register from the address held in a D register", class),
			},
			&Form{
				Mnemonic: "ldq", Shape: []Pattern{reg, PatDirect},
				Base: family | 0x0300, Slots: []Slot{slotN1(0)},
				Field: FieldQuick16, FieldOperand: 1,
				Description: fmt.Sprintf("Load a %v register through the quick RAM window", class),
			},
			&Form{
				Mnemonic: "st", Shape: []Pattern{reg, PatDirect},
				Base: family | 0x0600, Slots: []Slot{slotN1(0)},
				Field: FieldAddr32, FieldOperand: 1,
				Description: fmt.Sprintf("Store a %v register to an absolute address", class),
			},
			&Form{
				Mnemonic: "st", Shape: []Pattern{reg, PatIndirectD},
				Base: family | 0x0700, Slots: []Slot{slotN1(0), slotN0(1)},
				Description: fmt.Sprintf("Store a %v register to the address held in a D register", class),
			},
			&Form{
				Mnemonic: "stq", Shape: []Pattern{reg, PatDirect},
				Base: family | 0x0800, Slots: []Slot{slotN1(0)},
				Field: FieldQuick16, FieldOperand: 1,
				Description: fmt.Sprintf("Store a %v register through the quick RAM window", class),
			},
			&Form{
				Mnemonic: "mov", Shape: []Pattern{reg, reg},
				Base: family | 0x0A00, Slots: []Slot{slotN1(0), slotN0(1)},
				Description: fmt.Sprintf("Copy one %v register into another", class),
			},
		)
	}

	// Port window loads and stores move single bytes, so only L registers
	forms = append(forms,
		&Form{
			Mnemonic: "ldp", Shape: []Pattern{PatRegL, PatDirect},
			Base: 0x1500, Slots: []Slot{slotN1(0)},
			Field: FieldPort8, FieldOperand: 1,
			Description: "Load an L register from an I/O port",
		},
		&Form{
			Mnemonic: "stp", Shape: []Pattern{PatRegL, PatDirect},
			Base: 0x1900, Slots: []Slot{slotN1(0)},
			Field: FieldPort8, FieldOperand: 1,
			Description: "Store an L register to an I/O port",
		},
	)

	return forms
}

// buildControlForms generates the branch/call/interrupt family
func buildControlForms() []*Form {
	return []*Form{
		{
			Mnemonic: "jmp", Shape: []Pattern{PatCond, PatImm},
			Base: 0x4000, Slots: []Slot{slotN1(0)},
			Field: FieldAddr32, FieldOperand: 1,
			Description: "Jump to an absolute address if the condition holds",
		},
		{
			Mnemonic: "jmp", Shape: []Pattern{PatCond, PatRegD},
			Base: 0x4100, Slots: []Slot{slotN1(0), slotN0(1)},
			Description: "Jump to the address held in a D register if the condition holds",
		},
		{
			Mnemonic: "jpb", Shape: []Pattern{PatCond, PatImm},
			Base: 0x4200, Slots: []Slot{slotN1(0)},
			Field: FieldRel16, FieldOperand: 1,
			Description: "PC-relative branch, offset measured from the byte after the instruction",
		},
		{
			Mnemonic: "call", Shape: []Pattern{PatCond, PatImm},
			Base: 0x4300, Slots: []Slot{slotN1(0)},
			Field: FieldAddr32, FieldOperand: 1,
			Description: "Call an absolute address if the condition holds",
		},
		{
			Mnemonic: "int", Shape: []Pattern{PatImm},
			Base: 0x4400, Slots: []Slot{{Operand: 0, Shift: 0, Bits: 5}},
			Description: "Raise one of the 32 software interrupts",
		},
		{
			Mnemonic: "ret", Shape: []Pattern{PatCond},
			Base: 0x4500, Slots: []Slot{slotN1(0)},
			Description: "Return from a call if the condition holds",
		},
		{
			Mnemonic: "reti", Shape: []Pattern{PatCond},
			Base: 0x4600, Slots: []Slot{slotN1(0)},
			Description: "Return from an interrupt handler if the condition holds",
		},
	}
}

// accumulator ALU second nibbles, indexed per operation; the register
// source forms live in families 0x5 (arithmetic) and 0x7 (logic), the
// immediate source forms of the arithmetic operations in family 0x6
var aluArithNibbles = map[string]uint16{
	"add": 0x1,
	"adc": 0x5,
	"sub": 0x9,
	"sbc": 0xD,
}

var aluLogicNibbles = map[string]uint16{
	"and": 0x1,
	"or":  0x5,
	"xor": 0x9,
	"cmp": 0xD,
}

func aluOpcode(family uint16, nibble uint16, class RegisterClass) uint16 {
	return family<<12 | (nibble+uint16(class))<<8
}

// buildALUForms generates the accumulator ALU families
func buildALUForms() []*Form {
	var forms []*Form

	for _, mnemonic := range utils.SortedKeys(aluArithNibbles) {
		nibble := aluArithNibbles[mnemonic]
		for _, class := range allClasses {
			reg := regPattern(class)
			forms = append(forms,
				&Form{
					Mnemonic: mnemonic, Shape: []Pattern{reg, reg},
					Base: aluOpcode(0x5, nibble, class), Slots: []Slot{slotN0(1)},
					Accumulator: true,
					Description: fmt.Sprintf("%v a %v register into the %v accumulator", mnemonic, class, class),
				},
				&Form{
					Mnemonic: mnemonic, Shape: []Pattern{reg, PatImm},
					Base: aluOpcode(0x6, nibble, class),
					Field: immFieldFor(class), FieldOperand: 1,
					Accumulator: true,
					Description: fmt.Sprintf("%v an immediate into the %v accumulator", mnemonic, class),
				},
			)
		}
	}

	for _, mnemonic := range utils.SortedKeys(aluLogicNibbles) {
		nibble := aluLogicNibbles[mnemonic]
		for _, class := range allClasses {
			reg := regPattern(class)
			forms = append(forms, &Form{
				Mnemonic: mnemonic, Shape: []Pattern{reg, reg},
				Base: aluOpcode(0x7, nibble, class), Slots: []Slot{slotN0(1)},
				Accumulator: true,
				Description: fmt.Sprintf("%v a %v register with the %v accumulator", mnemonic, class, class),
			})
		}
	}

	return forms
}

// unary register operation second nibbles per width
var unaryNibbles = map[string][3]uint16{
	"inc":  {0x0, 0x1, 0x2},
	"dec":  {0x3, 0x4, 0x5},
	"swap": {0x6, 0x8, 0x9},
	"not":  {0xA, 0xB, 0xC},
	"neg":  {0xD, 0xE, 0xF},
}

// buildUnaryForms generates the single register operation family
func buildUnaryForms() []*Form {
	var forms []*Form

	for _, mnemonic := range utils.SortedKeys(unaryNibbles) {
		nibbles := unaryNibbles[mnemonic]
		for _, class := range allClasses {
			forms = append(forms, &Form{
				Mnemonic: mnemonic, Shape: []Pattern{regPattern(class)},
				Base: 0x8000 | nibbles[class]<<8, Slots: []Slot{slotN1(0)},
				Description: fmt.Sprintf("%v a %v register in place", mnemonic, class),
			})
		}
	}

	return forms
}

// buildBitForms generates the bit test/set/reset family (L registers only,
// the bit index is encoded in the opcode's low nibble)
func buildBitForms() []*Form {
	ops := []struct {
		mnemonic string
		base     uint16
		desc     string
	}{
		{"bit", 0xA000, "Test bit b of an L register"},
		{"set", 0xA100, "Set bit b of an L register"},
		{"res", 0xA200, "Reset bit b of an L register"},
	}

	forms := make([]*Form, len(ops))
	for i, op := range ops {
		forms[i] = &Form{
			Mnemonic: op.mnemonic, Shape: []Pattern{PatImm, PatRegL},
			Base: op.base, Slots: []Slot{{Operand: 0, Shift: 0, Bits: 3}, slotN1(1)},
			Description: op.desc,
		}
	}
	return forms
}

// buildStackForms generates the push/pop family
func buildStackForms() []*Form {
	var forms []*Form

	for _, class := range allClasses {
		forms = append(forms,
			&Form{
				Mnemonic: "push", Shape: []Pattern{regPattern(class)},
				Base: 0xB000 | uint16(class)<<8, Slots: []Slot{slotN1(0)},
				Description: fmt.Sprintf("Push a %v register onto the stack", class),
			},
			&Form{
				Mnemonic: "pop", Shape: []Pattern{regPattern(class)},
				Base: 0xB400 | uint16(class)<<8, Slots: []Slot{slotN1(0)},
				Description: fmt.Sprintf("Pop the stack into a %v register", class),
			},
		)
	}

	return forms
}

func buildSystemForms() []*Form {
	return []*Form{
		{Mnemonic: "nop", Base: 0x0000, Description: "No operation"},
		{Mnemonic: "hlt", Base: 0x0001, Description: "Halt the CPU until the next interrupt"},
		{Mnemonic: "di", Base: 0x0002, Description: "Disable interrupts"},
		{Mnemonic: "ei", Base: 0x0003, Description: "Enable interrupts"},
	}
}

// Forms is the complete instruction table in documentation order
var Forms = buildTable()

var formsByMnemonic = buildMnemonicIndex(Forms)

// mnemonics whose first operand is an optional condition code; the
// assembler inserts NC when the source omits it
var conditionalMnemonics = map[string]bool{
	"jmp": true, "jpb": true, "call": true, "ret": true, "reti": true,
}

func buildTable() []*Form {
	var forms []*Form
	forms = append(forms, buildSystemForms()...)
	forms = append(forms, buildLoadStoreForms()...)
	forms = append(forms, buildControlForms()...)
	forms = append(forms, buildALUForms()...)
	forms = append(forms, buildUnaryForms()...)
	forms = append(forms, buildBitForms()...)
	forms = append(forms, buildStackForms()...)

	validateTable(forms)
	return forms
}

func buildMnemonicIndex(forms []*Form) map[string][]*Form {
	index := make(map[string][]*Form)
	for _, form := range forms {
		index[form.Mnemonic] = append(index[form.Mnemonic], form)
	}
	return index
}

// validateTable panics if two forms could decode the same opcode word or if
// a form repeats a (mnemonic, shape) pair. Table bugs are programmer
// errors, caught at package initialization.
func validateTable(forms []*Form) {
	for i, a := range forms {
		for _, b := range forms[i+1:] {
			if a.Mnemonic == b.Mnemonic && a.Matches(b.Shape) {
				panic(fmt.Sprintf("duplicate instruction table entry '%v'", a))
			}

			common := a.FixedMask() & b.FixedMask()
			if a.Base&common == b.Base&common {
				panic(fmt.Sprintf("ambiguous opcode patterns for '%v' and '%v'", a, b))
			}
		}
	}
}

// Lookup finds the unique form for a mnemonic and operand shape
func Lookup(mnemonic string, shape []Pattern) (*Form, error) {
	forms, known := formsByMnemonic[mnemonic]
	if !known {
		return nil, utils.MakeError(ErrUnknownMnemonic, "'%v'", mnemonic)
	}

	for _, form := range forms {
		if form.Matches(shape) {
			return form, nil
		}
	}

	return nil, utils.MakeError(ErrOperandShape, "'%v %v'; forms of %v: %v",
		mnemonic, ShapeString(shape), mnemonic,
		utils.FormatSlice(forms, "; "))
}

// IsMnemonic reports whether the name is an instruction mnemonic
func IsMnemonic(name string) bool {
	_, ok := formsByMnemonic[name]
	return ok
}

// TakesCondition reports whether a mnemonic's first operand is an optional
// condition code
func TakesCondition(mnemonic string) bool {
	return conditionalMnemonics[mnemonic]
}
