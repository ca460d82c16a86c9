package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/g10/pkg/g10/expr"
	"github.com/Manu343726/g10/pkg/g10/isa"
	"github.com/Manu343726/g10/pkg/g10/obj"
)

func assemble(t *testing.T, source string) *obj.Object {
	object, err := AssembleSource("test.s", source)
	require.NoError(t, err)
	return object
}

func TestNopRun(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
	nop
	nop
	nop
	nop
	nop
	nop
	nop
	nop
`)

	require.Len(t, object.Sections, 1)
	section := &object.Sections[0]

	assert.Equal(t, uint32(0x2000), section.VirtualAddr)
	assert.Equal(t, obj.SectionCode, section.Type)
	assert.Equal(t, uint32(16), section.Size)
	assert.Equal(t, make([]byte, 16), section.Data)
}

func TestImmediateLoad(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
	ld d0, 0xDEADBEEF
`)

	assert.Equal(t, []byte{0x00, 0x30, 0xEF, 0xBE, 0xAD, 0xDE}, object.Sections[0].Data)
}

func TestForwardBranch(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
start:
	jpb nc, target
	nop
target:
	nop
`)

	section := &object.Sections[0]
	// jpb nc, +2 -> opcode 0x4200, offset little-endian
	assert.Equal(t, []byte{0x00, 0x42, 0x02, 0x00}, section.Data[:4])

	start := object.SymbolByName("start")
	require.NotNil(t, start)
	assert.Equal(t, uint32(0x2000), start.Value)

	target := object.SymbolByName("target")
	require.NotNil(t, target)
	assert.Equal(t, uint32(0x2006), target.Value)
}

func TestBackwardBranch(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
loop:
	nop
	jpb zc, loop
`)

	// Site at 0x2002, next instruction at 0x2006, target 0x2000 -> -6
	assert.Equal(t, []byte{0x20, 0x42, 0xFA, 0xFF}, object.Sections[0].Data[2:6])
}

func TestDataDirectives(t *testing.T) {
	object := assemble(t, `
	.org 0x3000
	.byte 1, 2, 0xFF
	.word 0x1234
	.dword 0x12345678
`)

	assert.Equal(t, []byte{
		0x01, 0x02, 0xFF,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
	}, object.Sections[0].Data)
	assert.Equal(t, obj.SectionData, object.Sections[0].Type)
}

func TestBSSReservation(t *testing.T) {
	object := assemble(t, `
	.org 0x80000000
buffer:
	.byte 16
	.word 4
	.dword 2
`)

	section := &object.Sections[0]
	assert.Equal(t, obj.SectionBSS, section.Type)
	// byte 16 -> 16, word 4 -> 8, dword 2 -> 8
	assert.Equal(t, uint32(32), section.Size)
	assert.Nil(t, section.Data)

	buffer := object.SymbolByName("buffer")
	require.NotNil(t, buffer)
	assert.Equal(t, obj.RAMBase, buffer.Value)
}

func TestMultipleSections(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
	nop
	.org 0x3000
	.byte 1
	.org 0x2000
	nop
`)

	// Repeating a base switches back and keeps appending
	require.Len(t, object.Sections, 2)
	assert.Equal(t, uint32(4), object.Sections[0].Size)
	assert.Equal(t, uint32(1), object.Sections[1].Size)
}

func TestGlobalExternBindings(t *testing.T) {
	object := assemble(t, `
	.file "unit.s"
	.org 0x2000
	.global main
	.extern helper
	.weak fallback
main:
	call nc, helper
fallback:
	ret nc
`)

	main := object.SymbolByName("main")
	require.NotNil(t, main)
	assert.Equal(t, obj.BindingGlobal, main.Binding)

	fallback := object.SymbolByName("fallback")
	require.NotNil(t, fallback)
	assert.Equal(t, obj.BindingWeak, fallback.Binding)

	helper := object.SymbolByName("helper")
	require.NotNil(t, helper)
	assert.Equal(t, obj.BindingExtern, helper.Binding)
	assert.False(t, helper.Defined())

	assert.Equal(t, "unit.s", object.Name())
}

func TestExternCallRelocation(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
	.global main
	.extern function_b
main:
	call nc, function_b
`)

	section := &object.Sections[0]
	// Opcode 0x4300, zero-filled address field pending link
	assert.Equal(t, []byte{0x00, 0x43, 0x00, 0x00, 0x00, 0x00}, section.Data)

	require.Len(t, object.Relocations, 1)
	reloc := &object.Relocations[0]
	assert.Equal(t, obj.RelocAbs32, reloc.Type)
	assert.Equal(t, uint32(2), reloc.Offset)
	assert.Equal(t, "function_b", object.Symbols[reloc.SymbolIndex].Name)
}

func TestRelocationAddends(t *testing.T) {
	object := assemble(t, `
	.org 0x3000
	.extern table
	.dword table + 8
	.word table + 4
`)

	require.Len(t, object.Relocations, 2)

	// The dword carries its addend in the patch-site bytes
	assert.Equal(t, obj.RelocAbs32, object.Relocations[0].Type)
	assert.Equal(t, int32(0), object.Relocations[0].Addend)
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00}, object.Sections[0].Data[:4])

	// The word carries it in the record's addend field
	assert.Equal(t, obj.RelocAbs16, object.Relocations[1].Type)
	assert.Equal(t, int32(4), object.Relocations[1].Addend)
	assert.Equal(t, []byte{0x00, 0x00}, object.Sections[0].Data[4:6])
}

func TestBranchRangeBoundaries(t *testing.T) {
	// +0x7FFF and -0x8000 encode
	assemble(t, `
	.org 0x10000
	jpb nc, 0x18003
`)
	assemble(t, `
	.org 0x10000
	jpb nc, 0x8004
`)

	// -0x8001 is rejected
	_, err := AssembleSource("test.s", `
	.org 0x10000
	jpb nc, 0x8003
`)
	assert.ErrorIs(t, err, isa.ErrBranchRange)
}

func TestQuickAndPortWindows(t *testing.T) {
	object := assemble(t, `
	.org 0x80000000
qvar:
	.byte 1
	.org 0x2000
	ldq d1, [0xFFFF0010]
	ldp l2, [0xFFFFFF40]
`)

	code := &object.Sections[1]
	assert.Equal(t, []byte{0x10, 0x33, 0x10, 0x00}, code.Data[:4])
	assert.Equal(t, []byte{0x20, 0x15, 0x40}, code.Data[4:7])
}

func TestAccumulatorViolation(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x2000
	add l1, l2
`)
	assert.ErrorIs(t, err, isa.ErrAccumulatorViolation)
}

func TestUnknownMnemonic(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x2000
	frobnicate l1
`)
	assert.ErrorIs(t, err, isa.ErrUnknownMnemonic)
}

func TestStatementsBeforeOrg(t *testing.T) {
	_, err := AssembleSource("test.s", "nop\n")
	assert.ErrorIs(t, err, ErrNoActiveSection)
}

func TestRedefinitionRules(t *testing.T) {
	// Redefining a local label overwrites
	object := assemble(t, `
	.org 0x2000
again:
	nop
again:
	nop
`)
	again := object.SymbolByName("again")
	require.NotNil(t, again)
	assert.Equal(t, uint32(0x2002), again.Value)

	// Redefining a global is an error
	_, err := AssembleSource("test.s", `
	.org 0x2000
	.global twice
twice:
	nop
twice:
	nop
`)
	assert.ErrorIs(t, err, ErrRedefinition)
}

func TestBindingErrors(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x2000
	.global missing
	nop
`)
	assert.ErrorIs(t, err, ErrUndefinedGlobal)

	_, err = AssembleSource("test.s", `
	.org 0x2000
	.extern here
here:
	nop
`)
	assert.ErrorIs(t, err, ErrExternDefined)

	_, err = AssembleSource("test.s", `
	.global both
	.extern both
`)
	assert.ErrorIs(t, err, ErrBindingConflict)
}

func TestUndeclaredSymbolReference(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x2000
	call nc, nowhere
`)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestInstructionsInBSS(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x80000000
	nop
`)
	assert.ErrorIs(t, err, ErrBSSContent)
}

func TestEntryDirective(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
	.entry begin
begin:
	nop
`)

	begin := object.SymbolByName("begin")
	require.NotNil(t, begin)
	assert.NotZero(t, begin.Flags&obj.SymbolFlagEntry)
}

func TestExpressionOperands(t *testing.T) {
	object := assemble(t, `
	.org 0x2000
base:
	nop
	ld d0, base + 2 ** 4
`)

	// base + 16 = 0x2010
	assert.Equal(t, []byte{0x00, 0x30, 0x10, 0x20, 0x00, 0x00}, object.Sections[0].Data[2:8])
}

func TestDivisionByZeroInOperand(t *testing.T) {
	_, err := AssembleSource("test.s", `
	.org 0x2000
	ld d0, 1 / 0
`)
	assert.ErrorIs(t, err, expr.ErrDivisionByZero)
}
