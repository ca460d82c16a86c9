package link

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/g10/pkg/g10/asm"
	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
)

func assemble(t *testing.T, name, source string) *obj.Object {
	object, err := asm.AssembleSource(name, source)
	require.NoError(t, err)
	return object
}

func TestCrossObjectCall(t *testing.T) {
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
	.extern function_b
main:
	call nc, function_b
	ret nc
`)
	moduleB := assemble(t, "b.s", `
	.org 0x2200
	.global function_b
function_b:
	nop
	ret nc
`)

	program, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.NoError(t, err)

	// The call site's address field now carries function_b's address
	code := program.Segments[0]
	assert.Equal(t, uint32(0x2000), code.LoadAddr)
	assert.Equal(t, []byte{0x00, 0x22, 0x00, 0x00}, code.Data[2:6])
}

func TestCircularReferences(t *testing.T) {
	// Two modules calling each other need no special handling
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
	.extern pong
main:
	call nc, pong
	ret nc
`)
	moduleB := assemble(t, "b.s", `
	.org 0x2100
	.global pong
	.extern main
pong:
	call nc, main
	ret nc
`)

	program, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.NoError(t, err)

	segA := program.Segments[0]
	segB := program.Segments[1]
	assert.Equal(t, []byte{0x00, 0x21, 0x00, 0x00}, segA.Data[2:6])
	assert.Equal(t, []byte{0x00, 0x20, 0x00, 0x00}, segB.Data[2:6])
}

func TestDuplicateGlobalRejection(t *testing.T) {
	moduleA := assemble(t, "first.s", `
	.org 0x2000
	.global main
main:
	nop
`)
	moduleB := assemble(t, "second.s", `
	.org 0x3000
	.global main
main:
	nop
`)

	_, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.ErrorIs(t, err, ErrDuplicateGlobal)
	// The error names both objects
	assert.Contains(t, err.Error(), "first.s")
	assert.Contains(t, err.Error(), "second.s")
}

func TestWeakOverride(t *testing.T) {
	weak := assemble(t, "weak.s", `
	.org 0x2000
	.global main
	.weak handler
main:
	nop
handler:
	ret nc
`)
	strong := assemble(t, "strong.s", `
	.org 0x3000
	.global handler
handler:
	ret nc
`)
	caller := assemble(t, "caller.s", `
	.org 0x4000
	.extern handler
	.global docall
docall:
	call nc, handler
`)

	program, err := Link([]*obj.Object{weak, strong, caller}, Options{})
	require.NoError(t, err)

	// The strong definition at 0x3000 supersedes the weak one
	require.Len(t, program.Segments, 3)
	assert.Equal(t, []byte{0x00, 0x30, 0x00, 0x00}, program.Segments[2].Data[2:6])
}

func TestUnresolvedExtern(t *testing.T) {
	module := assemble(t, "lonely.s", `
	.org 0x2000
	.global main
	.extern missing
main:
	call nc, missing
`)

	_, err := Link([]*obj.Object{module}, Options{})
	assert.ErrorIs(t, err, ErrUnresolvedExtern)
}

func TestEntryPointSelection(t *testing.T) {
	// The entry flag wins over the name conventions
	flagged := assemble(t, "flagged.s", `
	.org 0x2000
	.global main
	.entry begin
main:
	nop
begin:
	nop
`)
	program, err := Link([]*obj.Object{flagged}, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2002), program.Entry)

	// _start is the fallback when neither a flag nor main exists
	fallback := assemble(t, "fallback.s", `
	.org 0x2000
	.global _start
_start:
	nop
`)
	program, err = Link([]*obj.Object{fallback}, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2000), program.Entry)
	assert.NotZero(t, program.Flags&prog.FlagHasEntry)

	// No flag, no main, no _start is a hard error
	nameless := assemble(t, "nameless.s", `
	.org 0x2000
other:
	nop
`)
	_, err = Link([]*obj.Object{nameless}, Options{})
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestSegmentFormation(t *testing.T) {
	// Contiguous same-type sections merge into one segment, the RAM
	// reservation stays its own zero-fill segment
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
main:
	nop
	nop
`)
	moduleB := assemble(t, "b.s", `
	.org 0x2004
	.global helper
helper:
	nop
	.org 0x80000000
	.dword 16
`)

	program, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.NoError(t, err)

	require.Len(t, program.Segments, 2)

	code := &program.Segments[0]
	assert.Equal(t, prog.SegmentCode, code.Type)
	assert.Equal(t, uint32(0x2000), code.LoadAddr)
	assert.Equal(t, uint32(6), code.MemSize)
	assert.Equal(t, uint32(6), code.FileSize)

	bss := &program.Segments[1]
	assert.Equal(t, prog.SegmentBSS, bss.Type)
	assert.Equal(t, uint32(64), bss.MemSize)
	assert.Equal(t, uint32(0), bss.FileSize)
	assert.Empty(t, bss.Data)
}

func TestInterruptSegment(t *testing.T) {
	module := assemble(t, "vectors.s", `
	.org 0x1000
	.global main
vector0:
	jmp nc, main
	.org 0x2000
main:
	nop
`)

	program, err := Link([]*obj.Object{module}, Options{})
	require.NoError(t, err)

	require.Len(t, program.Segments, 2)
	assert.Equal(t, prog.SegmentInterrupt, program.Segments[0].Type)
	assert.Equal(t, prog.SegmentCode, program.Segments[1].Type)
}

func TestSegmentOverlapRejected(t *testing.T) {
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
main:
	nop
	nop
`)
	moduleB := assemble(t, "b.s", `
	.org 0x2002
	.global other
other:
	nop
`)

	_, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	assert.ErrorIs(t, err, prog.ErrSegmentOverlap)
}

func TestCrossObjectBranchRange(t *testing.T) {
	near := assemble(t, "near.s", `
	.org 0x2000
	.global main
	.extern target
main:
	jpb nc, target
`)
	inRange := assemble(t, "in-range.s", `
	.org 0x2100
	.global target
target:
	nop
`)

	program, err := Link([]*obj.Object{near, inRange}, Options{})
	require.NoError(t, err)

	// rel16: little-endian-decoding the field as signed and adding
	// (site + 2) yields the target address
	site := program.Segments[0].Data[2:4]
	offset := int16(binary.LittleEndian.Uint16(site))
	assert.Equal(t, uint32(0x2100), uint32(int64(0x2002)+2+int64(offset)))

	// A target beyond the signed 16 bit range is a hard link error
	farAway := assemble(t, "far.s", `
	.org 0x20000
	.global target
target:
	nop
`)
	_, err = Link([]*obj.Object{near, farAway}, Options{})
	assert.ErrorIs(t, err, ErrRelocRange)
}

func TestQuick16Relocation(t *testing.T) {
	user := assemble(t, "user.s", `
	.org 0x2000
	.global main
	.extern qbuf
main:
	ldq d1, [qbuf]
`)
	provider := assemble(t, "provider.s", `
	.org 0xFFFF0020
	.global qbuf
qbuf:
	.byte 4
`)

	program, err := Link([]*obj.Object{user, provider}, Options{})
	require.NoError(t, err)

	// quick16 writes (V - window base)
	assert.Equal(t, []byte{0x20, 0x00}, program.Segments[0].Data[2:4])
}

func TestAbs32PatchProperty(t *testing.T) {
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
	.extern table
main:
	ld d0, [table + 8]
`)
	moduleB := assemble(t, "b.s", `
	.org 0x4000
	.global table
table:
	.dword 1, 2, 3
`)

	program, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.NoError(t, err)

	// The 4 bytes at the patch site little-endian-decode to the resolved
	// symbol value plus addend
	site := program.Segments[0].Data[2:6]
	assert.Equal(t, uint32(0x4008), binary.LittleEndian.Uint32(site))
}

func TestSegmentNonOverlapProperty(t *testing.T) {
	module := assemble(t, "m.s", `
	.org 0x1000
	jmp nc, main
	.org 0x2000
	.global main
main:
	nop
	.org 0x3000
	.byte 1, 2, 3
	.org 0x80000000
	.word 32
`)

	program, err := Link([]*obj.Object{module}, Options{})
	require.NoError(t, err)

	for i := range program.Segments {
		for j := range program.Segments[:i] {
			a, b := &program.Segments[i], &program.Segments[j]
			disjoint := a.End() <= b.LoadAddr || b.End() <= a.LoadAddr
			assert.True(t, disjoint, "segments %v and %v overlap", a, b)
		}
	}
}

func TestNoInput(t *testing.T) {
	_, err := Link(nil, Options{})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestInputObjectsNotMutated(t *testing.T) {
	moduleA := assemble(t, "a.s", `
	.org 0x2000
	.global main
	.extern function_b
main:
	call nc, function_b
`)
	moduleB := assemble(t, "b.s", `
	.org 0x2200
	.global function_b
function_b:
	nop
`)

	before := make([]byte, len(moduleA.Sections[0].Data))
	copy(before, moduleA.Sections[0].Data)

	_, err := Link([]*obj.Object{moduleA, moduleB}, Options{})
	require.NoError(t, err)

	// Patching happens on the linker's working copies
	assert.Equal(t, before, moduleA.Sections[0].Data)
}
