package obj

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObject() *Object {
	return &Object{
		Sections: []Section{
			{
				Name:        "org@00002000",
				VirtualAddr: 0x2000,
				Size:        6,
				Type:        SectionCode,
				Flags:       DefaultFlags(SectionCode),
				Data:        []byte{0x00, 0x30, 0xEF, 0xBE, 0xAD, 0xDE},
			},
			{
				Name:        "org@80000000",
				VirtualAddr: RAMBase,
				Size:        64,
				Type:        SectionBSS,
				Flags:       DefaultFlags(SectionBSS),
			},
		},
		Symbols: []Symbol{
			{Name: "main.s", SectionIndex: IndexAbs, Type: SymbolFile, Binding: BindingLocal, Flags: SymbolFlagAbsolute},
			{Name: "main", Value: 0x2000, SectionIndex: 0, Type: SymbolLabel, Binding: BindingGlobal},
			{Name: "buffer", Value: RAMBase, SectionIndex: 1, Type: SymbolLabel, Binding: BindingLocal},
			{Name: "helper", SectionIndex: IndexUndef, Binding: BindingExtern},
		},
		Relocations: []Relocation{
			{Offset: 2, SectionIndex: 0, SymbolIndex: 3, Type: RelocAbs32},
		},
	}
}

func saveLoad(t *testing.T, o *Object) *Object {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, o))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	return loaded
}

func TestRoundTrip(t *testing.T) {
	original := sampleObject()
	loaded := saveLoad(t, original)

	assert.Equal(t, original.Sections, loaded.Sections)
	assert.Equal(t, original.Symbols, loaded.Symbols)
	assert.Equal(t, original.Relocations, loaded.Relocations)
}

func TestBSSDataAbsentFromFile(t *testing.T) {
	withBSS := sampleObject()
	withoutBSS := sampleObject()
	withoutBSS.Sections = withoutBSS.Sections[:1]
	withoutBSS.Symbols[2].SectionIndex = IndexAbs // detach from the dropped section

	var a, b bytes.Buffer
	require.NoError(t, Save(&a, withBSS))
	require.NoError(t, Save(&b, withoutBSS))

	// The 64 byte reservation adds one section header and its name string,
	// but none of the reserved bytes
	nameBytes := len("org@80000000") + 1
	assert.Equal(t, a.Len(), b.Len()+sectionHeaderSize+nameBytes)

	loaded := saveLoad(t, withBSS)
	assert.Nil(t, loaded.Sections[1].Data)
	assert.Equal(t, uint32(64), loaded.Sections[1].Size)
}

func TestRejectBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleObject()))

	data := buf.Bytes()
	data[0] ^= 0xFF

	_, err := Load(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestRejectBadVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleObject()))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[4:], 0x7F000000)

	_, err := Load(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestRejectTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleObject()))

	_, err := Load(bytes.NewReader(buf.Bytes()[:32]))
	assert.ErrorIs(t, err, ErrTruncated)

	// Cut into the relocation table
	_, err = Load(bytes.NewReader(buf.Bytes()[:buf.Len()-8]))
	assert.ErrorIs(t, err, ErrBounds)
}

func TestRejectRegionViolations(t *testing.T) {
	// bss below the RAM base
	o := sampleObject()
	o.Sections[1].VirtualAddr = 0x4000
	assert.ErrorIs(t, o.Validate(), ErrRegion)

	// code above the RAM base
	o = sampleObject()
	o.Sections[0].VirtualAddr = RAMBase
	assert.ErrorIs(t, o.Validate(), ErrRegion)

	// code crossing its region boundary
	o = sampleObject()
	o.Sections[0].VirtualAddr = ROMEnd - 2
	assert.ErrorIs(t, o.Validate(), ErrRegion)
}

func TestRejectSectionOverlap(t *testing.T) {
	o := sampleObject()
	o.Sections = append(o.Sections, Section{
		Name:        "overlap",
		VirtualAddr: 0x2004,
		Size:        4,
		Type:        SectionData,
		Data:        make([]byte, 4),
	})

	assert.ErrorIs(t, o.Validate(), ErrSectionOverlap)
}

func TestRejectBadSymbols(t *testing.T) {
	// extern with a section index
	o := sampleObject()
	o.Symbols[3].SectionIndex = 0
	assert.ErrorIs(t, o.Validate(), ErrBadSymbol)

	// global with no section
	o = sampleObject()
	o.Symbols[1].SectionIndex = IndexUndef
	assert.ErrorIs(t, o.Validate(), ErrBadSymbol)

	// section index out of range
	o = sampleObject()
	o.Symbols[1].SectionIndex = 7
	assert.ErrorIs(t, o.Validate(), ErrBadSymbol)
}

func TestRejectBadRelocations(t *testing.T) {
	// offset past the end of the section
	o := sampleObject()
	o.Relocations[0].Offset = 4 // 4 + width 4 > size 6
	assert.ErrorIs(t, o.Validate(), ErrBadRelocation)

	// symbol index out of range
	o = sampleObject()
	o.Relocations[0].SymbolIndex = 9
	assert.ErrorIs(t, o.Validate(), ErrBadRelocation)

	// patching a bss section
	o = sampleObject()
	o.Relocations[0].SectionIndex = 1
	o.Relocations[0].Offset = 0
	assert.ErrorIs(t, o.Validate(), ErrBadRelocation)
}

func TestAddendNarrowing(t *testing.T) {
	o := sampleObject()
	o.Relocations[0].Type = RelocAbs16
	o.Relocations[0].Addend = -4

	loaded := saveLoad(t, o)
	// The 16 bit field sign-extends on read
	assert.Equal(t, int32(-4), loaded.Relocations[0].Addend)
}

func TestRegionProperty(t *testing.T) {
	// Every emitted byte of every section lies in the region allowed for
	// its section type
	o := sampleObject()
	for i := range o.Sections {
		s := &o.Sections[i]
		for off := uint32(0); off < s.Size; off++ {
			addr := s.VirtualAddr + off
			region := RegionOf(addr)
			if s.Type == SectionBSS {
				assert.GreaterOrEqual(t, addr, RAMBase)
			} else {
				assert.Contains(t, []Region{RegionMetadata, RegionInterrupt, RegionROM}, region)
			}
		}
	}
}
