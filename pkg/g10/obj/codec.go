package obj

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/Manu343726/g10/pkg/utils"
)

// Object file container layout. All multi-byte fields are little-endian.
const (
	// "G10O"
	Magic uint32 = 0x4731304F

	// Container version, 0xMMmmPPPP
	CurrentVersion uint32 = 0x01000000

	headerSize        = 64
	sectionHeaderSize = 16
	symbolEntrySize   = 16
	relocEntrySize    = 16
)

// VersionMajor extracts the major component of a container version word
func VersionMajor(version uint32) uint32 {
	return version >> 24
}

type header struct {
	magic        uint32
	version      uint32
	flags        uint32
	sectionCount uint32
	symbolOff    uint32
	symbolCount  uint32
	stringOff    uint32
	stringSize   uint32
	relocOff     uint32
	relocCount   uint32
	// 24 reserved bytes follow
}

// Save serializes the object into its binary container form
func Save(w io.Writer, o *Object) error {
	if err := o.Validate(); err != nil {
		return err
	}

	strings := NewStringTable()
	for i := range o.Sections {
		strings.Add(o.Sections[i].Name)
	}
	for i := range o.Symbols {
		strings.Add(o.Symbols[i].Name)
	}
	stringData := strings.Bytes()

	// Layout: header, section headers, section data (load only), symbol
	// table, string table, relocation table
	dataOff := uint32(headerSize + sectionHeaderSize*len(o.Sections))
	dataSize := uint32(0)
	for i := range o.Sections {
		if o.Sections[i].Type != SectionBSS {
			dataSize += o.Sections[i].Size
		}
	}

	hdr := header{
		magic:        Magic,
		version:      CurrentVersion,
		sectionCount: uint32(len(o.Sections)),
		symbolOff:    dataOff + dataSize,
		symbolCount:  uint32(len(o.Symbols)),
		relocCount:   uint32(len(o.Relocations)),
	}
	hdr.stringOff = hdr.symbolOff + uint32(len(o.Symbols)*symbolEntrySize)
	hdr.stringSize = uint32(len(stringData))
	hdr.relocOff = hdr.stringOff + hdr.stringSize

	buf := make([]byte, 0, hdr.relocOff+uint32(len(o.Relocations)*relocEntrySize))
	buf = appendHeader(buf, &hdr)

	for i := range o.Sections {
		s := &o.Sections[i]
		buf = binary.LittleEndian.AppendUint32(buf, strings.Add(s.Name))
		buf = binary.LittleEndian.AppendUint32(buf, s.VirtualAddr)
		buf = binary.LittleEndian.AppendUint32(buf, s.Size)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s.Type))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s.Flags))
	}

	for i := range o.Sections {
		if o.Sections[i].Type != SectionBSS {
			buf = append(buf, o.Sections[i].Data...)
		}
	}

	for i := range o.Symbols {
		s := &o.Symbols[i]
		buf = binary.LittleEndian.AppendUint32(buf, strings.Add(s.Name))
		buf = binary.LittleEndian.AppendUint32(buf, s.Value)
		buf = binary.LittleEndian.AppendUint32(buf, s.SectionIndex)
		buf = append(buf, uint8(s.Type), uint8(s.Binding))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s.Flags))
	}

	buf = append(buf, stringData...)

	for i := range o.Relocations {
		r := &o.Relocations[i]
		buf = binary.LittleEndian.AppendUint32(buf, r.Offset)
		buf = binary.LittleEndian.AppendUint32(buf, r.SymbolIndex)
		buf = binary.LittleEndian.AppendUint32(buf, r.SectionIndex)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(r.Type))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(uint32(r.Addend)&0xFFFF))
	}

	_, err := w.Write(buf)
	return err
}

func appendHeader(buf []byte, hdr *header) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, hdr.magic)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.version)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.flags)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.sectionCount)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.symbolOff)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.symbolCount)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.stringOff)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.stringSize)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.relocOff)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.relocCount)
	return append(buf, make([]byte, 24)...)
}

// Load deserializes and validates an object container
func Load(r io.Reader) (*Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) < headerSize {
		return nil, utils.MakeError(ErrTruncated, "%v bytes, header needs %v", len(data), headerSize)
	}

	hdr := header{
		magic:        binary.LittleEndian.Uint32(data[0:]),
		version:      binary.LittleEndian.Uint32(data[4:]),
		flags:        binary.LittleEndian.Uint32(data[8:]),
		sectionCount: binary.LittleEndian.Uint32(data[12:]),
		symbolOff:    binary.LittleEndian.Uint32(data[16:]),
		symbolCount:  binary.LittleEndian.Uint32(data[20:]),
		stringOff:    binary.LittleEndian.Uint32(data[24:]),
		stringSize:   binary.LittleEndian.Uint32(data[28:]),
		relocOff:     binary.LittleEndian.Uint32(data[32:]),
		relocCount:   binary.LittleEndian.Uint32(data[36:]),
	}

	if hdr.magic != Magic {
		return nil, utils.MakeError(ErrBadMagic, "magic %v", utils.FormatUintHex(uint64(hdr.magic), 8))
	}
	if VersionMajor(hdr.version) != VersionMajor(CurrentVersion) {
		return nil, utils.MakeError(ErrBadVersion, "file version %v, supported major version %v",
			utils.FormatUintHex(uint64(hdr.version), 8), VersionMajor(CurrentVersion))
	}

	if err := checkTableBounds(len(data), &hdr); err != nil {
		return nil, err
	}

	strings := ReadStringTable(data[hdr.stringOff : hdr.stringOff+hdr.stringSize])

	o := &Object{}

	// Section headers, then their concatenated data
	dataOff := uint32(headerSize) + hdr.sectionCount*sectionHeaderSize
	o.Sections = make([]Section, hdr.sectionCount)
	for i := range o.Sections {
		off := headerSize + i*sectionHeaderSize
		s := &o.Sections[i]

		nameOff := binary.LittleEndian.Uint32(data[off:])
		s.VirtualAddr = binary.LittleEndian.Uint32(data[off+4:])
		s.Size = binary.LittleEndian.Uint32(data[off+8:])
		s.Type = SectionType(binary.LittleEndian.Uint16(data[off+12:]))
		s.Flags = SectionFlags(binary.LittleEndian.Uint16(data[off+14:]))

		if s.Name, err = strings.Lookup(nameOff); err != nil {
			return nil, utils.MakeError(err, "section %v name", i)
		}

		if s.Type != SectionBSS {
			end := uint64(dataOff) + uint64(s.Size)
			if end > uint64(hdr.symbolOff) || end > uint64(len(data)) {
				return nil, utils.MakeError(ErrBounds, "section '%v' data exceeds its region of the file", s.Name)
			}
			s.Data = make([]byte, s.Size)
			copy(s.Data, data[dataOff:end])
			dataOff = uint32(end)
		}
	}

	o.Symbols = make([]Symbol, hdr.symbolCount)
	for i := range o.Symbols {
		off := hdr.symbolOff + uint32(i)*symbolEntrySize
		s := &o.Symbols[i]

		nameOff := binary.LittleEndian.Uint32(data[off:])
		s.Value = binary.LittleEndian.Uint32(data[off+4:])
		s.SectionIndex = binary.LittleEndian.Uint32(data[off+8:])
		s.Type = SymbolType(data[off+12])
		s.Binding = SymbolBinding(data[off+13])
		s.Flags = SymbolFlags(binary.LittleEndian.Uint16(data[off+14:]))

		if s.Name, err = strings.Lookup(nameOff); err != nil {
			return nil, utils.MakeError(err, "symbol %v name", i)
		}
	}

	o.Relocations = make([]Relocation, hdr.relocCount)
	for i := range o.Relocations {
		off := hdr.relocOff + uint32(i)*relocEntrySize
		r := &o.Relocations[i]

		r.Offset = binary.LittleEndian.Uint32(data[off:])
		r.SymbolIndex = binary.LittleEndian.Uint32(data[off+4:])
		r.SectionIndex = binary.LittleEndian.Uint32(data[off+8:])
		r.Type = RelocType(binary.LittleEndian.Uint16(data[off+12:]))
		// The 16 bit addend field is sign-extended on read
		r.Addend = int32(int16(binary.LittleEndian.Uint16(data[off+14:])))
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return o, nil
}

func checkTableBounds(fileSize int, hdr *header) error {
	size := uint64(fileSize)

	tables := []struct {
		name  string
		off   uint32
		bytes uint64
	}{
		{"section header table", headerSize, uint64(hdr.sectionCount) * sectionHeaderSize},
		{"symbol table", hdr.symbolOff, uint64(hdr.symbolCount) * symbolEntrySize},
		{"string table", hdr.stringOff, uint64(hdr.stringSize)},
		{"relocation table", hdr.relocOff, uint64(hdr.relocCount) * relocEntrySize},
	}

	for _, t := range tables {
		if uint64(t.off)+t.bytes > size {
			return utils.MakeError(ErrBounds, "%v at %v (%v bytes) exceeds file size %v",
				t.name, t.off, t.bytes, fileSize)
		}
	}

	return nil
}

// ReadFile loads an object from a path
func ReadFile(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	o, err := Load(f)
	if err != nil {
		return nil, utils.MakeError(err, "in %v", path)
	}

	o.Path = path
	return o, nil
}

// WriteFile saves an object to a path
func WriteFile(path string, o *Object) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Save(f, o); err != nil {
		f.Close()
		return utils.MakeError(err, "writing %v", path)
	}

	return f.Close()
}
