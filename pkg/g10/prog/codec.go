package prog

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

// Program image container layout. All multi-byte fields are little-endian.
const (
	// "G10P"
	Magic uint32 = 0x47313050

	// Container version, 0xMMmmPPPP
	CurrentVersion uint32 = 0x01000000

	headerSize        = 64
	segmentHeaderSize = 16
	infoHeaderSize    = 24
)

// Save serializes a program image
func Save(w io.Writer, p *Program) error {
	if err := p.Validate(); err != nil {
		return err
	}

	segmentsOff := uint32(headerSize)
	dataOff := segmentsOff + uint32(len(p.Segments))*segmentHeaderSize

	dataSize := uint32(0)
	for i := range p.Segments {
		dataSize += p.Segments[i].FileSize
	}

	var infoBlob []byte
	infoOff := uint32(0)
	if p.Info != nil {
		infoBlob = encodeInfo(p.Info)
		infoOff = dataOff + dataSize
	}

	buf := make([]byte, 0, dataOff+dataSize+uint32(len(infoBlob)))

	flags := p.Flags
	if p.Info != nil {
		flags |= FlagHasInfo
	}

	buf = binary.LittleEndian.AppendUint32(buf, Magic)
	buf = binary.LittleEndian.AppendUint32(buf, CurrentVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(flags))
	buf = binary.LittleEndian.AppendUint32(buf, p.Entry)
	buf = binary.LittleEndian.AppendUint32(buf, p.StackInit)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Segments)))
	buf = binary.LittleEndian.AppendUint32(buf, infoOff)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(infoBlob)))
	buf = append(buf, make([]byte, 32)...)

	for i := range p.Segments {
		s := &p.Segments[i]
		buf = binary.LittleEndian.AppendUint32(buf, s.LoadAddr)
		buf = binary.LittleEndian.AppendUint32(buf, s.MemSize)
		buf = binary.LittleEndian.AppendUint32(buf, s.FileSize)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s.Type))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s.Flags))
	}

	for i := range p.Segments {
		buf = append(buf, p.Segments[i].Data...)
	}

	buf = append(buf, infoBlob...)

	_, err := w.Write(buf)
	return err
}

// encodeInfo serializes the program info section: a sub-header of string
// offsets and build metadata followed by a string pool. Offsets are
// relative to the start of the info section.
func encodeInfo(info *Info) []byte {
	strings := obj.NewStringTable()

	// Reserve the offsets before the pool lands after the sub-header
	nameOff := strings.Add(info.Name)
	versionOff := strings.Add(info.Version)
	authorOff := strings.Add(info.Author)
	descOff := strings.Add(info.Description)

	pool := strings.Bytes()

	blob := make([]byte, 0, infoHeaderSize+len(pool))
	blob = binary.LittleEndian.AppendUint32(blob, infoHeaderSize+nameOff)
	blob = binary.LittleEndian.AppendUint32(blob, infoHeaderSize+versionOff)
	blob = binary.LittleEndian.AppendUint32(blob, infoHeaderSize+authorOff)
	blob = binary.LittleEndian.AppendUint32(blob, infoHeaderSize+descOff)
	blob = binary.LittleEndian.AppendUint32(blob, info.BuildDate)
	blob = binary.LittleEndian.AppendUint32(blob, info.Checksum)

	return append(blob, pool...)
}

// Load deserializes and validates a program image
func Load(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) < headerSize {
		return nil, utils.MakeError(ErrTruncated, "%v bytes, header needs %v", len(data), headerSize)
	}

	magic := binary.LittleEndian.Uint32(data[0:])
	version := binary.LittleEndian.Uint32(data[4:])

	if magic != Magic {
		return nil, utils.MakeError(ErrBadMagic, "magic %v", utils.FormatUintHex(uint64(magic), 8))
	}
	if obj.VersionMajor(version) != obj.VersionMajor(CurrentVersion) {
		return nil, utils.MakeError(ErrBadVersion, "file version %v, supported major version %v",
			utils.FormatUintHex(uint64(version), 8), obj.VersionMajor(CurrentVersion))
	}

	p := &Program{
		Flags:     Flags(binary.LittleEndian.Uint32(data[8:])),
		Entry:     binary.LittleEndian.Uint32(data[12:]),
		StackInit: binary.LittleEndian.Uint32(data[16:]),
	}
	segmentCount := binary.LittleEndian.Uint32(data[20:])
	infoOff := binary.LittleEndian.Uint32(data[24:])
	infoSize := binary.LittleEndian.Uint32(data[28:])

	segmentsEnd := uint64(headerSize) + uint64(segmentCount)*segmentHeaderSize
	if segmentsEnd > uint64(len(data)) {
		return nil, utils.MakeError(ErrBounds, "segment table (%v entries) exceeds file size %v",
			segmentCount, len(data))
	}

	dataOff := uint64(segmentsEnd)
	p.Segments = make([]Segment, segmentCount)
	for i := range p.Segments {
		off := headerSize + i*segmentHeaderSize
		s := &p.Segments[i]

		s.LoadAddr = binary.LittleEndian.Uint32(data[off:])
		s.MemSize = binary.LittleEndian.Uint32(data[off+4:])
		s.FileSize = binary.LittleEndian.Uint32(data[off+8:])
		s.Type = SegmentType(binary.LittleEndian.Uint16(data[off+12:]))
		s.Flags = SegmentFlags(binary.LittleEndian.Uint16(data[off+14:]))

		end := dataOff + uint64(s.FileSize)
		if end > uint64(len(data)) {
			return nil, utils.MakeError(ErrBounds, "segment %v data exceeds file size", i)
		}
		s.Data = make([]byte, s.FileSize)
		copy(s.Data, data[dataOff:end])
		dataOff = end
	}

	if p.Flags&FlagHasInfo != 0 && infoSize > 0 {
		if uint64(infoOff)+uint64(infoSize) > uint64(len(data)) {
			return nil, utils.MakeError(ErrBounds, "info section exceeds file size")
		}
		info, err := decodeInfo(data[infoOff : infoOff+infoSize])
		if err != nil {
			return nil, err
		}
		p.Info = info
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func decodeInfo(blob []byte) (*Info, error) {
	if len(blob) < infoHeaderSize {
		return nil, utils.MakeError(ErrTruncated, "info section has %v bytes, sub-header needs %v",
			len(blob), infoHeaderSize)
	}

	strings := obj.ReadStringTable(blob[infoHeaderSize:])
	lookup := func(off uint32) (string, error) {
		if off < infoHeaderSize {
			return "", utils.MakeError(ErrBounds, "info string offset %v inside the sub-header", off)
		}
		return strings.Lookup(off - infoHeaderSize)
	}

	info := &Info{
		BuildDate: binary.LittleEndian.Uint32(blob[16:]),
		Checksum:  binary.LittleEndian.Uint32(blob[20:]),
	}

	var err error
	if info.Name, err = lookup(binary.LittleEndian.Uint32(blob[0:])); err != nil {
		return nil, err
	}
	if info.Version, err = lookup(binary.LittleEndian.Uint32(blob[4:])); err != nil {
		return nil, err
	}
	if info.Author, err = lookup(binary.LittleEndian.Uint32(blob[8:])); err != nil {
		return nil, err
	}
	if info.Description, err = lookup(binary.LittleEndian.Uint32(blob[12:])); err != nil {
		return nil, err
	}

	return info, nil
}

// ReadFile loads a program image from a path
func ReadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, utils.MakeError(err, "in %v", path)
	}
	return p, nil
}

// WriteFile saves a program image to a path
func WriteFile(path string, p *Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Save(f, p); err != nil {
		f.Close()
		return utils.MakeError(err, "writing %v", path)
	}

	return f.Close()
}
