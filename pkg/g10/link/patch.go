package link

import (
	"encoding/binary"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

// applyRelocations patches every relocation site in the linker's working
// copies. The addend comes from the record for narrow fields and from the
// patch-site initial bytes for 4 byte fields; the byte pattern written
// depends on the relocation kind.
func (l *linker) applyRelocations() error {
	for objectIndex, object := range l.objects {
		for i := range object.Relocations {
			reloc := &object.Relocations[i]

			if err := l.applyRelocation(objectIndex, object, reloc); err != nil {
				return utils.MakeError(err, "in %v", object.Name())
			}
		}
	}
	return nil
}

func (l *linker) applyRelocation(objectIndex int, object *obj.Object, reloc *obj.Relocation) error {
	section := l.byOrigin[[2]uint32{uint32(objectIndex), reloc.SectionIndex}]
	site := section.data[reloc.Offset : reloc.Offset+reloc.Type.Width()]

	target, err := l.resolveTarget(object, reloc)
	if err != nil {
		return err
	}

	var addend int64
	if reloc.Type.WideAddend() {
		addend = int64(int32(binary.LittleEndian.Uint32(site)))
	} else {
		addend = int64(reloc.Addend)
	}

	// V is the resolved value, P the absolute address of the patch site
	value := uint32(int64(target) + addend)
	siteAddr := section.base + reloc.Offset

	switch reloc.Type {
	case obj.RelocAbs32:
		binary.LittleEndian.PutUint32(site, value)

	case obj.RelocAbs16:
		binary.LittleEndian.PutUint16(site, uint16(value))

	case obj.RelocAbs8:
		site[0] = byte(value)

	case obj.RelocRel32:
		offset := int64(value) - (int64(siteAddr) + 4)
		if offset < -0x80000000 || offset > 0x7FFFFFFF {
			return utils.MakeError(ErrRelocRange, "%v: target 0x%08X is %v bytes from the site", reloc, value, offset)
		}
		binary.LittleEndian.PutUint32(site, uint32(offset))

	case obj.RelocRel16:
		offset := int64(value) - (int64(siteAddr) + 2)
		if offset < -0x8000 || offset > 0x7FFF {
			return utils.MakeError(ErrRelocRange, "%v: target 0x%08X is %v bytes from the site", reloc, value, offset)
		}
		binary.LittleEndian.PutUint16(site, uint16(offset))

	case obj.RelocRel8:
		offset := int64(value) - (int64(siteAddr) + 1)
		if offset < -0x80 || offset > 0x7F {
			return utils.MakeError(ErrRelocRange, "%v: target 0x%08X is %v bytes from the site", reloc, value, offset)
		}
		site[0] = byte(offset)

	case obj.RelocQuick16:
		if value < obj.QuickWindowBase {
			return utils.MakeError(ErrRelocWindow, "%v: 0x%08X is below the quick RAM window", reloc, value)
		}
		binary.LittleEndian.PutUint16(site, uint16(value-obj.QuickWindowBase))

	case obj.RelocPort8:
		if value < obj.PortWindowBase {
			return utils.MakeError(ErrRelocWindow, "%v: 0x%08X is below the I/O port window", reloc, value)
		}
		site[0] = byte(value - obj.PortWindowBase)

	default:
		return utils.MakeError(obj.ErrBadRelocation, "type %v", reloc.Type)
	}

	return nil
}
