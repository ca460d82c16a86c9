package link

import (
	"hash/crc32"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
	"github.com/Manu343726/g10/pkg/utils"
)

// segmentTypeFor maps a linked section to its program segment type: the
// metadata and interrupt windows override the section's own class, RAM
// reservations become zero-fill segments
func segmentTypeFor(section *linkedSection) prog.SegmentType {
	if section.sectionType == obj.SectionBSS {
		return prog.SegmentBSS
	}

	switch obj.RegionOf(section.base) {
	case obj.RegionMetadata:
		return prog.SegmentMetadata
	case obj.RegionInterrupt:
		return prog.SegmentInterrupt
	}

	if section.sectionType == obj.SectionCode {
		return prog.SegmentCode
	}
	return prog.SegmentData
}

// formSegments walks the linked sections in ascending address order and
// groups consecutive sections into one segment when their address ranges
// are contiguous, they share a segment type, and neither is a zero-fill
// reservation. BSS sections always form their own segments.
func (l *linker) formSegments() []prog.Segment {
	var segments []prog.Segment

	for _, section := range l.sections {
		segmentType := segmentTypeFor(section)

		if len(segments) > 0 {
			last := &segments[len(segments)-1]
			contiguous := section.base == last.End()
			mergeable := contiguous && last.Type == segmentType && segmentType != prog.SegmentBSS

			if mergeable {
				last.MemSize += section.size
				last.Data = append(last.Data, section.data...)
				last.FileSize = uint32(len(last.Data))
				continue
			}
		}

		segment := prog.Segment{
			LoadAddr: section.base,
			MemSize:  section.size,
			Type:     segmentType,
			Flags:    prog.DefaultSegmentFlags(segmentType),
		}
		if segmentType != prog.SegmentBSS {
			segment.Data = section.data
			segment.FileSize = uint32(len(section.data))
		}

		segments = append(segments, segment)
	}

	return segments
}

// selectEntry picks the program entry point: first a symbol flagged as
// entry, then the global or weak symbol 'main', then '_start'
func (l *linker) selectEntry() (uint32, error) {
	for _, object := range l.objects {
		for i := range object.Symbols {
			symbol := &object.Symbols[i]
			if symbol.Flags&obj.SymbolFlagEntry != 0 && symbol.Defined() {
				return symbol.Value, nil
			}
		}
	}

	for _, name := range []string{"main", "_start"} {
		if def, exists := l.globals[name]; exists {
			return def.symbol.Value, nil
		}
	}

	return 0, ErrNoEntryPoint
}

// imageChecksum is the CRC32 of the concatenated segment file data,
// recorded in the program info section
func imageChecksum(segments []prog.Segment) uint32 {
	return utils.Reduce(segments, func(segment prog.Segment, sum uint32) uint32 {
		return crc32.Update(sum, crc32.IEEETable, segment.Data)
	})
}
