// Package link implements the G10 linker: it merges validated object
// files into one executable program image, resolving symbols across
// objects, patching relocation sites, grouping sections into segments and
// selecting the entry point.
package link

import (
	"sort"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
	"github.com/Manu343726/g10/pkg/utils"
)

// Options configures one link
type Options struct {
	// Initial stack pointer; zero selects prog.DefaultStackInit
	StackInit uint32

	// Optional program info section. The linker stamps BuildDate and
	// Checksum into a copy.
	Info *prog.Info

	// Unix timestamp recorded in the info section
	BuildDate uint32

	// Extra program flags (debug, double speed)
	ExtraFlags prog.Flags
}

// Link consumes a non-empty list of validated objects and produces a
// validated program image. Input objects are never mutated: section data
// is deep-copied before patching.
func Link(objects []*obj.Object, opts Options) (*prog.Program, error) {
	if len(objects) == 0 {
		return nil, ErrNoInput
	}

	l := &linker{objects: objects}

	if err := l.resolveSymbols(); err != nil {
		return nil, err
	}
	l.collectSections()
	if err := l.applyRelocations(); err != nil {
		return nil, err
	}

	segments := l.formSegments()

	entry, err := l.selectEntry()
	if err != nil {
		return nil, err
	}

	stack := opts.StackInit
	if stack == 0 {
		stack = prog.DefaultStackInit
	}

	program := &prog.Program{
		Flags:     prog.FlagHasEntry | prog.FlagHasStackInit | opts.ExtraFlags,
		Entry:     entry,
		StackInit: stack,
		Segments:  segments,
	}

	if opts.Info != nil {
		info := *opts.Info
		info.BuildDate = opts.BuildDate
		info.Checksum = imageChecksum(segments)
		program.Info = &info
		program.Flags |= prog.FlagHasInfo
	}

	if err := program.Validate(); err != nil {
		return nil, err
	}

	return program, nil
}

// globalDef records the winning definition of a global or weak name
type globalDef struct {
	object *obj.Object
	symbol *obj.Symbol
}

// linkedSection is one input section tagged with its origin and carrying
// the linker's own mutable copy of the data
type linkedSection struct {
	object       int
	sectionIndex uint32
	base         uint32
	size         uint32
	sectionType  obj.SectionType
	data         []byte
}

func (s *linkedSection) end() uint32 {
	return s.base + s.size
}

type linker struct {
	objects  []*obj.Object
	globals  map[string]globalDef
	sections []*linkedSection
	byOrigin map[[2]uint32]*linkedSection
}

// resolveSymbols builds the global symbol table and checks every extern
// has a definition. A weak definition is superseded by any non-weak global
// of the same name; two non-weak globals are an error naming both objects.
func (l *linker) resolveSymbols() error {
	l.globals = make(map[string]globalDef)

	for _, object := range l.objects {
		for i := range object.Symbols {
			symbol := &object.Symbols[i]
			if symbol.Binding != obj.BindingGlobal && symbol.Binding != obj.BindingWeak {
				continue
			}

			existing, seen := l.globals[symbol.Name]
			if !seen {
				l.globals[symbol.Name] = globalDef{object, symbol}
				continue
			}

			switch {
			case existing.symbol.Binding == obj.BindingWeak && symbol.Binding == obj.BindingGlobal:
				l.globals[symbol.Name] = globalDef{object, symbol}
			case existing.symbol.Binding == obj.BindingWeak || symbol.Binding == obj.BindingWeak:
				// The non-weak (or first weak) definition stands
			default:
				return utils.MakeError(ErrDuplicateGlobal, "'%v' defined in both %v and %v",
					symbol.Name, existing.object.Name(), object.Name())
			}
		}
	}

	for _, object := range l.objects {
		for i := range object.Symbols {
			symbol := &object.Symbols[i]
			if symbol.Binding != obj.BindingExtern {
				continue
			}
			if _, defined := l.globals[symbol.Name]; !defined {
				return utils.MakeError(ErrUnresolvedExtern, "'%v' required by %v",
					symbol.Name, object.Name())
			}
		}
	}

	return nil
}

// collectSections deep-copies every input section into the link-local
// working set and sorts it by base address
func (l *linker) collectSections() {
	l.byOrigin = make(map[[2]uint32]*linkedSection)

	for objectIndex, object := range l.objects {
		for sectionIndex := range object.Sections {
			section := &object.Sections[sectionIndex]

			copied := &linkedSection{
				object:       objectIndex,
				sectionIndex: uint32(sectionIndex),
				base:         section.VirtualAddr,
				size:         section.Size,
				sectionType:  section.Type,
			}
			if section.Type != obj.SectionBSS {
				copied.data = make([]byte, len(section.Data))
				copy(copied.data, section.Data)
			}

			l.sections = append(l.sections, copied)
			l.byOrigin[[2]uint32{uint32(objectIndex), uint32(sectionIndex)}] = copied
		}
	}

	sort.SliceStable(l.sections, func(i, j int) bool {
		return l.sections[i].base < l.sections[j].base
	})
}

// resolveTarget computes the absolute address a relocation's symbol
// resolves to. Extern and global/weak references go through the global
// table (so a superseded weak definition defers to its winner); locals
// resolve within their own object.
func (l *linker) resolveTarget(object *obj.Object, reloc *obj.Relocation) (uint32, error) {
	symbol := &object.Symbols[reloc.SymbolIndex]

	switch symbol.Binding {
	case obj.BindingLocal:
		return symbol.Value, nil

	case obj.BindingGlobal, obj.BindingWeak, obj.BindingExtern:
		def, defined := l.globals[symbol.Name]
		if !defined {
			return 0, utils.MakeError(ErrUnresolvedExtern, "'%v' required by %v",
				symbol.Name, object.Name())
		}
		return def.symbol.Value, nil
	}

	return 0, utils.MakeError(obj.ErrBadSymbol, "'%v' has binding %v", symbol.Name, symbol.Binding)
}
