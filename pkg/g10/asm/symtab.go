package asm

import (
	"github.com/Manu343726/g10/pkg/g10/expr"
	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

// symbolTable implements the per-object symbol rules: labels default to
// local binding, global/extern/weak directives adjust bindings, and the
// directives are checked against the definitions once the layout pass has
// seen the whole unit.
type symbolTable struct {
	symbols []obj.Symbol
	byName  map[string]int

	// binding directives seen so far, applied and verified by finalize
	globals map[string]int // name -> directive line
	externs map[string]int
	weaks   map[string]int
	entries map[string]int
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		byName:  make(map[string]int),
		globals: make(map[string]int),
		externs: make(map[string]int),
		weaks:   make(map[string]int),
		entries: make(map[string]int),
	}
}

// define binds a label to an address. Redefining a local symbol
// overwrites; any other redefinition is an error.
func (t *symbolTable) define(name string, value uint32, sectionIndex uint32, symType obj.SymbolType) error {
	if index, exists := t.byName[name]; exists {
		existing := &t.symbols[index]
		if existing.Binding != obj.BindingLocal {
			return utils.MakeError(ErrRedefinition, "'%v' is already defined as %v", name, existing.Binding)
		}
		// A name declared global or weak has one definition even before
		// the directive is applied
		if _, declared := t.globals[name]; declared {
			return utils.MakeError(ErrRedefinition, "'%v' is declared global", name)
		}
		if _, declared := t.weaks[name]; declared {
			return utils.MakeError(ErrRedefinition, "'%v' is declared weak", name)
		}
		existing.Value = value
		existing.SectionIndex = sectionIndex
		existing.Type = symType
		return nil
	}

	t.symbols = append(t.symbols, obj.Symbol{
		Name:         name,
		Value:        value,
		SectionIndex: sectionIndex,
		Type:         symType,
		Binding:      obj.BindingLocal,
	})
	t.byName[name] = len(t.symbols) - 1
	return nil
}

// addFile records the translation unit's file symbol
func (t *symbolTable) addFile(name string) {
	t.symbols = append(t.symbols, obj.Symbol{
		Name:         name,
		SectionIndex: obj.IndexAbs,
		Type:         obj.SymbolFile,
		Binding:      obj.BindingLocal,
		Flags:        obj.SymbolFlagAbsolute,
	})
}

func (t *symbolTable) markGlobal(names []string, line int) error {
	for _, name := range names {
		if _, isExtern := t.externs[name]; isExtern {
			return utils.MakeError(ErrBindingConflict, "'%v' is declared both global and extern", name)
		}
		t.globals[name] = line
	}
	return nil
}

func (t *symbolTable) markWeak(names []string, line int) error {
	for _, name := range names {
		if _, isExtern := t.externs[name]; isExtern {
			return utils.MakeError(ErrBindingConflict, "'%v' is declared both weak and extern", name)
		}
		t.weaks[name] = line
	}
	return nil
}

func (t *symbolTable) markExtern(names []string, line int) error {
	for _, name := range names {
		if _, isGlobal := t.globals[name]; isGlobal {
			return utils.MakeError(ErrBindingConflict, "'%v' is declared both global and extern", name)
		}
		if _, isWeak := t.weaks[name]; isWeak {
			return utils.MakeError(ErrBindingConflict, "'%v' is declared both weak and extern", name)
		}
		t.externs[name] = line
	}
	return nil
}

func (t *symbolTable) markEntry(name string, line int) {
	t.entries[name] = line
}

// finalize applies the collected binding directives after the layout pass:
// globals and weaks must be defined, externs must not, entry symbols must
// be defined. Extern declarations materialize as undefined symbol entries
// so relocations can reference them.
func (t *symbolTable) finalize() error {
	for _, name := range utils.SortedKeys(t.globals) {
		index, defined := t.byName[name]
		if !defined {
			return utils.MakeError(ErrUndefinedGlobal, "'%v'", name)
		}
		t.symbols[index].Binding = obj.BindingGlobal
	}

	for _, name := range utils.SortedKeys(t.weaks) {
		index, defined := t.byName[name]
		if !defined {
			return utils.MakeError(ErrUndefinedGlobal, "weak '%v'", name)
		}
		t.symbols[index].Binding = obj.BindingWeak
	}

	for _, name := range utils.SortedKeys(t.externs) {
		if _, defined := t.byName[name]; defined {
			return utils.MakeError(ErrExternDefined, "'%v'", name)
		}
		t.symbols = append(t.symbols, obj.Symbol{
			Name:         name,
			SectionIndex: obj.IndexUndef,
			Binding:      obj.BindingExtern,
		})
		t.byName[name] = len(t.symbols) - 1
	}

	for _, name := range utils.SortedKeys(t.entries) {
		index, defined := t.byName[name]
		if !defined || t.symbols[index].Binding == obj.BindingExtern {
			return utils.MakeError(ErrUndefinedGlobal, ".entry symbol '%v'", name)
		}
		t.symbols[index].Flags |= obj.SymbolFlagEntry
	}

	return nil
}

// lookup finds a symbol entry by name
func (t *symbolTable) lookup(name string) (*obj.Symbol, int, bool) {
	if index, exists := t.byName[name]; exists {
		return &t.symbols[index], index, true
	}
	return nil, 0, false
}

// resolver adapts the table to the expression evaluator. Only defined
// symbols resolve; externs stay unresolved so references to them become
// relocations.
func (t *symbolTable) resolver() expr.Resolver {
	return func(name string) (uint32, bool) {
		symbol, _, exists := t.lookup(name)
		if !exists || !symbol.Defined() {
			return 0, false
		}
		return symbol.Value, true
	}
}
