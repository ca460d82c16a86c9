package asm

import (
	"errors"

	"github.com/Manu343726/g10/pkg/g10/expr"
	"github.com/Manu343726/g10/pkg/g10/isa"
	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/utils"
)

// Assemble runs the two passes over a statement stream and produces one
// relocatable object. The layout pass binds every label to its absolute
// address and sizes all sections; the emission pass encodes instructions
// and data with the symbol table complete, recording a relocation for
// every reference it cannot resolve locally.
//
// The pass structure is required because a forward reference into a
// section that has not been opened yet cannot be sized in one pass.
func Assemble(name string, statements []Statement) (*obj.Object, error) {
	a := &assembler{
		sections: newSectionBuilder(),
		symbols:  newSymbolTable(),
	}

	if err := a.layoutPass(statements); err != nil {
		return nil, err
	}

	if err := a.symbols.finalize(); err != nil {
		return nil, err
	}

	if err := a.emissionPass(statements); err != nil {
		return nil, err
	}

	object := &obj.Object{
		Path:        name,
		Sections:    a.sections.sections,
		Symbols:     a.symbols.symbols,
		Relocations: a.relocations,
	}

	if err := object.Validate(); err != nil {
		return nil, err
	}

	return object, nil
}

// AssembleSource is the convenience front end: parse then assemble
func AssembleSource(name, source string) (*obj.Object, error) {
	statements, err := ParseStatements(source)
	if err != nil {
		return nil, err
	}
	return Assemble(name, statements)
}

type assembler struct {
	sections    *sectionBuilder
	symbols     *symbolTable
	relocations []obj.Relocation
}

// layoutPass walks the statements once, opening sections, advancing
// location counters by the size each statement will occupy, and binding
// labels to addresses
func (a *assembler) layoutPass(statements []Statement) error {
	for _, statement := range statements {
		var err error

		switch stmt := statement.(type) {
		case *Org:
			err = a.handleOrg(stmt)

		case *LabelDef:
			err = a.defineLabel(stmt)

		case *GlobalDecl:
			err = a.symbols.markGlobal(stmt.Names, stmt.Line())

		case *ExternDecl:
			err = a.symbols.markExtern(stmt.Names, stmt.Line())

		case *WeakDecl:
			err = a.symbols.markWeak(stmt.Names, stmt.Line())

		case *EntryDecl:
			a.symbols.markEntry(stmt.Name, stmt.Line())

		case *FileDecl:
			a.symbols.addFile(stmt.Name)

		case *Data:
			var size uint32
			size, err = a.dataSize(stmt)
			if err == nil {
				err = a.sections.grow(size)
			}

		case *Instr:
			var form *isa.Form
			form, _, err = a.matchInstruction(stmt)
			if err == nil {
				if err = a.sections.markCode(); err == nil {
					err = a.sections.grow(uint32(form.Size()))
				}
			}
		}

		if err != nil {
			return atLine(err, statement)
		}
	}

	return nil
}

// emissionPass re-walks the statements with the symbol table complete and
// produces the final section bytes and relocation records
func (a *assembler) emissionPass(statements []Statement) error {
	layoutSizes := a.sections.resetForEmission()

	// A local label may be defined more than once; the layout pass keeps
	// the address of its last definition
	lastDef := make(map[string]int)
	for i, statement := range statements {
		if label, ok := statement.(*LabelDef); ok {
			lastDef[label.Name] = i
		}
	}

	for i, statement := range statements {
		var err error

		switch stmt := statement.(type) {
		case *Org:
			err = a.handleOrg(stmt)

		case *Data:
			err = a.emitData(stmt)

		case *Instr:
			err = a.emitInstruction(stmt)

		case *LabelDef:
			// Bound during layout; cross-check the address of the
			// definition that stands
			if symbol, _, ok := a.symbols.lookup(stmt.Name); ok && lastDef[stmt.Name] == i {
				pc, pcErr := a.sections.pc()
				if pcErr == nil && symbol.Value != pc {
					err = utils.MakeError(ErrLayoutMismatch, "label '%v' moved from 0x%08X to 0x%08X",
						stmt.Name, symbol.Value, pc)
				}
			}
		}

		if err != nil {
			return atLine(err, statement)
		}
	}

	for i := range a.sections.sections {
		if a.sections.sections[i].Size != layoutSizes[i] {
			return utils.MakeError(ErrLayoutMismatch, "section '%v' sized %v in layout, %v in emission",
				a.sections.sections[i].Name, layoutSizes[i], a.sections.sections[i].Size)
		}
	}

	return nil
}

func atLine(err error, statement Statement) error {
	if err == nil {
		return nil
	}
	return utils.MakeError(err, "at line %v", statement.Line())
}

// handleOrg evaluates the origin address and switches sections. The
// address expression must resolve from already-seen labels; forward
// references cannot steer layout.
func (a *assembler) handleOrg(stmt *Org) error {
	base, err := expr.Eval(stmt.Addr, a.symbols.resolver())
	if err != nil {
		return err
	}

	a.sections.open(base)
	return nil
}

func (a *assembler) defineLabel(stmt *LabelDef) error {
	pc, err := a.sections.pc()
	if err != nil {
		return err
	}

	return a.symbols.define(stmt.Name, pc, a.sections.activeIndex(), obj.SymbolLabel)
}

// dataSize computes a data directive's contribution to the location
// counter. In ROM sections each operand occupies the directive width; in
// BSS sections each operand is a reservation count, which therefore must
// be resolvable during layout.
func (a *assembler) dataSize(stmt *Data) (uint32, error) {
	section, err := a.sections.active()
	if err != nil {
		return 0, err
	}

	if section.Type != obj.SectionBSS {
		return stmt.Kind.Width() * uint32(len(stmt.Args)), nil
	}

	var total uint32
	for _, arg := range stmt.Args {
		count, err := expr.EvalInt(arg, a.symbols.resolver())
		if err != nil {
			return 0, err
		}
		if count < 0 {
			return 0, utils.MakeError(ErrValueRange, "reservation count %v is negative", count)
		}
		total += stmt.Kind.Width() * uint32(count)
	}

	return total, nil
}

// matchInstruction canonicalizes the operand list (inserting the implicit
// NC condition) and finds the instruction form
func (a *assembler) matchInstruction(stmt *Instr) (*isa.Form, []Operand, error) {
	operands := stmt.Operands

	if isa.TakesCondition(stmt.Mnemonic) {
		if len(operands) == 0 || operands[0].Kind != OperandCond {
			operands = append([]Operand{{Kind: OperandCond, Cond: isa.CondNC}}, operands...)
		}
	}

	shape := utils.Map(operands, func(op Operand) isa.Pattern { return op.Pattern() })

	form, err := isa.Lookup(stmt.Mnemonic, shape)
	if err != nil {
		return nil, nil, err
	}

	return form, operands, nil
}

// emitData evaluates and emits one data directive. In BSS sections it only
// advances the reservation. Unresolvable operands in ROM sections become
// absolute relocations of the directive width.
func (a *assembler) emitData(stmt *Data) error {
	section, err := a.sections.active()
	if err != nil {
		return err
	}

	if section.Type == obj.SectionBSS {
		size, err := a.dataSize(stmt)
		if err != nil {
			return err
		}
		return a.sections.grow(size)
	}

	relocType := map[DataKind]obj.RelocType{
		DataByte:  obj.RelocAbs8,
		DataWord:  obj.RelocAbs16,
		DataDword: obj.RelocAbs32,
	}[stmt.Kind]

	for _, arg := range stmt.Args {
		value, err := expr.EvalInt(arg, a.symbols.resolver())

		switch {
		case err == nil:
			encoded, rangeErr := encodeDataValue(stmt.Kind, value)
			if rangeErr != nil {
				return rangeErr
			}
			if emitErr := a.sections.emit(encoded); emitErr != nil {
				return emitErr
			}

		case errors.Is(err, expr.ErrUnresolvedSymbol):
			if relErr := a.emitRelocated(arg, relocType); relErr != nil {
				return relErr
			}

		default:
			return err
		}
	}

	return nil
}

func encodeDataValue(kind DataKind, value int64) ([]byte, error) {
	var field isa.FieldKind
	switch kind {
	case DataByte:
		field = isa.FieldImm8
	case DataWord:
		field = isa.FieldImm16
	case DataDword:
		field = isa.FieldImm32
	}

	encoded, err := isa.EncodeField(field, value)
	if err != nil {
		return nil, utils.MakeError(ErrValueRange, ".%v operand: %v", kind, err)
	}

	return isa.AppendFieldBytes(nil, field, encoded), nil
}

// emitRelocated writes a relocation placeholder for a symbolic value. The
// addend travels in the patch-site bytes for 4 byte fields and in the
// record's 16 bit field otherwise.
func (a *assembler) emitRelocated(node expr.Node, relocType obj.RelocType) error {
	symbolName, addend, err := expr.Relocatable(node, a.symbols.resolver())
	if err != nil {
		return err
	}

	_, symbolIndex, exists := a.symbols.lookup(symbolName)
	if !exists {
		return utils.MakeError(ErrUnresolved, "'%v' is neither defined nor declared extern", symbolName)
	}

	section, err := a.sections.active()
	if err != nil {
		return err
	}
	offset := section.Size

	reloc := obj.Relocation{
		Offset:       offset,
		SectionIndex: a.sections.activeIndex(),
		SymbolIndex:  uint32(symbolIndex),
		Type:         relocType,
	}

	placeholder := make([]byte, relocType.Width())

	if relocType.WideAddend() {
		// 4 byte fields carry the addend in the patch-site initial bytes
		copy(placeholder, isa.AppendFieldBytes(nil, isa.FieldImm32, uint32(addend)))
	} else {
		if addend < -0x8000 || addend > 0x7FFF {
			return utils.MakeError(ErrAddendRange, "addend %v of '%v' does not fit the 16 bit relocation addend field", addend, symbolName)
		}
		reloc.Addend = int32(addend)
	}

	if err := a.sections.emit(placeholder); err != nil {
		return err
	}

	a.relocations = append(a.relocations, reloc)
	return nil
}

// emitInstruction encodes one instruction, resolving operand expressions
// and falling back to relocations for the trailing field when a symbol is
// not resolvable in this unit
func (a *assembler) emitInstruction(stmt *Instr) error {
	form, operands, err := a.matchInstruction(stmt)
	if err != nil {
		return err
	}

	if err := a.sections.markCode(); err != nil {
		return err
	}

	pc, err := a.sections.pc()
	if err != nil {
		return err
	}

	resolved := make([]isa.Operand, len(operands))
	var pending expr.Node // unresolved field operand, if any

	for i, operand := range operands {
		switch operand.Kind {
		case OperandReg:
			resolved[i] = isa.Reg(operand.Class, operand.Index)
		case OperandCond:
			resolved[i] = isa.Cond(operand.Cond)
		case OperandIndirect:
			resolved[i] = isa.Indirect(operand.Class, operand.Index)

		case OperandImm, OperandDirect:
			value, evalErr := expr.EvalInt(operand.Expr, a.symbols.resolver())

			switch {
			case evalErr == nil:
				if operand.Kind == OperandImm {
					resolved[i] = isa.Imm(value)
				} else {
					resolved[i] = isa.Direct(value)
				}

			case errors.Is(evalErr, expr.ErrUnresolvedSymbol) && form.Field != isa.FieldNone && i == form.FieldOperand:
				pending = operand.Expr
				if operand.Kind == OperandImm {
					resolved[i] = isa.PendingImm()
				} else {
					resolved[i] = isa.PendingDirect()
				}

			default:
				return evalErr
			}
		}
	}

	opcode, err := form.EncodeOpcode(resolved)
	if err != nil {
		return err
	}

	bytes := isa.AppendFieldBytes(nil, isa.FieldImm16, uint32(opcode))
	if err := a.sections.emit(bytes); err != nil {
		return err
	}

	if form.Field == isa.FieldNone {
		return nil
	}

	if pending != nil {
		return a.emitRelocated(pending, fieldRelocType(form.Field))
	}

	fieldOperand := resolved[form.FieldOperand]

	var encoded uint32
	if form.Field == isa.FieldRel16 {
		// Branch offsets are measured from the byte after the instruction
		encoded, err = isa.EncodeBranchOffset(uint32(fieldOperand.Value), pc+uint32(form.Size()))
	} else {
		encoded, err = isa.EncodeField(form.Field, fieldOperand.Value)
	}
	if err != nil {
		return err
	}

	return a.sections.emit(isa.AppendFieldBytes(nil, form.Field, encoded))
}

// fieldRelocType maps a trailing field kind to the relocation that patches
// it at link time
func fieldRelocType(kind isa.FieldKind) obj.RelocType {
	switch kind {
	case isa.FieldImm8:
		return obj.RelocAbs8
	case isa.FieldImm16:
		return obj.RelocAbs16
	case isa.FieldImm32, isa.FieldAddr32:
		return obj.RelocAbs32
	case isa.FieldQuick16:
		return obj.RelocQuick16
	case isa.FieldPort8:
		return obj.RelocPort8
	case isa.FieldRel16:
		return obj.RelocRel16
	}

	panic("unreachable")
}
