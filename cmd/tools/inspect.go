package tools

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
	"github.com/Manu343726/g10/pkg/utils"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect file",
	Short: "Browse an object file or program image interactively",
	Long: `Opens a terminal UI over a G10 binary container: section, symbol and
relocation tables for objects, segment and info tables for programs.
Tab cycles between tables, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		magic, err := sniffMagic(path)
		if err != nil {
			return err
		}

		switch magic {
		case obj.Magic:
			object, err := obj.ReadFile(path)
			if err != nil {
				return err
			}
			return runInspector(path, objectTables(object))

		case prog.Magic:
			program, err := prog.ReadFile(path)
			if err != nil {
				return err
			}
			return runInspector(path, programTables(program))

		default:
			return fmt.Errorf("%v: magic %v is neither an object file nor a program image",
				path, utils.FormatUintHex(uint64(magic), 8))
		}
	},
}

func init() {
	ToolsCmd.AddCommand(inspectCmd)
}

// inspectorTable is one named table of the inspector UI
type inspectorTable struct {
	title   string
	headers []string
	rows    [][]string
}

func objectTables(object *obj.Object) []inspectorTable {
	sections := inspectorTable{
		title:   "Sections",
		headers: []string{"#", "Name", "Address", "Size", "Type", "Flags"},
	}
	for i := range object.Sections {
		s := &object.Sections[i]
		sections.rows = append(sections.rows, []string{
			fmt.Sprint(i), s.Name,
			fmt.Sprintf("0x%08X", s.VirtualAddr),
			fmt.Sprint(s.Size), s.Type.String(), s.Flags.String(),
		})
	}

	symbols := inspectorTable{
		title:   "Symbols",
		headers: []string{"#", "Name", "Value", "Section", "Type", "Binding"},
	}
	for i := range object.Symbols {
		s := &object.Symbols[i]

		section := fmt.Sprint(s.SectionIndex)
		switch s.SectionIndex {
		case obj.IndexUndef:
			section = "UNDEF"
		case obj.IndexAbs:
			section = "ABS"
		case obj.IndexCommon:
			section = "COMMON"
		}

		symbols.rows = append(symbols.rows, []string{
			fmt.Sprint(i), s.Name,
			fmt.Sprintf("0x%08X", s.Value),
			section, s.Type.String(), s.Binding.String(),
		})
	}

	relocations := inspectorTable{
		title:   "Relocations",
		headers: []string{"#", "Type", "Section", "Offset", "Symbol", "Addend"},
	}
	for i := range object.Relocations {
		r := &object.Relocations[i]
		relocations.rows = append(relocations.rows, []string{
			fmt.Sprint(i), r.Type.String(),
			fmt.Sprint(r.SectionIndex),
			fmt.Sprintf("0x%04X", r.Offset),
			fmt.Sprint(r.SymbolIndex),
			fmt.Sprint(r.Addend),
		})
	}

	return []inspectorTable{sections, symbols, relocations}
}

func programTables(program *prog.Program) []inspectorTable {
	segments := inspectorTable{
		title:   "Segments",
		headers: []string{"#", "Type", "Load", "End", "Mem", "File"},
	}
	for i := range program.Segments {
		s := &program.Segments[i]
		segments.rows = append(segments.rows, []string{
			fmt.Sprint(i), s.Type.String(),
			fmt.Sprintf("0x%08X", s.LoadAddr),
			fmt.Sprintf("0x%08X", s.End()),
			fmt.Sprint(s.MemSize), fmt.Sprint(s.FileSize),
		})
	}

	header := inspectorTable{
		title:   "Header",
		headers: []string{"Field", "Value"},
		rows: [][]string{
			{"Entry", fmt.Sprintf("0x%08X", program.Entry)},
			{"Stack", fmt.Sprintf("0x%08X", program.StackInit)},
			{"Segments", fmt.Sprint(len(program.Segments))},
		},
	}
	if program.Info != nil {
		header.rows = append(header.rows,
			[]string{"Name", program.Info.Name},
			[]string{"Version", program.Info.Version},
			[]string{"Author", program.Info.Author},
			[]string{"Checksum", fmt.Sprintf("0x%08X", program.Info.Checksum)},
		)
	}

	return []inspectorTable{segments, header}
}

// runInspector shows the tables in a tview application. Tab cycles the
// active table, q or Escape quits.
func runInspector(title string, tables []inspectorTable) error {
	app := tview.NewApplication()
	pages := tview.NewPages()

	views := make([]*tview.Table, len(tables))
	for i, table := range tables {
		view := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)

		for column, header := range table.headers {
			view.SetCell(0, column, tview.NewTableCell(header).
				SetTextColor(tcell.ColorYellow).
				SetSelectable(false).
				SetAttributes(tcell.AttrBold))
		}

		for rowIndex, row := range table.rows {
			for column, cell := range row {
				view.SetCell(rowIndex+1, column, tview.NewTableCell(cell).SetExpansion(1))
			}
		}

		view.SetBorder(true).SetTitle(fmt.Sprintf(" %v - %v (%v/%v) ", title, table.title, i+1, len(tables)))
		views[i] = view
		pages.AddPage(table.title, view, true, i == 0)
	}

	active := 0
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyTab:
			active = (active + 1) % len(tables)
			pages.SwitchToPage(tables[active].title)
			return nil
		case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(pages, true).Run()
}
