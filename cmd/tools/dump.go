package tools

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Manu343726/g10/pkg/g10/isa"
	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
	"github.com/Manu343726/g10/pkg/utils"
)

var (
	dumpDisasm  bool
	dumpNoColor bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump file",
	Short: "Dump the contents of an object file or program image",
	Long: `Prints the tables and data of a G10 binary container in human readable
form. The container kind is detected from the magic number. With --disasm
the code contents are also disassembled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		if dumpNoColor {
			color.NoColor = true
		}

		magic, err := sniffMagic(path)
		if err != nil {
			return err
		}

		switch magic {
		case obj.Magic:
			return dumpObject(path)
		case prog.Magic:
			return dumpProgram(path)
		default:
			return fmt.Errorf("%v: magic %v is neither an object file nor a program image",
				path, utils.FormatUintHex(uint64(magic), 8))
		}
	},
}

func init() {
	ToolsCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVarP(&dumpDisasm, "disasm", "d", false, "disassemble code sections")
	dumpCmd.Flags().BoolVar(&dumpNoColor, "no-color", false, "disable colored output")
}

func sniffMagic(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var word [4]byte
	if _, err := f.Read(word[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(word[:]), nil
}

func dumpObject(path string) error {
	object, err := obj.ReadFile(path)
	if err != nil {
		return err
	}

	if err := obj.Dump(os.Stdout, object); err != nil {
		return err
	}

	if dumpDisasm {
		for i := range object.Sections {
			section := &object.Sections[i]
			if section.Type != obj.SectionCode {
				continue
			}
			fmt.Printf("\n=== Disassembly of %s ===\n", section.Name)
			disassemble(section.Data, section.VirtualAddr)
		}
	}

	return nil
}

func dumpProgram(path string) error {
	program, err := prog.ReadFile(path)
	if err != nil {
		return err
	}

	if err := prog.Dump(os.Stdout, program); err != nil {
		return err
	}

	if dumpDisasm {
		for i := range program.Segments {
			segment := &program.Segments[i]
			if !segment.Type.Executable() {
				continue
			}
			fmt.Printf("\n=== Disassembly of %v segment at 0x%08X ===\n", segment.Type, segment.LoadAddr)
			disassemble(segment.Data, segment.LoadAddr)
		}
	}

	return nil
}

// disassemble walks code bytes with the instruction decoder and prints one
// line per instruction. Undecodable words are shown as raw data and
// skipped in opcode steps.
func disassemble(data []byte, base uint32) {
	addrColor := color.New(color.FgCyan)

	for offset := 0; offset < len(data); {
		addr := addrColor.Sprintf("%08X", base+uint32(offset))

		decoded, err := isa.Decode(data[offset:])
		if err != nil {
			word := uint16(data[offset])
			if offset+1 < len(data) {
				word = binary.LittleEndian.Uint16(data[offset:])
			}
			fmt.Printf("  %s  .word %s\n", addr, utils.FormatUintHex(uint64(word), 4))
			offset += 2
			continue
		}

		fmt.Printf("  %s  %s\n", addr, utils.HighlightAsm(decoded.String()))
		offset += decoded.Size()
	}
}
