package asm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/g10/pkg/g10/asm"
	"github.com/Manu343726/g10/pkg/g10/obj"
)

var outputPath string

// AsmCmd assembles one source file into a relocatable object
var AsmCmd = &cobra.Command{
	Use:   "asm source.s",
	Short: "Assemble a G10 source file into an object file",
	Long: `Assembles one translation unit into a relocatable G10 object file.

The assembler runs two passes over the source: a layout pass that binds
every label to its absolute address, and an emission pass that encodes
instructions and data and records relocations for symbols that resolve at
link time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath := args[0]

		source, err := os.ReadFile(inputPath)
		if err != nil {
			return err
		}

		object, err := asm.AssembleSource(inputPath, string(source))
		if err != nil {
			return fmt.Errorf("%v: %w", inputPath, err)
		}

		output := outputPath
		if output == "" {
			output = replaceExtension(inputPath, ".o")
		}

		if err := obj.WriteFile(output, object); err != nil {
			return err
		}

		slog.Info("assembled",
			"input", inputPath,
			"output", output,
			"sections", len(object.Sections),
			"symbols", len(object.Symbols),
			"relocations", len(object.Relocations))
		return nil
	},
}

func init() {
	AsmCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output object file (default: source with .o extension)")
}

func replaceExtension(path, ext string) string {
	if dot := strings.LastIndexByte(path, '.'); dot > 0 {
		return path[:dot] + ext
	}
	return path + ext
}
