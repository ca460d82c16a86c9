package ld

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Manu343726/g10/pkg/g10/link"
	"github.com/Manu343726/g10/pkg/g10/obj"
	"github.com/Manu343726/g10/pkg/g10/prog"
)

var (
	outputPath  string
	infoPath    string
	debug       bool
	doubleSpeed bool
)

// LdCmd links object files into an executable program image
var LdCmd = &cobra.Command{
	Use:   "ld object.o...",
	Short: "Link G10 object files into a program image",
	Long: `Links one or more G10 object files into an executable program image.

The linker resolves symbols across objects, patches every relocation site,
groups sections into loadable segments and selects the entry point (the
symbol flagged by .entry, else 'main', else '_start').`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objects := make([]*obj.Object, len(args))
		for i, path := range args {
			object, err := obj.ReadFile(path)
			if err != nil {
				return err
			}
			objects[i] = object
		}

		opts := link.Options{
			StackInit: viper.GetUint32("stack"),
			BuildDate: uint32(time.Now().Unix()),
		}
		if debug {
			opts.ExtraFlags |= prog.FlagDebug
		}
		if doubleSpeed {
			opts.ExtraFlags |= prog.FlagDoubleSpeed
		}

		if infoPath != "" {
			info, err := readInfoManifest(infoPath)
			if err != nil {
				return err
			}
			opts.Info = info
		}

		program, err := link.Link(objects, opts)
		if err != nil {
			return err
		}

		if err := prog.WriteFile(outputPath, program); err != nil {
			return err
		}

		slog.Info("linked",
			"output", outputPath,
			"objects", len(objects),
			"segments", len(program.Segments),
			"entry", fmt.Sprintf("0x%08X", program.Entry))
		return nil
	},
}

func init() {
	LdCmd.Flags().StringVarP(&outputPath, "output", "o", "program.g10", "output program image")
	LdCmd.Flags().StringVar(&infoPath, "info", "", "program info manifest (YAML: name, version, author, description)")
	LdCmd.Flags().Uint32("stack", 0, "initial stack pointer (default 0xFFFFFFFC)")
	LdCmd.Flags().BoolVar(&debug, "debug", false, "set the debug flag in the program header")
	LdCmd.Flags().BoolVar(&doubleSpeed, "double-speed", false, "set the double speed flag in the program header")
	viper.BindPFlag("stack", LdCmd.Flags().Lookup("stack"))
}

// readInfoManifest loads the optional program info section from a YAML
// manifest
func readInfoManifest(path string) (*prog.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var info prog.Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing %v: %w", path, err)
	}

	return &info, nil
}
