package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/g10/pkg/g10/isa"
	"github.com/Manu343726/g10/pkg/utils"
)

var supportedModules = map[string]func() string{
	"isa": isa.DocString,
}

var docsCmd = &cobra.Command{
	Use:   "docs module",
	Short: "Show G10 documentation",
	Long: `Dumps the documentation of the specified toolchain module.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported modules:
` + strings.Join(utils.Map(utils.SortedKeys(supportedModules), func(module string) string { return "  " + module }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.ExactArgs(1)),
	ValidArgs: utils.SortedKeys(supportedModules),
	Run: func(cmd *cobra.Command, args []string) {
		module := args[0]
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				fmt.Println("Error creating file:", err)
				os.Exit(1)
			}
			defer file.Close()
			fmt.Fprintln(file, supportedModules[module]())
		} else {
			fmt.Println(supportedModules[module]())
		}
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the documentation is dumped to stdout.")
}
