package tools

import (
	"github.com/spf13/cobra"
)

// ToolsCmd groups the binary inspection and documentation tools
var ToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspection and documentation tools",
	Long:  `Tools for inspecting G10 object files and program images and for dumping toolchain documentation.`,
}
