package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/engine"
	"github.com/incawqmodels/persist/internal/params"
)

// BuildInfo is the build metadata set by the linker.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the persist version, the build it came from and the
parameter file schema and driving data columns it reads.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "persist v%s\n", info.Version)
			_, _ = fmt.Fprintf(w, "  commit:           %s\n", orUnknown(info.GitCommit))
			_, _ = fmt.Fprintf(w, "  built:            %s (%s)\n", orUnknown(info.BuildDate), runtime.Version())
			_, _ = fmt.Fprintf(w, "  parameter schema: v%d\n", params.SchemaVersion)
			_, _ = fmt.Fprintf(w, "  driving columns:  %s\n",
				strings.Join([]string{engine.ColumnPrecipitation, engine.ColumnTemperature}, ", "))
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
