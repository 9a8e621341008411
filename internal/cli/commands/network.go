package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/hydrology"
	"github.com/incawqmodels/persist/internal/params"
)

// NewNetworkCommand creates the network command.
func NewNetworkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Show the reach network",
		Long: `Display the reach network of the parameter set.

Reaches are grouped by level: every reach in a level only receives water
from reaches in earlier levels, so a level is solved concurrently.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the network
  persist network

  # Output as JSON
  persist network --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNetwork(cmd)
		},
	}
}

func runNetwork(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	ps, err := params.Load(cc.Cfg.Parameters)
	if err != nil {
		return err
	}
	catchment, err := hydrology.Build(ps, hydrology.WithLogger(cc.Logger))
	if err != nil {
		return err
	}
	out := describeNetwork(catchment.Network())

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		networkMarkdown(r, out)
	default:
		networkText(r, out)
	}
	return nil
}

// describeNetwork converts the network to its reported form.
func describeNetwork(n *hydrology.Network) output.NetworkOutput {
	names := func(ids []int) []string {
		s := make([]string, 0, len(ids))
		for _, id := range ids {
			s = append(s, n.Name(id))
		}
		return s
	}

	out := output.NetworkOutput{
		Levels:       make([]output.NetworkLevel, 0, len(n.Levels())),
		Outlets:      names(n.Outlets()),
		TotalReaches: n.Size(),
	}
	for i, level := range n.Levels() {
		nl := output.NetworkLevel{Level: i, Reaches: make([]output.NetworkReach, 0, len(level))}
		for _, id := range level {
			down := n.Downstream(id)
			out.TotalEdges += len(down)
			nl.Reaches = append(nl.Reaches, output.NetworkReach{
				Name:       n.Name(id),
				Upstream:   names(n.Upstream(id)),
				Downstream: names(down),
			})
		}
		out.Levels = append(out.Levels, nl)
	}
	return out
}

func networkText(r *output.Renderer, out output.NetworkOutput) {
	styles := r.Styles()

	r.Header(1, "Reach Network")
	for _, level := range out.Levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", level.Level)))
		for _, reach := range level.Reaches {
			r.Printf("  %s\n", styles.Name.Render(reach.Name))
			if len(reach.Upstream) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("receives from:"), strings.Join(reach.Upstream, ", "))
			}
			if len(reach.Downstream) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("drains into:"), strings.Join(reach.Downstream, ", "))
			}
		}
		r.Println("")
	}
	r.Println(styles.Muted.Render(fmt.Sprintf("Outlets: %s", output.FormatList(out.Outlets))))
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d reaches, %d connections", out.TotalReaches, out.TotalEdges)))
}

func networkMarkdown(r *output.Renderer, out output.NetworkOutput) {
	r.Println(output.FormatHeader(1, "Reach Network"))
	r.Println("")

	for _, level := range out.Levels {
		name := fmt.Sprintf("Level %d", level.Level)
		if level.Level == 0 {
			name = "Level 0 (Headwaters)"
		}
		r.Println(output.FormatHeader(2, name))
		for _, reach := range level.Reaches {
			r.Printf("- %s\n", reach.Name)
			if len(reach.Upstream) > 0 {
				r.Printf("  - receives from: %s\n", strings.Join(reach.Upstream, ", "))
			}
			if len(reach.Downstream) > 0 {
				r.Printf("  - drains into: %s\n", strings.Join(reach.Downstream, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Outlets", output.FormatList(out.Outlets)))
	r.Println(output.FormatKeyValue("Total Reaches", fmt.Sprintf("%d", out.TotalReaches)))
	r.Println(output.FormatKeyValue("Total Connections", fmt.Sprintf("%d", out.TotalEdges)))
}
