package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/netio"
	"github.com/perisponge/stormflow/pkg/network"
	"github.com/perisponge/stormflow/pkg/pipeline"
	"github.com/perisponge/stormflow/pkg/storms"
)

// tableOpts holds the command-line flags for the table command.
type tableOpts struct {
	node      string   // subcatchment to report; interactive picker if empty
	retention []string // repeated node=volume specs in m³
	output    string   // output file path (styled stdout if empty)
	noCache   bool     // disable the result cache
	refresh   bool     // bypass cached results
}

// tableCommand creates the table command.
func (c *CLI) tableCommand() *cobra.Command {
	var opts tableOpts

	cmd := &cobra.Command{
		Use:   "table <network.json> <storms.toml>",
		Short: "Sweep a design-storm table for one subcatchment",
		Long: `Table evaluates every duration × return period cell of a design-storm
table and reports the chosen subcatchment's discharge for each storm.

Without --node, an interactive picker lists the network's subcatchments.

Examples:
  stormflow table network.json storms.toml --node outfall
  stormflow table network.json storms.toml --node pond --retain pond=150`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTable(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.node, "node", "n", "", "subcatchment to report (interactive if omitted)")
	cmd.Flags().StringArrayVarP(&opts.retention, "retain", "r", nil, "retention capacity as node=volume in m³ (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write CSV to file instead of styled output")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached results")

	return cmd
}

func (c *CLI) runTable(cmd *cobra.Command, netPath, tablePath string, opts tableOpts) error {
	net, err := netio.ReadNetworkFile(netPath)
	if err != nil {
		return err
	}
	tbl, err := storms.Load(tablePath)
	if err != nil {
		return err
	}

	nodeID := opts.node
	if nodeID == "" {
		nodeID, err = pickNode(net)
		if err != nil {
			return err
		}
	}

	retention, err := parseRetention(opts.retention)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	durations, periods := tbl.Size()
	prog := newProgress(c.Logger)
	result, hit, err := runner.EvaluateTable(cmd.Context(), net, tbl, nodeID, pipeline.Options{
		Retention: retention,
		Refresh:   opts.refresh,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Swept %d storms for %s", durations*periods, nodeID))

	printStats(net.NodeCount(), net.EdgeCount(), hit)

	if opts.output != "" {
		if err := writeSweepCSV(result, opts.output); err != nil {
			return err
		}
		printFile(opts.output)
		return nil
	}

	fmt.Println(renderSweep(result))
	return nil
}

// pickNode runs the interactive subcatchment picker.
// Falls back to an error on non-interactive terminals.
func pickNode(net *network.Network) (string, error) {
	if !term.IsTerminal(os.Stdout.Fd()) {
		return "", errors.New(errors.ErrCodeInvalidInput, "--node is required when not running interactively")
	}
	return runNodePicker(net)
}

// renderSweep formats a sweep result as a styled grid, durations down and
// return periods across.
func renderSweep(result *pipeline.TableResult) string {
	headers := []string{"duration \\ period"}
	for _, p := range result.ReturnPeriods {
		headers = append(headers, fmt.Sprintf("%gy", p))
	}

	rows := make([][]string, len(result.Durations))
	for i, d := range result.Durations {
		row := []string{fmt.Sprintf("%g min", d)}
		for j := range result.ReturnPeriods {
			row = append(row, fmt.Sprintf("%.0f m³", result.Outflow[i][j]))
		}
		rows[i] = row
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderStyle(StyleDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleTitle.Padding(0, 1)
			}
			if col == 0 {
				return StyleDim.Padding(0, 1)
			}
			return StyleValue.Padding(0, 1)
		})

	return StyleTitle.Render("Discharge for "+result.NodeID) + "\n" + t.Render()
}

// writeSweepCSV writes the sweep as CSV with a duration column and one
// column per return period.
func writeSweepCSV(result *pipeline.TableResult, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(out, "duration_minutes")
	for _, p := range result.ReturnPeriods {
		fmt.Fprintf(out, ",%gy_m3", p)
	}
	fmt.Fprintln(out)

	for i, d := range result.Durations {
		fmt.Fprintf(out, "%g", d)
		for j := range result.ReturnPeriods {
			fmt.Fprintf(out, ",%.2f", result.Outflow[i][j])
		}
		fmt.Fprintln(out)
	}
	return nil
}
