package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/perisponge/stormflow/pkg/netio"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <network.json>",
		Short: "Check a network file for structural problems",
		Long: `Validate reads a network file and checks it for missing outlets,
negative areas, cycles, and subcatchments that never reach the outlet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0])
		},
	}
}

func (c *CLI) runValidate(path string) error {
	net, err := netio.ReadNetworkFile(path)
	if err != nil {
		return err
	}
	if err := net.Validate(); err != nil {
		printError("%v", err)
		return err
	}

	order, _, err := net.UpstreamOrder()
	if err != nil {
		return err
	}

	printSuccess("Network is valid")
	printStats(net.NodeCount(), net.EdgeCount(), false)
	printKeyValue("outlet", net.Outlet())

	totalArea := 0.0
	for _, nd := range net.Nodes() {
		totalArea += nd.Area
	}
	printKeyValue("area", fmt.Sprintf("%.2f ha", totalArea))

	if len(order) < net.NodeCount() {
		unreachable := net.NodeCount() - len(order)
		printWarning("%d subcatchment(s) never drain to the outlet", unreachable)
		for _, id := range net.Order() {
			if !slices.Contains(order, id) {
				printDetail("%s", id)
			}
		}
	}

	printNextStep("Evaluate a storm", fmt.Sprintf("stormflow evaluate %s --depth 25", path))
	return nil
}
