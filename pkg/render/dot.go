// Package render exports drainage networks as Graphviz DOT and SVG.
//
// The rendering is a reporting surface over the computed outflow vector:
// each subcatchment is drawn as a box annotated with its area and outflow,
// shaded by its share of the maximum outflow, with the outlet highlighted.
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// generation, so no graphviz binary is required on the host.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/perisponge/stormflow/pkg/network"
)

// Options configures DOT generation.
type Options struct {
	// Outflow annotates nodes with discharge volumes and drives the fill
	// shading. May be nil, in which case only IDs and areas are shown.
	// Must be aligned to the network's node enumeration when set.
	Outflow []float64

	// Depth is the precipitation depth the outflow was computed for,
	// shown in the graph label when non-zero.
	Depth float64
}

// ToDOT converts a drainage network to Graphviz DOT format.
// Edges follow the drainage direction, so rendered flow runs top to bottom
// toward the outlet. The resulting DOT string can be rendered with
// [RenderSVG].
func ToDOT(n *network.Network, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph drainage {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Depth > 0 {
		fmt.Fprintf(&buf, "  label=\"runoff at %.1f mm\";\n", opts.Depth)
	}
	buf.WriteString("\n")

	maxOut := 0.0
	for _, v := range opts.Outflow {
		if v > maxOut {
			maxOut = v
		}
	}

	for i, nd := range n.Nodes() {
		label := fmtLabel(nd, opts, i)
		attrs := fmtAttrs(n, nd, label, opts, i, maxOut)
		fmt.Fprintf(&buf, "  %q [%s];\n", nd.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range n.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(nd *network.Node, opts Options, i int) string {
	parts := []string{nd.ID, fmt.Sprintf("%.2f ha", nd.Area)}
	if i < len(opts.Outflow) {
		parts = append(parts, fmt.Sprintf("%.0f m³", opts.Outflow[i]))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *network.Network, nd *network.Node, label string, opts Options, i int, maxOut float64) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if nd.ID == n.Outlet() {
		attrs = append(attrs, "shape=doubleoctagon", "penwidth=2")
	}
	if i < len(opts.Outflow) && maxOut > 0 {
		// Shade from white (no discharge) toward blue (maximum discharge).
		frac := opts.Outflow[i] / maxOut
		attrs = append(attrs, fmt.Sprintf("fillcolor=\"#%02x%02xff\"", lerp(0xff, 0x63, frac), lerp(0xff, 0x9c, frac)))
	}
	return attrs
}

func lerp(from, to int, frac float64) int {
	return from + int(frac*float64(to-from))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
