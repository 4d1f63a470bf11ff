// Package cli implements the stormflow command-line interface.
//
// This package provides commands for evaluating storm runoff over drainage
// networks, sweeping design-storm tables, rendering networks as DOT or SVG,
// and managing the result cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - evaluate: Accumulate runoff for one storm depth
//   - table: Sweep a design-storm table for one subcatchment
//   - render: Generate DOT or SVG visualizations
//   - validate: Check a network file for structural problems
//   - cache: Manage the result cache
//   - serve: Run the HTTP API
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/perisponge/stormflow/pkg/buildinfo"
	"github.com/perisponge/stormflow/pkg/cache"
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "stormflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "stormflow",
		Short:        "Stormflow routes storm runoff through drainage networks",
		Long:         `Stormflow is a CLI tool for computing how storm runoff accumulates through urban drainage networks, accounting for per-subcatchment retention capacity.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.evaluateCommand())
	root.AddCommand(c.tableCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stormflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	return strings.Split(s, ",")
}

// parseRetention converts repeated "node=volume" flags into a retention map.
// Volumes are in cubic meters.
func parseRetention(specs []string) (map[string]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(specs))
	for _, spec := range specs {
		id, volStr, ok := strings.Cut(spec, "=")
		if !ok || id == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid retention %q (expected node=volume)", spec)
		}
		vol, err := strconv.ParseFloat(volStr, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid retention volume %q for node %s", volStr, id)
		}
		if vol < 0 {
			return nil, errors.New(errors.ErrCodeInvalidRetention, "retention for node %s must be non-negative", id)
		}
		out[id] = vol
	}
	return out, nil
}
