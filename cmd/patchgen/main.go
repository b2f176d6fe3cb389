package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhalstrom/patchgen/pkg/meta"
	"github.com/jhalstrom/patchgen/pkg/patch"
	"github.com/jhalstrom/patchgen/pkg/plan"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "patchgen",
		Short: "patchgen — audio patch graph resolver",
		Long: `Patchgen resolves declarative audio patch graphs into execution plans
for an embedded audio callback: a validated, deterministically ordered
node list with fixed buffer slots and MIDI bindings.

Patches are JSON (or Graphviz DOT) descriptions of gen and mixer nodes
wired between the audio_in and audio_out hardware boundaries.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(resolveCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	return root
}

// ─── resolve ──────────────────────────────────────────────────────────────────

func resolveCmd() *cobra.Command {
	var (
		unitsPath  string
		versionTag string
		blockSize  int
		channels   int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "resolve <patch.json>",
		Short: "Resolve a patch into an execution plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := loadPatch(args[0])
			if err != nil {
				return err
			}

			lib, err := meta.LoadManifest(unitsPath)
			if err != nil {
				return err
			}

			r, err := plan.NewResolver(lib, plan.ResolutionContext{
				Version:    versionTag,
				BlockSize:  blockSize,
				IOChannels: channels,
			})
			if err != nil {
				return err
			}

			p, err := r.Resolve(g)
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				fmt.Print(renderPlanDOT(g, p))
			case "text", "":
				fmt.Print(renderPlanText(p))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&unitsPath, "units", "units.toml", "TOML manifest of DSP unit metadata")
	cmd.Flags().StringVar(&versionTag, "version-tag", "", "version string stamped into the plan")
	cmd.Flags().IntVar(&blockSize, "block-size", 48, "audio callback block size")
	cmd.Flags().IntVar(&channels, "channels", 2, "hardware I/O channel count")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <patch.json>",
		Short: "Validate a patch without resolving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := loadPatch(args[0])
			if err != nil {
				return err
			}
			mode, lintErr := patch.ValidateErr(g)
			if lintErr != nil {
				return lintErr
			}
			fmt.Printf("OK: patch %q is valid (%s, %d nodes, %d connections)\n",
				g.Name, mode, len(g.Nodes), len(g.Connections))
			return nil
		},
	}
	return cmd
}

// ─── graph ────────────────────────────────────────────────────────────────────

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <patch.json>",
		Short: "Print a human-readable summary of a patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := loadPatch(args[0])
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "dot":
				out, err := renderPatchDOT(g)
				if err != nil {
					return err
				}
				fmt.Print(out)
			case "text", "":
				fmt.Print(renderPatchText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// loadPatch reads and parses a patch file, choosing the front-end by
// extension: .dot/.gv for Graphviz, anything else is JSON.
func loadPatch(path string) (*patch.Graph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch file: %w", err)
	}
	var g *patch.Graph
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		g, err = patch.ParseDOT(string(src))
	default:
		g, err = patch.ParseJSON(src)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}
