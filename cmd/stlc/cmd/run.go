package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/stl-lang/stlconform/internal/executor"
	"github.com/stl-lang/stlconform/internal/registry"
	"github.com/stl-lang/stlconform/internal/value"
	"github.com/stl-lang/stlconform/pkg/stl"
)

var (
	runArgs  []string
	runSeed  int64
	runSteps int
)

var runCmd = &cobra.Command{
	Use:   "run [manifest]",
	Short: "Drive a conformance test from a manifest",
	Long: `Load the STL program and role instances named by a manifest, then
step every role named in the manifest's 'test' list until each is stuck,
a fatal error occurs, or --steps is exhausted.

run has no access to a real primitive implementation library: every
"external" event and qualifier is served by a
trivial debug registry: events succeed (printing the call with -v) and
qualifiers return an increasing counter, so run is useful
for exercising the state machine shape of a program, not for conformance
against a real implementation. Embed pkg/stl in a host binary that
registers real primitives for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runArgs, "manifest-args", "a", nil, "key=value manifest substitution argument, may be repeated")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "seed a randomized transition-selection policy (0 selects the default first-firable policy)")
	runCmd.Flags().IntVar(&runSteps, "steps", 32, "maximum steps to attempt per driven role before giving up")
}

func runRun(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	substitutions, err := parseManifestArgs(runArgs)
	if err != nil {
		return err
	}

	prog, err := stl.Load(args[0], substitutions, nil)
	if err != nil {
		if le, ok := err.(*stl.LoadError); ok {
			fmt.Fprintln(os.Stderr, le.Format(!noColor))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return fmt.Errorf("loading manifest failed")
	}

	reg := registry.New()
	registerDebugPrimitives(reg, verbose)

	logger := stl.NewLogger("stlc", loggerLevel(verbose))
	var opts []executor.Option
	opts = append(opts, executor.WithLogger(logger))
	if runSeed != 0 {
		opts = append(opts, executor.WithPolicy(executor.NewSeededPolicy(runSeed)))
	}

	exec := prog.NewExecutor(reg, opts...)

	ctx := context.Background()
	for _, fqRole := range prog.DrivenRoles() {
		module, role, ok := splitFQRole(fqRole)
		if !ok {
			fmt.Fprintf(os.Stderr, "skipping %q: not a module::role reference\n", fqRole)
			continue
		}
		fmt.Printf("driving %s\n", fqRole)
		for i := 0; i < runSteps; i++ {
			res, err := exec.Step(ctx, module, role, nil)
			if err != nil {
				if stuck, ok := err.(*executor.StuckError); ok {
					fmt.Printf("  stuck after %d step(s): %v\n", i, stuck.ReachablePreconditions)
					break
				}
				return fmt.Errorf("%s: %w", fqRole, err)
			}
			fmt.Printf("  step %d: fired %s -> %s\n", i, res.Transition, res.FinalState)
		}
	}

	return nil
}

func loggerLevel(verbose bool) hclog.Level {
	if verbose {
		return hclog.Debug
	}
	return hclog.Warn
}

func parseManifestArgs(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --manifest-args entry %q, expected key=value", kv)
		}
		out[key] = value
	}
	return out, nil
}

func splitFQRole(s string) (module, role string, ok bool) {
	module, role, ok = strings.Cut(s, "::")
	return module, role, ok
}

// registerDebugPrimitives seeds reg with a catch-all fallback for every
// external event and qualifier a program declares, since a bare `stlc run`
// has no access to a real primitive implementation library: every event
// succeeds (printing the call when verbose), and every qualifier returns a
// monotonically increasing int.
func registerDebugPrimitives(reg *registry.Registry, verbose bool) {
	var counter int64
	reg.RegisterDefaultQualifier(func(ctx context.Context, args []*value.Value) (*value.Value, error) {
		counter++
		return value.NewInt(counter), nil
	})
	reg.RegisterDefaultEvent(func(ctx context.Context, source, target string, payload *value.Value) registry.EventResult {
		if verbose {
			fmt.Printf("    [debug primitive] %s -> %s\n", source, target)
		}
		return registry.OK()
	})
}
