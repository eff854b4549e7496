package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/vclock"
)

// NewClockCommand creates the clock command group.
func NewClockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Vector clock operations",
		Long: `Operate on the replica's causal clock directly: stamp events, compare
recorded events, and merge clock literals.`,
	}

	cmd.AddCommand(newClockTickCommand(rootOpts))
	cmd.AddCommand(newClockCompareCommand(rootOpts))
	cmd.AddCommand(newClockMergeCommand(rootOpts))

	return cmd
}

func newClockTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tick",
		Short:         "Advance the replica's clock and record a causal event",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClockTick(cmd, rootOpts)
		},
	}
}

func newClockCompareCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <event-a> <event-b>",
		Short: "Compare two recorded causal events",
		Long: `Print the happens-before relation between two recorded events:
before, after, or concurrent. Unknown events compare as concurrent.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClockCompare(cmd, rootOpts, args[0], args[1])
		},
	}
}

func newClockMergeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <clock-a> <clock-b>",
		Short: "Merge two clock literals",
		Long: `Merge two comma-separated clock literals of equal dimension into their
component-wise maximum.

Example:
  weft clock merge 3,1,2 1,4,1   # [3 4 2]`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClockMerge(cmd, rootOpts, args[0], args[1])
		},
	}
}

func runClockTick(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	eventID, clock, err := r.Tracker().Tick(ctx, r.ID())
	if err != nil {
		return WrapExitError(ExitCommandError, "tick", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{
			"replica_id": r.ID(),
			"event_id":   eventID,
			"clock":      []int64(clock),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "event %s clock %s\n", eventID, clock)
	return nil
}

func runClockCompare(cmd *cobra.Command, opts *RootOptions, a, b string) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	rel, err := r.Tracker().CompareEvents(ctx, a, b)
	if err != nil {
		return WrapExitError(ExitCommandError, "compare", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"a": a, "b": b, "relation": rel.String()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), rel.String())
	return nil
}

func runClockMerge(cmd *cobra.Command, opts *RootOptions, a, b string) error {
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	va, err := parseClock(a)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse clock", err)
	}
	vb, err := parseClock(b)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse clock", err)
	}

	merged, err := vclock.Merge(va, vb)
	if vclock.IsIncompatible(err) {
		f.Error("INCOMPATIBLE", err.Error(), nil)
		return NewExitError(ExitFailure, "incompatible clocks")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "merge", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"merged": []int64(merged)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), merged.String())
	return nil
}

// parseClock parses a comma-separated clock literal like "3,1,2".
func parseClock(s string) (vclock.Vector, error) {
	parts := strings.Split(s, ",")
	out := make(vclock.Vector, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid clock literal %q: %w", s, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid clock literal %q: negative counter", s)
		}
		out = append(out, n)
	}
	return out, nil
}
