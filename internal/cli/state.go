package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "state",
		Short:         "Show the replica's materialized state and clock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd, rootOpts)
		},
	}

	return cmd
}

func runState(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := r.GetState(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "state", err)
	}

	if f.Format == "json" {
		ops := make([]string, 0, len(snap.State))
		for _, p := range snap.State {
			ops = append(ops, string(p))
		}
		data := map[string]any{
			"replica_id": snap.ReplicaID,
			"clock":      []int64(snap.Clock),
			"ops":        ops,
		}
		if snap.ForkedFrom != "" {
			data["forked_from"] = snap.ForkedFrom
		}
		return f.Success(data)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "replica %s\n", snap.ReplicaID)
	fmt.Fprintf(cmd.OutOrStdout(), "clock %s\n", snap.Clock)
	if snap.ForkedFrom != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "forked from %s\n", snap.ForkedFrom)
	}
	for _, p := range snap.State {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", string(p))
	}
	return nil
}
