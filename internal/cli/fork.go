package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewForkCommand creates the fork command.
func NewForkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fork",
		Short: "Fork this replica into a new one",
		Long: `Create a new replica from this replica's current state and clock.

The child starts with an empty pending queue and an empty peer set -
forking does not imply trust. Use 'weft peer add' on both sides before
exchanging operations.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFork(cmd, rootOpts)
		},
	}

	return cmd
}

func runFork(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	childID, err := r.Fork(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "fork", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"replica_id": r.ID(), "child": childID})
	}
	fmt.Fprintln(cmd.OutOrStdout(), childID)
	return nil
}
