package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/replica"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <peer>",
		Short: "Record a completed exchange with a peer",
		Long: `Record that all pending operations have been exchanged with a peer:
clears the pending queue and moves the peer's sync cursor to the current
clock.

weft does not ship operations itself - run the exchange over your
transport first (e.g. pending/receive), then call sync.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions, peerID string) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	err = r.Sync(ctx, peerID)
	if replica.IsUnreachable(err) {
		f.Error("UNREACHABLE", err.Error(), nil)
		return NewExitError(ExitFailure, "unreachable peer")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "sync", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"replica_id": r.ID(), "peer": peerID})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "synced with %s\n", peerID)
	return nil
}
