package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPeerCommand creates the peer command group.
func NewPeerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Manage the peer trust set",
		Long: `Manage which replicas this replica accepts remote operations from.

Membership is explicit and append-only: a forked replica trusts nobody
until peers are added here.`,
	}

	cmd.AddCommand(newPeerAddCommand(rootOpts))
	cmd.AddCommand(newPeerListCommand(rootOpts))

	return cmd
}

func newPeerAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <peer-id>",
		Short:         "Add a replica to the trust set",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeerAdd(cmd, rootOpts, args[0])
		},
	}
}

func newPeerListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the trust set",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeerList(cmd, rootOpts)
		},
	}
}

func runPeerAdd(cmd *cobra.Command, opts *RootOptions, peerID string) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := r.AddPeer(ctx, peerID)
	if err != nil {
		return WrapExitError(ExitCommandError, "peer add", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"replica_id": r.ID(), "peer": peerID, "added": added})
	}
	if added {
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", peerID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "already known %s\n", peerID)
	}
	return nil
}

func runPeerList(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	peers, err := r.Peers(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "peer list", err)
	}

	if f.Format == "json" {
		return f.Success(map[string]any{"replica_id": r.ID(), "peers": peers})
	}
	for _, p := range peers {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
