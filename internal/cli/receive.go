package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/replica"
	"github.com/roach88/weft/internal/wire"
)

// NewReceiveCommand creates the receive command.
func NewReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive <envelope>",
		Short: "Ingest an operation envelope from a peer replica",
		Long: `Ingest a base64 operation envelope produced by 'weft update' or
'weft pending' on another replica.

The origin replica must already be in this replica's peer set
('weft peer add'). A payload that duplicates a pending local operation is
reported as a conflict with both sides printed; weft never auto-resolves.

Example:
  weft --replica r2 receive "$(weft --replica r1 --store r1.db pending --envelopes | head -1)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceive(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runReceive(cmd *cobra.Command, opts *RootOptions, envelope string) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return WrapExitError(ExitCommandError, "decode envelope", err)
	}
	op, err := wire.Decode(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "decode envelope", err)
	}

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := r.ReceiveRemote(ctx, op)
	if replica.IsUnknownReplica(err) {
		f.Error("UNKNOWN_REPLICA", err.Error(), nil)
		return NewExitError(ExitFailure, "unknown replica")
	}
	if conflict, ok := replica.AsConflict(err); ok {
		pending := make([]string, 0, len(conflict.LocalPending))
		for _, p := range conflict.LocalPending {
			pending = append(pending, string(p))
		}
		f.Error("CONFLICT", conflict.Error(), map[string]any{
			"remote_op":     string(conflict.RemoteOp),
			"from_replica":  conflict.FromReplica,
			"local_pending": pending,
		})
		return NewExitError(ExitFailure, "conflict")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "receive", err)
	}

	if f.Format == "json" {
		snap, err := r.GetState(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "receive", err)
		}
		return f.Success(map[string]any{
			"replica_id": r.ID(),
			"from":       op.OriginReplicaID,
			"clock":      []int64(snap.Clock),
			"ops":        len(state),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "received from %s ops %d\n", op.OriginReplicaID, len(state))
	return nil
}
