package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/replica"
)

// updateResult is the output payload for the update command.
type updateResult struct {
	ReplicaID string  `json:"replica_id"`
	Clock     []int64 `json:"clock"`
	Ops       int     `json:"ops"`
	Envelope  string  `json:"envelope"` // base64 msgpack, ready for `weft receive`
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <payload>",
		Short: "Apply a local operation to this replica",
		Long: `Apply a locally-originated operation.

The payload is opaque to weft: it is stamped with the replica's new clock,
appended to the materialized state, and queued for exchange with peers.
The printed envelope can be fed to 'weft receive' on a peer replica.

Example:
  weft --replica r1 update 'set x=1'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *RootOptions, payload string) error {
	ctx := cmd.Context()
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	op, state, err := r.LocalUpdate(ctx, []byte(payload))
	if replica.IsInvalidOp(err) {
		f.Error("INVALID_OP", err.Error(), nil)
		return NewExitError(ExitFailure, "invalid operation")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "update", err)
	}

	encoded, err := op.Encode()
	if err != nil {
		return WrapExitError(ExitCommandError, "encode envelope", err)
	}
	envelope := base64.StdEncoding.EncodeToString(encoded)

	if f.Format == "json" {
		return f.Success(updateResult{
			ReplicaID: r.ID(),
			Clock:     op.ClockAtOrigin,
			Ops:       len(state),
			Envelope:  envelope,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "clock %s ops %d\n", op.ClockAtOrigin, len(state))
	fmt.Fprintf(cmd.OutOrStdout(), "envelope %s\n", envelope)
	return nil
}
