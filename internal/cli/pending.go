package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	Envelopes bool
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List operations not yet acknowledged by a sync",
		Long: `List the locally-originated operations still waiting for a sync.

With --envelopes, prints one base64 envelope per line, suitable for piping
to 'weft receive' on a peer replica.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Envelopes, "envelopes", false, "print transport envelopes instead of payloads")

	return cmd
}

func runPending(cmd *cobra.Command, opts *PendingOptions) error {
	ctx := cmd.Context()
	f := formatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	r, store, err := openReplica(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	ops, err := r.PendingOperations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "pending", err)
	}

	if f.Format == "json" {
		type entry struct {
			Clock    []int64 `json:"clock"`
			Payload  string  `json:"payload"`
			Envelope string  `json:"envelope"`
		}
		out := make([]entry, 0, len(ops))
		for _, op := range ops {
			encoded, err := op.Encode()
			if err != nil {
				return WrapExitError(ExitCommandError, "encode envelope", err)
			}
			out = append(out, entry{
				Clock:    op.ClockAtOrigin,
				Payload:  string(op.Payload),
				Envelope: base64.StdEncoding.EncodeToString(encoded),
			})
		}
		return f.Success(map[string]any{"replica_id": r.ID(), "pending": out})
	}

	for _, op := range ops {
		if opts.Envelopes {
			encoded, err := op.Encode()
			if err != nil {
				return WrapExitError(ExitCommandError, "encode envelope", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(encoded))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", op.ClockAtOrigin, string(op.Payload))
	}
	return nil
}
