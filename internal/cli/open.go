package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/weft/internal/replica"
	"github.com/roach88/weft/internal/storage/sqlite"
)

// openReplica resolves flags and profile, opens the durable store, and
// returns a replica handle. The caller must Close the returned store.
//
// Peers listed in the profile are added to the trust set on every open;
// AddPeer is idempotent so repeated opens are harmless.
func openReplica(ctx context.Context, opts *RootOptions, diag io.Writer) (*replica.Replica, *sqlite.Store, error) {
	replicaID, storePath, peers, err := resolve(opts)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(diag, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	logger.Debug("opening store", "path", storePath, "replica", replicaID)

	store, err := sqlite.Open(storePath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open store", err)
	}

	r := replica.New(store, replicaID)
	for _, peer := range peers {
		added, err := r.AddPeer(ctx, peer)
		if err != nil {
			store.Close()
			return nil, nil, WrapExitError(ExitCommandError, "add profile peer", err)
		}
		if added {
			logger.Debug("added profile peer", "peer", peer)
		}
	}

	return r, store, nil
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}
