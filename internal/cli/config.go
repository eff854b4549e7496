package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the optional YAML configuration for a replica.
//
// Example:
//
//	replica_id: cart-replica-1
//	store: /var/lib/weft/cart.db
//	peers:
//	  - cart-replica-2
//	  - cart-replica-3
type Profile struct {
	ReplicaID string   `yaml:"replica_id"`
	Store     string   `yaml:"store"`
	Peers     []string `yaml:"peers"`
}

// LoadProfile reads a YAML profile from disk.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

// resolve merges the profile (if any) under the explicit flags.
// Flags win; the profile fills gaps. Returns the effective replica id,
// store path, and profile peers.
func resolve(opts *RootOptions) (replicaID, store string, peers []string, err error) {
	replicaID = opts.Replica
	store = opts.Store

	if opts.Config != "" {
		p, err := LoadProfile(opts.Config)
		if err != nil {
			return "", "", nil, err
		}
		if replicaID == "" {
			replicaID = p.ReplicaID
		}
		if p.Store != "" && store == "weft.db" {
			store = p.Store
		}
		// The peer list describes the profile's replica, not whichever
		// replica a flag points at.
		if replicaID == p.ReplicaID {
			peers = p.Peers
		}
	}

	if replicaID == "" {
		return "", "", nil, NewExitError(ExitCommandError, "no replica id: pass --replica or set replica_id in the profile")
	}
	return replicaID, store, peers, nil
}
