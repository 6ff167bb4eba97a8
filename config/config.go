// Package config binds the replica configuration contract from
// spec.md §6: an immutable map from ReplicaID to peer identity, loaded
// the way the teacher loads its own config — with spf13/viper.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"dexbft/types"
)

// ReplicaConfig is the immutable peer table the BFM consults via
// IsValidReplica. Grounded on types.ValidatorSet's address-keyed
// validator map in the teacher repo, generalized to the
// ReplicaID -> {address, public key} shape spec.md §6 names.
type ReplicaConfig struct {
	Self     types.ReplicaID
	Replicas map[types.ReplicaID]types.ReplicaInfo
}

// New builds an empty configuration for self, to be populated with
// AddReplica or Load.
func New(self types.ReplicaID) *ReplicaConfig {
	return &ReplicaConfig{
		Self:     self,
		Replicas: make(map[types.ReplicaID]types.ReplicaInfo),
	}
}

// AddReplica registers a peer's identity.
func (c *ReplicaConfig) AddReplica(info types.ReplicaInfo) {
	c.Replicas[info.ID] = info
}

// IsValidReplica reports whether id names a configured peer.
func (c *ReplicaConfig) IsValidReplica(id types.ReplicaID) bool {
	_, ok := c.Replicas[id]
	return ok
}

// Info returns the identity registered for id, if any.
func (c *ReplicaConfig) Info(id types.ReplicaID) (types.ReplicaInfo, bool) {
	info, ok := c.Replicas[id]
	return info, ok
}

// fileConfig mirrors the on-disk YAML shape; viper unmarshals into it
// before we build the ReplicaID-keyed map the rest of the core uses.
type fileConfig struct {
	Self     uint32 `mapstructure:"self"`
	Replicas []struct {
		ID        uint32 `mapstructure:"id"`
		Address   string `mapstructure:"address"`
		PublicKey string `mapstructure:"public_key"`
	} `mapstructure:"replicas"`
}

// Load reads a replica configuration from a YAML file at path, using
// spf13/viper — the teacher's own configuration-loading dependency.
func Load(path string) (*ReplicaConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading replica config")
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, errors.Wrap(err, "parsing replica config")
	}

	cfg := New(types.ReplicaID(fc.Self))
	for _, r := range fc.Replicas {
		cfg.AddReplica(types.ReplicaInfo{
			ID:        types.ReplicaID(r.ID),
			Address:   r.Address,
			PublicKey: []byte(r.PublicKey),
		})
	}
	return cfg, nil
}
