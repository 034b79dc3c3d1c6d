package dqn

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// checkpointVersion guards against loading blobs written by an incompatible
// build. Bump on any change to the checkpoint layout.
const checkpointVersion = 1

// checkpoint is the serialized form of an agent's learned parameters.
type checkpoint struct {
	Version  int           `msgpack:"version"`
	Strategy string        `msgpack:"strategy"`
	Params   NetworkParams `msgpack:"params"`
}

// ExportParameters serializes the behavior network's parameters to an opaque
// blob. Where the blob lives is the caller's concern.
func (a *Agent) ExportParameters() ([]byte, error) {
	blob, err := msgpack.Marshal(checkpoint{
		Version:  checkpointVersion,
		Strategy: a.strategy.String(),
		Params:   a.behavior.Parameters(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return blob, nil
}

// ImportParameters restores the behavior network from a blob produced by
// ExportParameters, and re-syncs the target network so both start identical.
// An incompatible blob fails loudly with no partial load.
func (a *Agent) ImportParameters(blob []byte) error {
	var cp checkpoint
	if err := msgpack.Unmarshal(blob, &cp); err != nil {
		return fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != checkpointVersion {
		return fmt.Errorf("incompatible checkpoint version %d, expected %d", cp.Version, checkpointVersion)
	}

	if err := a.behavior.SetParameters(cp.Params); err != nil {
		return fmt.Errorf("incompatible checkpoint: %w", err)
	}
	if a.target != nil {
		if err := a.target.SyncFrom(a.behavior); err != nil {
			return fmt.Errorf("target sync after import failed: %w", err)
		}
	}
	return nil
}
