package runoff

import (
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/network"
)

// Retention is a per-subcatchment static storage capacity in cubic meters,
// positionally aligned to the network's node enumeration. A node's retention
// absorbs its own precipitation first; leftover capacity absorbs runon from
// upstream before it is passed further downstream.
type Retention []float64

// NewRetention returns a zero retention vector explicitly sized to the
// network's node count. Always allocate through this factory instead of
// sharing a default vector across calls.
func NewRetention(net *network.Network) Retention {
	return make(Retention, net.NodeCount())
}

// Set writes a retention volume for the named subcatchment, locating its
// vector position through the network's enumeration. Returns
// ErrCodeNodeNotFound if the ID is not part of the network; a silent no-op
// here would make a mistyped subcatchment name indistinguishable from zero
// retention.
func (r Retention) Set(net *network.Network, nodeID string, volume float64) error {
	i, ok := net.Index(nodeID)
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "unknown subcatchment: %s", nodeID)
	}
	if i >= len(r) {
		return errors.New(errors.ErrCodeInvalidRetention,
			"retention length %d does not match node count %d", len(r), net.NodeCount())
	}
	r[i] = volume
	return nil
}

// Clone returns an independent copy of the retention vector.
func (r Retention) Clone() Retention {
	if r == nil {
		return nil
	}
	out := make(Retention, len(r))
	copy(out, r)
	return out
}
