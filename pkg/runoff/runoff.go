package runoff

import (
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/network"
)

// hectareMillimeters converts ha·mm to m³: 1 ha × 1 mm = 10 m³.
const hectareMillimeters = 10.0

// Options configures a single accumulation run.
type Options struct {
	// Coefficient is the discharge coefficient ψ. It is reserved for a
	// future attenuation model and currently unsupported: any non-zero
	// value makes Accumulate fail with ErrCodeUnsupported instead of being
	// silently ignored.
	Coefficient float64
}

// PrecipVolumes converts a uniform precipitation depth into a raw
// precipitation volume per subcatchment (VQR):
//
//	volume = area [ha] × depth [mm] × 10  →  [m³]
//
// The returned slice is aligned to net.Order(). The function is pure and
// total: it performs no validation, so negative or nonsensical inputs
// produce nonsensical (but well-defined) outputs. Callers that cannot trust
// their input should run net.Validate first.
func PrecipVolumes(net *network.Network, depth float64) []float64 {
	nodes := net.Nodes()
	vols := make([]float64, len(nodes))
	for i, n := range nodes {
		vols[i] = n.Area * depth * hectareMillimeters
	}
	return vols
}

// Accumulate computes the net discharge volume leaving each subcatchment for
// a uniform precipitation depth, accounting for upstream runon and local
// retention.
//
// The algorithm is a single topologically-ordered pass over the network:
//
//  1. Derive the accumulation order from the outlet via
//     [network.Network.UpstreamOrder].
//  2. Convert depth to per-node volumes with [PrecipVolumes].
//  3. Local retention absorbs the node's own precipitation first:
//     outflow = max(volume-retention, 0), remaining = max(retention-volume, 0).
//  4. Walk the order leaves-first; each node receives the summed outflow of
//     its direct contributors, less whatever remaining retention can still
//     absorb, floored at zero.
//
// ret may be nil, meaning zero retention everywhere; a non-nil vector must
// be aligned to net.Order() (use [NewRetention]) and is never mutated - the
// remaining-capacity bookkeeping happens on a working copy, so two calls
// with identical inputs return identical results. Retention is a
// one-time-per-call capacity, not state carried across calls.
//
// Nodes unreachable from the outlet keep their local term from step 3 but
// never contribute downstream. Returns [network.ErrOutletNotFound] if the
// outlet is missing, ErrCodeInvalidRetention if ret has the wrong length, and
// ErrCodeUnsupported if opts.Coefficient is set.
func Accumulate(net *network.Network, depth float64, ret Retention, opts Options) ([]float64, error) {
	if opts.Coefficient != 0 {
		return nil, errors.New(errors.ErrCodeUnsupported, "discharge coefficient is reserved and not implemented")
	}
	if ret != nil && len(ret) != net.NodeCount() {
		return nil, errors.New(errors.ErrCodeInvalidRetention,
			"retention length %d does not match node count %d", len(ret), net.NodeCount())
	}

	order, contributors, err := net.UpstreamOrder()
	if err != nil {
		return nil, err
	}

	vols := PrecipVolumes(net, depth)

	outflow := make([]float64, len(vols))
	remaining := make([]float64, len(vols))
	for i, v := range vols {
		r := 0.0
		if ret != nil {
			r = ret[i]
		}
		outflow[i] = max(v-r, 0)
		remaining[i] = max(r-v, 0)
	}

	// Leaves first: reversing the discovery order guarantees every
	// contributor is final before the node it discharges into.
	for k := len(order) - 1; k >= 0; k-- {
		id := order[k]
		ups := contributors[id]
		if len(ups) == 0 {
			continue
		}
		i, _ := net.Index(id)
		runon := 0.0
		for _, up := range ups {
			j, _ := net.Index(up)
			runon += outflow[j]
		}
		outflow[i] += max(runon-remaining[i], 0)
	}

	return outflow, nil
}
