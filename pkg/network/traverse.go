package network

// UpstreamOrder computes the accumulation order for the network.
//
// Starting at the outlet, the network is traversed breadth-first over
// reversed edges (outlet outward toward headwaters). The returned order
// lists node IDs in discovery order, outlet first and headwaters last.
// Contributors maps each visited node to the upstream neighbors discovered
// through it; because only tree edges are recorded, every node appears as a
// contributor at most once even if it drains into several downstream
// neighbors, so its volume is never double-counted.
//
// Processing the order in reverse visits every contributor before the node
// it discharges into, which is exactly the leaves-before-outlet evaluation
// the accumulation needs.
//
// Nodes unreachable from the outlet in the reversed traversal are excluded
// from both the order and the contributor sets. Returns ErrOutletNotFound
// if the outlet ID is not a node in the network.
func (n *Network) UpstreamOrder() (order []string, contributors map[string][]string, err error) {
	if _, ok := n.nodes[n.outlet]; !ok {
		return nil, nil, ErrOutletNotFound
	}

	contributors = make(map[string][]string, len(n.nodes))
	seen := map[string]bool{n.outlet: true}
	queue := []string{n.outlet}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, up := range n.upstream[id] {
			if seen[up] {
				continue
			}
			seen[up] = true
			contributors[id] = append(contributors[id], up)
			queue = append(queue, up)
		}
	}

	return order, contributors, nil
}
