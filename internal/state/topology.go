package state

// Topology is the neighbour table assigned by the cluster coordinator.
type Topology struct {
	neighbors map[string][]string
	ready     bool
}

// NewTopology constructs an empty table. Lookups fail until Replace is called.
func NewTopology() *Topology {
	return &Topology{neighbors: make(map[string][]string)}
}

// Replace swaps in mapping wholesale. Neighbour lists are copied so later
// mutation by the caller has no effect.
func (t *Topology) Replace(mapping map[string][]string) {
	next := make(map[string][]string, len(mapping))
	for id, peers := range mapping {
		next[id] = append([]string(nil), peers...)
	}
	t.neighbors = next
	t.ready = true
}

// Ready reports whether a topology has been received.
func (t *Topology) Ready() bool {
	return t.ready
}

// Neighbors returns the ordered neighbour list of id.
func (t *Topology) Neighbors(id string) ([]string, bool) {
	peers, ok := t.neighbors[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), peers...), true
}

// Nodes returns the number of nodes present in the table.
func (t *Topology) Nodes() int {
	return len(t.neighbors)
}
