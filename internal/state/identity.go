package state

import "errors"

var ErrAlreadyInitialized = errors.New("state: node identity already set")

// Identity holds the id assigned by init and the ids of the other nodes.
type Identity struct {
	id    string
	peers []string
}

// Set records the node id once. peers is filtered to exclude the node itself.
func (i *Identity) Set(id string, nodeIDs []string) error {
	if i.id != "" {
		return ErrAlreadyInitialized
	}
	peers := make([]string, 0, len(nodeIDs))
	for _, n := range nodeIDs {
		if n != id {
			peers = append(peers, n)
		}
	}
	i.id = id
	i.peers = peers
	return nil
}

// ID returns the node id, or "" before init.
func (i *Identity) ID() string {
	return i.id
}

// Initialized reports whether init has been processed.
func (i *Identity) Initialized() bool {
	return i.id != ""
}

// Peers returns the other cluster members.
func (i *Identity) Peers() []string {
	return append([]string(nil), i.peers...)
}
