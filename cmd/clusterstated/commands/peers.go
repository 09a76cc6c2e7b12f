package commands

// peerTable adapts a static node->baseURL map from config into both
// clustertask.PeerResolver and clustertopic.PeerLister, so the two HTTP
// transports share one source of peer addresses.
type peerTable struct {
	m map[string]string
}

func newPeerTable(m map[string]string) *peerTable {
	return &peerTable{m: m}
}

// Addr implements clustertask.PeerResolver.
func (p *peerTable) Addr(node string) (string, bool) {
	addr, ok := p.m[node]
	return addr, ok
}

// Peers implements clustertopic.PeerLister.
func (p *peerTable) Peers() map[string]string {
	return p.m
}
