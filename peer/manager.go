package peer

import (
	"fmt"
	"net"

	"github.com/blorticus-go/diameter"
)

// Realm is an administrative domain: identities are unique within one.
// A Realm is created on first registration and, per spec §4.5, is
// never destroyed by the core even once empty -- peer removal scrubs
// its indices but leaves the Realm object in place.
type Realm struct {
	Name string

	identities    map[string]*Peer
	byApplication map[ApplicationID][]*Peer
}

func newRealm(name string) *Realm {
	return &Realm{
		Name:          name,
		identities:    make(map[string]*Peer),
		byApplication: make(map[ApplicationID][]*Peer),
	}
}

// PeerByIdentity returns the peer currently registered under identity
// in this realm, or nil.
func (r *Realm) PeerByIdentity(identity string) *Peer {
	return r.identities[identity]
}

// PeersSupporting returns the peers in this realm that advertised app
// at their last Capabilities-Exchange.
func (r *Realm) PeersSupporting(app ApplicationID) []*Peer {
	return r.byApplication[app]
}

// PeerManager owns every Peer and Realm in a stack. It is the sole
// mutator of peer/realm state; Realm and any retransmit queue built on
// top of it hold only non-owning references back into this structure
// (spec §9's cyclic-reference strategy).
type PeerManager struct {
	io     IOAdapter
	realms map[string]*Realm
}

// NewPeerManager returns a PeerManager that writes through io.
func NewPeerManager(io IOAdapter) *PeerManager {
	return &PeerManager{
		io:     io,
		realms: make(map[string]*Realm),
	}
}

// ClientV4Add creates a CLIENT-role peer and asks the IOAdapter to
// connect it to (host, port).
func (m *PeerManager) ClientV4Add(host string, port uint16, config Config) (*Peer, error) {
	p := NewClientPeer(m.io, config)
	p.IPv4 = net.ParseIP(host)
	p.Port = port

	if err := m.io.ConnectV4(p, host, port); err != nil {
		return nil, fmt.Errorf("connecting to %s:%d: %w", host, port, err)
	}

	return p, nil
}

// ServerV4Add creates a LISTEN-role peer and asks the IOAdapter to
// begin accepting connections on (host, port).
func (m *PeerManager) ServerV4Add(host string, port uint16, config Config) (*Peer, error) {
	p := NewListenPeer(m.io, config)
	p.IPv4 = net.ParseIP(host)
	p.Port = port

	if err := m.io.ListenV4(p, host, port); err != nil {
		return nil, fmt.Errorf("listening on %s:%d: %w", host, port, err)
	}

	return p, nil
}

// ServerV4Accept creates a new SERVER-role peer, in WaitCer, for a
// connection the host accepted on behalf of listener.
func (m *PeerManager) ServerV4Accept(listener *Peer, remoteIPv4 net.IP, remotePort uint16, config Config) *Peer {
	p := NewServerPeer(m.io, config)
	p.IPv4 = remoteIPv4
	p.Port = remotePort
	return p
}

// RegisterPeer records p's identity, realm, and advertised
// applications in the manager's realm index. A second registration of
// the same identity within a realm fails with ErrDuplicateIdentity;
// the caller must then close the newer peer's connection.
func (m *PeerManager) RegisterPeer(p *Peer, identity, realm string, apps map[ApplicationID]bool) error {
	r, ok := m.realms[realm]
	if !ok {
		r = newRealm(realm)
		m.realms[realm] = r
	}

	if _, exists := r.identities[identity]; exists {
		return fmt.Errorf("%w: %s in realm %s", diameter.ErrDuplicateIdentity, identity, realm)
	}

	r.identities[identity] = p

	for app := range apps {
		r.byApplication[app] = append(r.byApplication[app], p)
	}

	return nil
}

// RemovePeer scrubs p from realm's identity map and from every
// application list. The Realm itself is retained even if now empty.
func (m *PeerManager) RemovePeer(p *Peer, identity, realm string) {
	r, ok := m.realms[realm]
	if !ok {
		return
	}

	if r.identities[identity] == p {
		delete(r.identities, identity)
	}

	for app, peers := range r.byApplication {
		kept := peers[:0]
		for _, q := range peers {
			if q != p {
				kept = append(kept, q)
			}
		}
		r.byApplication[app] = kept
	}
}

// Realm returns the named realm, or nil if it has never been used.
func (m *PeerManager) Realm(name string) *Realm {
	return m.realms[name]
}

// Send writes msg to p via its IOAdapter.
func (m *PeerManager) Send(p *Peer, msg *diameter.Message) error {
	return p.SendApplicationMessage(msg)
}

// AllPeers returns every peer currently registered in any realm, for
// a host to drive periodic Tick calls across. Order is unspecified.
func (m *PeerManager) AllPeers() []*Peer {
	var all []*Peer
	for _, r := range m.realms {
		for _, p := range r.identities {
			all = append(all, p)
		}
	}
	return all
}
