// Package stack implements the Diameter stack router: identifier
// allocation, request/answer construction, the application registry,
// incoming dispatch, and timed retransmission (spec §4.6). Like
// package peer, it is single-threaded and synchronous -- a Stack
// mutates its state only in response to a direct call from the host
// (spec §5); it starts no goroutine and holds no lock.
package stack

import (
	"net"
	"time"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
)

// Stack is the single unit of isolation the core core offers: every
// Peer, Realm, identifier counter, retransmit record, and registered
// application handler reachable from a Stack belongs to that Stack
// alone (spec §9's "no global mutable state").
type Stack struct {
	ProductName string
	IPv4Address net.IP

	identity         string
	realm            string
	vendorID         uint32
	firmwareRevision uint32
	watchdogSeconds  int

	dictionary         *diameter.Dictionary
	supportedVendorIDs []uint32

	authApps map[peer.ApplicationID]ApplicationHandler
	acctApps map[peer.ApplicationID]ApplicationHandler

	manager     *peer.PeerManager
	seq         *sequenceGenerator
	retransmits *retransmitQueue

	logger peer.Logger
}

// NewStack returns a Stack that advertises productName and ip4Address
// in its Capabilities-Exchange, writing peer traffic through io.
func NewStack(productName string, ip4Address net.IP, io peer.IOAdapter) *Stack {
	return &Stack{
		ProductName:     productName,
		IPv4Address:     ip4Address,
		watchdogSeconds: 30,
		authApps:        make(map[peer.ApplicationID]ApplicationHandler),
		acctApps:        make(map[peer.ApplicationID]ApplicationHandler),
		manager:         peer.NewPeerManager(io),
		seq:             newSequenceGenerator(),
		retransmits:     newRetransmitQueue(),
		logger:          nopLogger{},
	}
}

type nopLogger struct{}

func (nopLogger) Printf(format string, args ...any) {}

// SetLogger overrides the Stack's no-op default logger.
func (s *Stack) SetLogger(l peer.Logger) { s.logger = l }

// SetIdentity sets this Stack's Origin-Host.
func (s *Stack) SetIdentity(originHost string) { s.identity = originHost }

// Identity returns this Stack's configured Origin-Host.
func (s *Stack) Identity() string { return s.identity }

// SetRealm sets this Stack's Origin-Realm.
func (s *Stack) SetRealm(originRealm string) { s.realm = originRealm }

// Realm returns this Stack's configured Origin-Realm.
func (s *Stack) Realm() string { return s.realm }

// SetVendorID sets the Vendor-Id this Stack advertises.
func (s *Stack) SetVendorID(vendorID uint32) { s.vendorID = vendorID }

// SetFirmwareRevision sets the Firmware-Revision this Stack advertises.
func (s *Stack) SetFirmwareRevision(revision uint32) { s.firmwareRevision = revision }

// SetWatchdogSeconds configures the Device-Watchdog interval: an Open
// peer sends a DWR each time it elapses. A missing DWA is not tracked;
// no peer is marked unhealthy or closed for lack of one.
func (s *Stack) SetWatchdogSeconds(seconds int) { s.watchdogSeconds = seconds }

// RegisterDictionary attaches the dictionary application handlers may
// use to build/search AVPs by name; the Stack itself does not require
// one for its own connection-state traffic.
func (s *Stack) RegisterDictionary(d *diameter.Dictionary) { s.dictionary = d }

// Dictionary returns the registered dictionary, or nil.
func (s *Stack) Dictionary() *diameter.Dictionary { return s.dictionary }

// RegisterSupportedVendor adds a Supported-Vendor-Id this Stack
// advertises in its CER/CEA.
func (s *Stack) RegisterSupportedVendor(vendorID uint32) {
	s.supportedVendorIDs = append(s.supportedVendorIDs, vendorID)
}

// RegisterAuthApplication registers handler for the given
// (vendor-id, application-id) under the auth namespace.
func (s *Stack) RegisterAuthApplication(vendorID, applicationID uint32, handler ApplicationHandler) {
	s.authApps[peer.ApplicationID{VendorID: vendorID, ID: applicationID}] = handler
}

// RegisterAcctApplication registers handler for the given
// (vendor-id, application-id) under the accounting namespace.
func (s *Stack) RegisterAcctApplication(vendorID, applicationID uint32, handler ApplicationHandler) {
	s.acctApps[peer.ApplicationID{VendorID: vendorID, ID: applicationID}] = handler
}

func (s *Stack) peerConfig() peer.Config {
	hostIPs := []net.IP{}
	if s.IPv4Address != nil {
		hostIPs = []net.IP{s.IPv4Address}
	}

	var auth, acct []peer.ApplicationID
	for app := range s.authApps {
		auth = append(auth, app)
	}
	for app := range s.acctApps {
		acct = append(acct, app)
	}

	return peer.Config{
		LocalIdentity: peer.Identity{
			OriginHost:      s.identity,
			OriginRealm:     s.realm,
			HostIPAddresses: hostIPs,
			VendorID:        s.vendorID,
			ProductName:     s.ProductName,
		},
		FirmwareRevision:   s.firmwareRevision,
		SupportedVendorIDs: s.supportedVendorIDs,
		AuthApplications:   auth,
		AcctApplications:   acct,
		WatchdogInterval:   time.Duration(s.watchdogSeconds) * time.Second,
		Logger:             s.logger,
	}
}

// ClientV4Add creates a CLIENT-role peer and connects it to (host, port).
func (s *Stack) ClientV4Add(host string, port uint16) (*peer.Peer, error) {
	return s.manager.ClientV4Add(host, port, s.peerConfig())
}

// ServerV4Add creates a LISTEN-role peer accepting connections on (host, port).
func (s *Stack) ServerV4Add(host string, port uint16) (*peer.Peer, error) {
	return s.manager.ServerV4Add(host, port, s.peerConfig())
}

// ServerV4Accept creates a new SERVER-role peer for a connection the
// host accepted on behalf of listener.
func (s *Stack) ServerV4Accept(listener *peer.Peer, remoteIPv4 net.IP, remotePort uint16) *peer.Peer {
	return s.manager.ServerV4Accept(listener, remoteIPv4, remotePort, s.peerConfig())
}

// NextHopByHopID allocates the next hop-by-hop identifier.
func (s *Stack) NextHopByHopID() uint32 { return s.seq.NextHopByHopID() }

// NextEndToEndID allocates the next end-to-end identifier.
func (s *Stack) NextEndToEndID() uint32 { return s.seq.NextEndToEndID() }

// SendByPeer writes m to p. When retransmit is true and m is a
// request, a retransmitRecord is queued so Tick resends it until an
// answer with a matching hop-by-hop-id arrives or the retry budget is
// exhausted.
func (s *Stack) SendByPeer(p *peer.Peer, m *diameter.Message, retransmit bool) error {
	if err := p.SendApplicationMessage(m); err != nil {
		return err
	}

	if retransmit && m.IsRequest() {
		s.retransmits.add(p, m, time.Now())
	}

	return nil
}

// Feed hands p newly received bytes, frames them into messages, lets
// p's own state machine consume connection-state traffic, and routes
// anything left over through incoming dispatch. Returns the number of
// bytes consumed; a negative return means p's transport is
// unrecoverable and the host must close it.
func (s *Stack) Feed(p *peer.Peer, buf []byte) (consumed int, err error) {
	consumed, appMessages, feedErr := p.Feed(buf)

	for _, m := range appMessages {
		s.dispatch(p, m)
	}

	if feedErr != nil {
		if registered := s.deregisterPeerOnClose(p); registered {
			s.logger.Printf("peer %s closed: %s", p.State(), feedErr)
		}
	}

	return consumed, feedErr
}

// RegisterPeer records p's negotiated identity/realm/applications
// (captured once its Feed call transitions it to Open) into the realm
// index, enforcing per-realm identity uniqueness.
func (s *Stack) RegisterPeer(p *peer.Peer) error {
	if p.Identity == nil {
		return diameter.ErrCapabilitiesFailure
	}
	return s.manager.RegisterPeer(p, p.Identity.OriginHost, p.Realm, p.Applications)
}

func (s *Stack) deregisterPeerOnClose(p *peer.Peer) bool {
	if p.Identity == nil {
		return false
	}
	s.manager.RemovePeer(p, p.Identity.OriginHost, p.Realm)
	return true
}

// Tick drives retransmission and per-application timers. The host
// calls this periodically; every queued request past its retry budget
// is dropped and surfaces through its handler's OnRetransmit hook (the
// handler is expected to distinguish exhaustion from receipt by
// checking its own bookkeeping -- spec.md §9's fourth open-question
// resolution keeps this a drop, never a retained/nil entry), and every
// distinct handler registered across the auth and acct maps receives
// one OnTick call.
func (s *Stack) Tick(now time.Time) {
	for _, p := range s.manager.AllPeers() {
		_ = p.Tick(now)
	}

	for _, rec := range s.retransmits.tick(now) {
		vendorID, appID := s.deriveVendorAndApplication(rec.message)
		if handler, ok := s.authApps[peer.ApplicationID{VendorID: vendorID, ID: appID}]; ok {
			handler.OnRetransmit(rec.p, rec.message)
		} else if handler, ok := s.acctApps[peer.ApplicationID{VendorID: vendorID, ID: appID}]; ok {
			handler.OnRetransmit(rec.p, rec.message)
		}
	}

	seen := make(map[ApplicationHandler]bool)
	for _, h := range s.authApps {
		if !seen[h] {
			seen[h] = true
			h.OnTick()
		}
	}
	for _, h := range s.acctApps {
		if !seen[h] {
			seen[h] = true
			h.OnTick()
		}
	}
}
