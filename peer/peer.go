package peer

import (
	"fmt"
	"net"
	"time"

	"github.com/blorticus-go/diameter"
)

// Role is the transport-establishment role a Peer plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
	RoleListen
)

// StateName names a Peer's current position in the state machine of
// spec §4.4, useful for logging and tests.
type StateName string

const (
	StateWaitConn  StateName = "WaitConn"
	StateCerSent   StateName = "CerSent"
	StateWaitCer   StateName = "WaitCer"
	StateListen    StateName = "Listen"
	StateOpen      StateName = "Open"
	StateClosed    StateName = "Closed"
)

// ApplicationID identifies a Diameter application by its
// (vendor-id, application-id) pair; vendor-id 0 is the IETF namespace.
type ApplicationID struct {
	VendorID uint32
	ID       uint32
}

// DisconnectCause is the Disconnect-Cause (273) AVP value carried in a
// Disconnect-Peer-Request. spec.md names DPR/DPA but leaves the cause
// values implicit; these are the three defined by RFC 6733 §5.4.1.
type DisconnectCause int32

const (
	CauseRebooting                DisconnectCause = 0
	CauseBusy                     DisconnectCause = 1
	CauseDoNotWantToTalkToYou     DisconnectCause = 2
)

// Config is the local entity's advertised identity and the
// connection-level parameters a Peer needs to run its state machine.
// It is supplied once at construction and not mutated afterward.
type Config struct {
	LocalIdentity      Identity
	FirmwareRevision   uint32
	SupportedVendorIDs []uint32
	AuthApplications   []ApplicationID
	AcctApplications   []ApplicationID
	WatchdogInterval   time.Duration
	Logger             Logger
}

func (c Config) logger() Logger {
	if c.Logger == nil {
		return nopLogger{}
	}
	return c.Logger
}

func (c Config) watchdogInterval() time.Duration {
	if c.WatchdogInterval <= 0 {
		return 30 * time.Second
	}
	return c.WatchdogInterval
}

// Peer is one Diameter connection and its capabilities-exchange /
// watchdog / disconnect state machine. Every method runs to
// completion synchronously; a Peer holds no lock and starts no
// goroutine. A host driving several connections concurrently must
// serialize its own calls into a given Peer (spec §5).
type Peer struct {
	Role         Role
	Identity     *Identity
	Realm        string
	Applications map[ApplicationID]bool
	IPv4         net.IP
	Port         uint16
	LastWatchdog time.Time

	config Config
	io     IOAdapter
	seq    *localSequence
	state  peerState
	inbuf  []byte

	watchdogDeadline time.Time
}

// NewClientPeer returns a Peer that, once the host reports the
// transport connected via OnTransportConnected, emits a CER and moves
// to CerSent.
func NewClientPeer(io IOAdapter, config Config) *Peer {
	return &Peer{
		Role:         RoleClient,
		Applications: make(map[ApplicationID]bool),
		config:       config,
		io:           io,
		seq:          newLocalSequence(),
		state:        &waitConnState{},
	}
}

// NewServerPeer returns a Peer, typically created by a PeerManager
// upon accepting an inbound connection, that waits for a CER.
func NewServerPeer(io IOAdapter, config Config) *Peer {
	return &Peer{
		Role:         RoleServer,
		Applications: make(map[ApplicationID]bool),
		config:       config,
		io:           io,
		seq:          newLocalSequence(),
		state:        &waitCerState{},
	}
}

// NewListenPeer returns a Peer representing a listening socket. It
// never itself enters the message-handling states; accepted
// connections are separate Peers created with NewServerPeer.
func NewListenPeer(io IOAdapter, config Config) *Peer {
	return &Peer{
		Role:         RoleListen,
		Applications: make(map[ApplicationID]bool),
		config:       config,
		io:           io,
		seq:          newLocalSequence(),
		state:        &listenState{},
	}
}

// State returns the name of the Peer's current state.
func (p *Peer) State() StateName {
	return p.state.Name()
}

// IsOpen reports whether the capabilities-exchange handshake has
// completed and the peer is ready to carry application traffic.
func (p *Peer) IsOpen() bool {
	return p.state.Name() == StateOpen
}

// IsClosed is the inverse of IsOpen for a torn-down connection,
// provided to improve readability of conditionals.
func (p *Peer) IsClosed() bool {
	return p.state.Name() == StateClosed
}

// OnTransportConnected notifies the Peer that its outbound transport
// (opened via IOAdapter.ConnectV4) is now established. Only
// meaningful for a CLIENT-role peer in WaitConn; it emits a CER.
func (p *Peer) OnTransportConnected() error {
	next, _, err := p.state.onTransportConnected(p)
	if next != nil {
		p.state = next
	}
	return err
}

// Feed hands the Peer newly received bytes. It decodes as many whole
// Diameter messages as are present, drives each through the state
// machine, and returns the number of bytes consumed. Per spec §4.2 a
// return of 0 means "not enough bytes yet" (not an error); a negative
// return means the leading bytes were not a valid Diameter message and
// the caller must treat the connection as unrecoverable (the Peer has
// already transitioned to Closed). appMessages holds any decoded
// messages that are ordinary application traffic rather than
// connection-state traffic -- the caller (typically a stack.Stack) is
// responsible for dispatching those to a handler.
func (p *Peer) Feed(buf []byte) (consumed int, appMessages []*diameter.Message, err error) {
	p.inbuf = append(p.inbuf, buf...)

	totalConsumed := 0

	for {
		msg, n, decodeErr := diameter.DecodeNextMessage(p.inbuf)
		if decodeErr != nil {
			p.transitionToClosed()
			return -1, appMessages, decodeErr
		}
		if msg == nil {
			break
		}

		p.inbuf = p.inbuf[n:]
		totalConsumed += n

		appMsg, dispatchErr := p.dispatchIncoming(msg)
		if appMsg != nil {
			appMessages = append(appMessages, appMsg)
		}
		if dispatchErr != nil {
			err = dispatchErr
		}
	}

	return totalConsumed, appMessages, err
}

// Flush signals an explicit upstream notification with no new bytes
// (spec §4.4's feed(empty)). It is a no-op for framing but gives the
// host a point to synchronously observe the current state.
func (p *Peer) Flush() {}

// TransportError signals that the Peer's transport has failed or been
// closed out-of-band (spec §4.4's feed(error)); the Peer transitions
// to Closed regardless of its prior state.
func (p *Peer) TransportError() {
	p.transitionToClosed()
}

// Tick drives time-based transitions: watchdog expiry in Open. The
// host calls this periodically (the same cadence it calls
// stack.Stack.Tick with).
func (p *Peer) Tick(now time.Time) error {
	if p.state.Name() != StateOpen {
		return nil
	}

	if p.watchdogDeadline.IsZero() {
		p.armWatchdog(now)
		return nil
	}

	if now.Before(p.watchdogDeadline) {
		return nil
	}

	next, _, err := p.state.onWatchdogTimerElapsed(p)
	if next != nil {
		p.state = next
	}
	p.armWatchdog(now)
	return err
}

func (p *Peer) armWatchdog(now time.Time) {
	p.watchdogDeadline = now.Add(p.config.watchdogInterval())
}

// InitiateDisconnect begins the Disconnect-Peer procedure by sending a
// DPR with the given cause. Only meaningful from Open.
func (p *Peer) InitiateDisconnect(cause DisconnectCause) error {
	if p.state.Name() != StateOpen {
		return fmt.Errorf("cannot initiate disconnect from state %s", p.state.Name())
	}
	return p.sendRaw(p.buildDPR(cause))
}

// SendApplicationMessage writes an application message (built by a
// stack.Stack) out to this peer's transport. Only meaningful from
// Open.
func (p *Peer) SendApplicationMessage(m *diameter.Message) error {
	if p.state.Name() != StateOpen {
		return fmt.Errorf("cannot send to peer in state %s", p.state.Name())
	}
	return p.sendRaw(m)
}

func (p *Peer) sendRaw(m *diameter.Message) error {
	return p.io.Write(p, m.Encode())
}

func (p *Peer) transitionToClosed() {
	p.state = &closedState{}
}

// dispatchIncoming routes one fully-framed message to the appropriate
// state-machine handler by command code, returning a non-nil message
// only when it is ordinary application traffic the caller must route
// itself.
func (p *Peer) dispatchIncoming(m *diameter.Message) (*diameter.Message, error) {
	var next peerState
	var appMsg *diameter.Message
	var err error

	switch {
	case m.AppID == 0 && uint32(m.Code) == 257 && m.IsRequest():
		next, _, err = p.state.onCER(p, m)
	case m.AppID == 0 && uint32(m.Code) == 257 && m.IsAnswer():
		next, _, err = p.state.onCEA(p, m)
	case m.AppID == 0 && uint32(m.Code) == 280 && m.IsRequest():
		next, _, err = p.state.onDWR(p, m)
	case m.AppID == 0 && uint32(m.Code) == 280 && m.IsAnswer():
		next, _, err = p.state.onDWA(p, m)
	case m.AppID == 0 && uint32(m.Code) == 282 && m.IsRequest():
		next, _, err = p.state.onDPR(p, m)
	case m.AppID == 0 && uint32(m.Code) == 282 && m.IsAnswer():
		next, _, err = p.state.onDPA(p, m)
	default:
		next, appMsg, err = p.state.onApplicationMessage(p, m)
	}

	if next != nil {
		p.state = next
	}

	return appMsg, err
}
