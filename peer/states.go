package peer

import (
	"fmt"
	"time"

	"github.com/blorticus-go/diameter"
)

// peerState is one position in the connection state machine of spec
// §4.4. Each implementation provides one method per incoming message
// kind (mirroring the teacher's agent.PeerState interface), returning
// the next state (nil to stay put), an application message to hand
// back to the caller (only ever non-nil from onApplicationMessage),
// and an error describing any unexpected-in-this-state event.
type peerState interface {
	Name() StateName
	onTransportConnected(p *Peer) (peerState, *diameter.Message, error)
	onCER(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onCEA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onDWR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onDWA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onDPR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onDPA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onApplicationMessage(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error)
	onWatchdogTimerElapsed(p *Peer) (peerState, *diameter.Message, error)
}

func unexpectedEvent(state StateName, event string) error {
	return fmt.Errorf("unexpected %s in state %s", event, state)
}

// baseState gives every concrete state a default "unexpected in this
// state" response for the events it does not itself override.
type baseState struct{}

func (s baseState) onTransportConnected(p *Peer) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent(StateWaitConn, "transport-connected")
}
func (s baseState) onCER(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "CER")
}
func (s baseState) onCEA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "CEA")
}
func (s baseState) onDWR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "DWR")
}
func (s baseState) onDWA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "DWA")
}
func (s baseState) onDPR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "DPR")
}
func (s baseState) onDPA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "DPA")
}
func (s baseState) onApplicationMessage(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "application message")
}
func (s baseState) onWatchdogTimerElapsed(p *Peer) (peerState, *diameter.Message, error) {
	return nil, nil, unexpectedEvent("", "watchdog-timer-elapsed")
}

// waitConnState is the CLIENT role's initial state: it has opened (or
// asked the host to open) a transport and is waiting to be told the
// transport is connected so it can send a CER.
type waitConnState struct{ baseState }

func (waitConnState) Name() StateName { return StateWaitConn }

func (waitConnState) onTransportConnected(p *Peer) (peerState, *diameter.Message, error) {
	if err := p.sendRaw(p.buildCER()); err != nil {
		return &closedState{}, nil, err
	}
	return &cerSentState{}, nil, nil
}

// cerSentState is the CLIENT role's state after sending a CER, waiting
// for the CEA.
type cerSentState struct{ baseState }

func (cerSentState) Name() StateName { return StateCerSent }

func (cerSentState) onCEA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	resultCode, err := decodeResultCode(m.FirstAvpMatching(0, 268))
	if err != nil || resultCode != 2001 {
		return &closedState{}, nil, fmt.Errorf("%w: CEA result-code %d", diameter.ErrCapabilitiesFailure, resultCode)
	}

	identity, err := identityFromCapabilitiesExchangeMessage(m)
	if err != nil {
		return &closedState{}, nil, err
	}

	p.Identity = identity
	p.Realm = identity.OriginRealm
	p.Applications = applicationsAdvertisedByCapabilitiesExchangeMessage(m)
	p.armWatchdog(time.Now())

	return &openState{}, nil, nil
}

// waitCerState is the SERVER role's initial state, waiting for a CER.
type waitCerState struct{ baseState }

func (waitCerState) Name() StateName { return StateWaitCer }

func (waitCerState) onCER(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	identity, err := identityFromCapabilitiesExchangeMessage(m)
	if err != nil {
		_ = p.sendRaw(p.buildCEA(m, 5012)) // DIAMETER_UNABLE_TO_COMPLY
		return &closedState{}, nil, err
	}

	p.Identity = identity
	p.Realm = identity.OriginRealm
	p.Applications = applicationsAdvertisedByCapabilitiesExchangeMessage(m)

	if err := p.sendRaw(p.buildCEA(m, 2001)); err != nil {
		return &closedState{}, nil, err
	}

	p.armWatchdog(time.Now())

	return &openState{}, nil, nil
}

// listenState is held by a Peer that represents a listening socket
// itself; it never receives Diameter messages, only accept events
// which the PeerManager turns into new server-role Peers.
type listenState struct{ baseState }

func (listenState) Name() StateName { return StateListen }

// openState is the post-handshake state where application traffic,
// watchdog, and disconnect all flow.
type openState struct{ baseState }

func (openState) Name() StateName { return StateOpen }

func (openState) onDWR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, nil, p.sendRaw(p.buildDWA(m, 2001))
}

func (openState) onDWA(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	p.LastWatchdog = time.Now()
	return nil, nil, nil
}

func (openState) onDPR(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	if err := p.sendRaw(p.buildDPA(m, 2001)); err != nil {
		return &closedState{}, nil, err
	}
	return &closedState{}, nil, nil
}

func (openState) onApplicationMessage(p *Peer, m *diameter.Message) (peerState, *diameter.Message, error) {
	return nil, m, nil
}

func (openState) onWatchdogTimerElapsed(p *Peer) (peerState, *diameter.Message, error) {
	return nil, nil, p.sendRaw(p.buildDWR())
}

// closedState is terminal: every event is reported as unexpected
// since the transport is considered gone.
type closedState struct{ baseState }

func (closedState) Name() StateName { return StateClosed }

func decodeResultCode(avp *diameter.AVP) (uint32, error) {
	if avp == nil {
		return 0, fmt.Errorf("missing Result-Code AVP")
	}
	return avp.AsUnsigned32()
}
