package stack

import (
	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
)

// ApplicationHandler is the capability set a registered Diameter
// application implements. Register by handle in a Stack's auth/acct
// maps; the core never type-tests a handler. A handler that does not
// need to distinguish a retried request from its first delivery can
// embed DefaultApplicationHandler and override OnRetransmit to call
// its own OnRequest.
type ApplicationHandler interface {
	// OnRequest is invoked for an incoming request matching this
	// handler's (vendor-id, application-id).
	OnRequest(p *peer.Peer, m *diameter.Message)

	// OnAnswer is invoked for an incoming answer matching a request
	// this Stack sent; the matching retransmit record, if any, has
	// already been removed by the time this is called.
	OnAnswer(p *peer.Peer, m *diameter.Message)

	// OnRedirect is invoked, instead of OnAnswer, for an answer carrying
	// a redirect indication (result code DIAMETER_REDIRECT_INDICATION); routing
	// policy beyond this hook is out of scope (spec.md Non-goals).
	OnRedirect(p *peer.Peer, m *diameter.Message)

	// OnRetransmit is invoked instead of OnRequest for an incoming
	// request whose T (potentially retransmitted) flag is set; whether
	// its hop-by-hop/end-to-end pair was seen before is not checked.
	// Stack.Tick also invokes it with a request this Stack sent whose
	// retry budget is exhausted.
	OnRetransmit(p *peer.Peer, m *diameter.Message)

	// OnTick is invoked once per Stack.Tick call, deduplicated by
	// handler identity across the auth and acct maps.
	OnTick()
}

// DefaultApplicationHandler gives every hook a no-op default; embed it
// in a concrete handler and override only the hooks that matter.
type DefaultApplicationHandler struct{}

func (DefaultApplicationHandler) OnRequest(p *peer.Peer, m *diameter.Message)    {}
func (DefaultApplicationHandler) OnAnswer(p *peer.Peer, m *diameter.Message)     {}
func (DefaultApplicationHandler) OnRedirect(p *peer.Peer, m *diameter.Message)   {}
func (DefaultApplicationHandler) OnRetransmit(p *peer.Peer, m *diameter.Message) {}
func (DefaultApplicationHandler) OnTick()                                       {}
