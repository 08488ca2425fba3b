package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
	"github.com/blorticus-go/diameter/stack"
)

// creditControlClientHandler advances each outstanding
// creditControlSession as its Credit-Control-Answer arrives, sending
// the next request in the sequence or tearing the session down once
// its termination answer is received. Registered with the Stack as
// the auth handler for application-id 4 so stack.Stack.Feed's
// dispatch routes every CCA here instead of the client having to
// inspect application traffic by hand.
type creditControlClientHandler struct {
	stack.DefaultApplicationHandler

	s                  *stack.Stack
	sessionBySessionID map[string]*creditControlSession
}

func newCreditControlClientHandler(s *stack.Stack, sessions map[string]*creditControlSession) *creditControlClientHandler {
	return &creditControlClientHandler{s: s, sessionBySessionID: sessions}
}

func (h *creditControlClientHandler) OnAnswer(p *peer.Peer, m *diameter.Message) {
	logDiameterMessage(m, "received", p)

	sessionIDAvp := m.FirstAvpMatching(0, 263)
	if sessionIDAvp == nil {
		logError(errors.New("received CCA without a Session-Id"), p)
		return
	}

	sessionID, err := sessionIDAvp.AsUTF8String()
	if err != nil {
		logError(err, p)
		return
	}

	sess := h.sessionBySessionID[sessionID]
	if sess == nil {
		logError(fmt.Errorf("peer sent CCA with Session-Id (%s) that was not locally generated", sessionID), p)
		return
	}

	if sess.WasTerminating() {
		delete(h.sessionBySessionID, sessionID)
		if len(h.sessionBySessionID) == 0 {
			if err := p.InitiateDisconnect(peer.CauseRebooting); err != nil {
				logError(fmt.Errorf("failed to deliver Disconnect-Peer-Request: %s", err), p)
				os.Exit(3)
			}
		}
		return
	}

	sendCCR(h.s, p, sess)
}

func sendCCR(s *stack.Stack, p *peer.Peer, sess *creditControlSession) {
	ccr := sess.NextRequest()
	if ccr == nil {
		return
	}
	if err := s.SendByPeer(p, ccr, false); err != nil {
		logError(err, p)
		p.InitiateDisconnect(peer.CauseRebooting)
		os.Exit(2)
	}
	logDiameterMessage(ccr, "sent", p)
}
