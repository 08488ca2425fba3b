package main

import (
	"fmt"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
	"github.com/blorticus-go/diameter/stack"
)

// creditControlServer answers every Credit-Control-Request (RFC 4006,
// application-id 4, command code 272) with DIAMETER_SUCCESS, echoing
// back the Session-Id, CC-Request-Type, and CC-Request-Number the peer
// sent. Grounded on generateCCAFromCCR in the teacher's
// examples/applications/base_application_server/main.go.
type creditControlServer struct {
	stack.DefaultApplicationHandler

	s *stack.Stack
}

func newCreditControlServer(s *stack.Stack) *creditControlServer {
	return &creditControlServer{s: s}
}

func (h *creditControlServer) OnRequest(p *peer.Peer, m *diameter.Message) {
	cca, err := h.buildCCA(m)
	if err != nil {
		logError(err, p)
		return
	}

	if err := h.s.SendByPeer(p, cca, false); err != nil {
		logError(err, p)
		return
	}

	logDiameterMessage(cca, "sent", p)
}

func (h *creditControlServer) buildCCA(ccr *diameter.Message) (*diameter.Message, error) {
	for _, code := range []diameter.Uint24{263, 258, 416, 415} {
		if ccr.DoesNotHaveATopLevelAvpMatching(0, code) {
			return nil, fmt.Errorf("CCR is missing AVP with code %d", code)
		}
	}

	mandatory := []*diameter.AVP{
		diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, uint32(2001)),
		diameter.NewTypedAVP(264, 0, true, diameter.DiamIdent, h.s.Identity()),
		diameter.NewTypedAVP(296, 0, true, diameter.DiamIdent, h.s.Realm()),
	}

	optional := []*diameter.AVP{
		ccr.FirstAvpMatching(0, 263),
		ccr.FirstAvpMatching(0, 416),
		ccr.FirstAvpMatching(0, 415),
	}

	return ccr.GenerateMatchingResponseWithAvps(mandatory, optional), nil
}
