package main

import (
	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/stack"
)

var cachedResultCode2001 = diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, uint32(2001))

type phase int

const (
	initial phase = iota
	updates
	terminate
	terminating
)

// creditControlSession drives one Credit-Control-Request/Answer
// exchange (RFC 4006, application-id 4) through its initial, update,
// and termination interrogations. Grounded on DiameterSession in the
// teacher's examples/applications/base_application_client/sessions.go,
// rewritten against stack.Stack instead of agent.Agent.
type creditControlSession struct {
	SessionId string

	s *stack.Stack

	phase                 phase
	numberOfUpdatesToSend uint
	updateSequenceNumber  uint
}

func newCreditControlSession(s *stack.Stack, numberOfUpdatesToSend uint) *creditControlSession {
	return &creditControlSession{
		SessionId:             stack.GenerateSessionID(s.Identity()),
		s:                     s,
		phase:                 initial,
		numberOfUpdatesToSend: numberOfUpdatesToSend,
	}
}

// NextRequest returns the next CCR this session should send, advancing
// its phase, or nil once the session has already sent its
// Credit-Control-Request with CC-Request-Type TERMINATION_REQUEST.
func (sess *creditControlSession) NextRequest() *diameter.Message {
	switch sess.phase {
	case initial:
		sess.phase = updates
		return sess.buildCCR(1, 0)

	case updates:
		sess.updateSequenceNumber++
		if sess.updateSequenceNumber >= sess.numberOfUpdatesToSend {
			sess.phase = terminate
		}
		return sess.buildCCR(2, sess.updateSequenceNumber)

	case terminate:
		sess.phase = terminating
		return sess.buildCCR(3, sess.updateSequenceNumber+1)
	}

	return nil
}

// WasTerminating reports whether this session's most recently sent CCR
// carried CC-Request-Type TERMINATION_REQUEST.
func (sess *creditControlSession) WasTerminating() bool {
	return sess.phase == terminating
}

func (sess *creditControlSession) buildCCR(requestType int32, requestNumber uint) *diameter.Message {
	mandatory := []*diameter.AVP{
		diameter.NewTypedAVP(263, 0, true, diameter.UTF8String, sess.SessionId),
		diameter.NewTypedAVP(264, 0, true, diameter.DiamIdent, sess.s.Identity()),
		diameter.NewTypedAVP(296, 0, true, diameter.DiamIdent, sess.s.Realm()),
		diameter.NewTypedAVP(283, 0, true, diameter.DiamIdent, sess.s.Realm()),
		diameter.NewTypedAVP(258, 0, true, diameter.Unsigned32, uint32(4)),
		diameter.NewTypedAVP(461, 0, true, diameter.UTF8String, "service@example.com"),
		diameter.NewTypedAVP(416, 0, true, diameter.Enumerated, requestType),
		diameter.NewTypedAVP(415, 0, true, diameter.Unsigned32, uint32(requestNumber)),
		cachedResultCode2001,
	}

	return diameter.NewMessage(
		diameter.MsgFlagRequest,
		272,
		4,
		sess.s.NextHopByHopID(),
		sess.s.NextEndToEndID(),
		mandatory,
		nil,
	)
}
