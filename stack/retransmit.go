package stack

import (
	"time"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
)

const (
	retransmitInterval    = 1 * time.Second
	maxRetransmitAttempts = 3
)

// retransmitRecord tracks one outstanding request per spec §3: it is
// created when the request is sent and destroyed when a matching
// answer arrives or the retry budget is exhausted. A retransmitRecord
// holds a non-owning reference to its peer (spec §9's cyclic-reference
// strategy: the PeerManager exclusively owns Peer values).
type retransmitRecord struct {
	p          *peer.Peer
	message    *diameter.Message
	lastTry    time.Time
	retries    uint8
	hopByHopID uint32
}

// retransmitQueue is exclusively owned by a Stack.
type retransmitQueue struct {
	records map[uint32]*retransmitRecord
}

func newRetransmitQueue() *retransmitQueue {
	return &retransmitQueue{records: make(map[uint32]*retransmitRecord)}
}

func (q *retransmitQueue) add(p *peer.Peer, m *diameter.Message, now time.Time) {
	q.records[m.HopByHopID] = &retransmitRecord{
		p:          p,
		message:    m,
		lastTry:    now,
		hopByHopID: m.HopByHopID,
	}
}

// removeMatching destroys the record for hopByHopID, if any, reporting
// whether one was found (spec §8's round-trip invariant: removed on
// receipt of a matching answer).
func (q *retransmitQueue) removeMatching(hopByHopID uint32) bool {
	if _, ok := q.records[hopByHopID]; !ok {
		return false
	}
	delete(q.records, hopByHopID)
	return true
}

// tick resends every due record via the peer's own send path,
// dropping any that has exhausted its retry budget (spec §4.6/§8
// scenario 6: at most 4 total sends -- the initial plus 3 retries).
// exhausted receives every dropped record so the caller can surface
// RetransmitExhausted to the owning ApplicationHandler.
func (q *retransmitQueue) tick(now time.Time) (exhausted []*retransmitRecord) {
	for hbh, rec := range q.records {
		if now.Sub(rec.lastTry) < retransmitInterval {
			continue
		}

		if rec.retries >= maxRetransmitAttempts {
			delete(q.records, hbh)
			exhausted = append(exhausted, rec)
			continue
		}

		rec.retries++
		rec.lastTry = now
		_ = rec.p.SendApplicationMessage(rec.message)
	}

	return exhausted
}
