package peer

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// localSequence allocates the hop-by-hop and end-to-end identifiers a
// Peer uses for the connection-state messages (CER, DWR, DPR) it
// originates itself, as opposed to application messages which are
// sequenced by the Stack. Grounded on the teacher's
// HopByHopIdGenerator/EndToEndIdGenerator, but mutex-free: a Peer is
// only ever touched from one goroutine at a time per the core's
// single-threaded contract.
type localSequence struct {
	nextHbh         uint32
	nextEteLower24  uint32
	nowUnixProvider func() int64
}

func newLocalSequence() *localSequence {
	hbhSeed, err := rand.Int(rand.Reader, big.NewInt(0xffffffff))
	if err != nil {
		panic(fmt.Errorf("failed to generate random hop-by-hop seed: %s", err))
	}
	eteSeed, err := rand.Int(rand.Reader, big.NewInt(0xffffff))
	if err != nil {
		panic(fmt.Errorf("failed to generate random end-to-end seed: %s", err))
	}

	return &localSequence{
		nextHbh:         uint32(hbhSeed.Uint64()),
		nextEteLower24:  uint32(eteSeed.Uint64()),
		nowUnixProvider: func() int64 { return time.Now().Unix() },
	}
}

func (s *localSequence) nextHopByHopID() uint32 {
	n := s.nextHbh
	s.nextHbh++
	return n
}

func (s *localSequence) nextEndToEndID() uint32 {
	n := s.nextEteLower24
	s.nextEteLower24++
	return ((uint32(s.nowUnixProvider()) & 0xff) << 24) | (n & 0x00ffffff)
}
