package stack

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// sequenceGenerator allocates hop-by-hop and end-to-end identifiers
// for messages the Stack itself constructs: CreateRequest takes both
// from here, while CreateAnswer copies the request's ids and needs
// none. Grounded on the teacher's
// HopByHopIdGenerator/EndToEndIdGenerator in sequence_generator.go,
// with the sync.Mutex dropped: spec §5 makes the Stack single-threaded,
// touched only from the host's own serialized calls.
type sequenceGenerator struct {
	nextHbh        uint32
	nextEteLower24 uint32
}

func newSequenceGenerator() *sequenceGenerator {
	hbhSeed, err := rand.Int(rand.Reader, big.NewInt(0xffffffff))
	if err != nil {
		panic(fmt.Errorf("failed to generate random hop-by-hop seed: %s", err))
	}
	eteSeed, err := rand.Int(rand.Reader, big.NewInt(0xffffff))
	if err != nil {
		panic(fmt.Errorf("failed to generate random end-to-end seed: %s", err))
	}

	return &sequenceGenerator{
		nextHbh:        uint32(hbhSeed.Uint64()),
		nextEteLower24: uint32(eteSeed.Uint64()),
	}
}

// NextHopByHopID returns the next hop-by-hop id; wraps silently at 2^32.
func (g *sequenceGenerator) NextHopByHopID() uint32 {
	n := g.nextHbh
	g.nextHbh++
	return n
}

// NextEndToEndID returns the next end-to-end id per RFC 6733 §3: the
// high 8 bits are the low 8 bits of the current unix time in seconds,
// the low 24 bits are a wrapping counter seeded randomly.
func (g *sequenceGenerator) NextEndToEndID() uint32 {
	n := g.nextEteLower24
	g.nextEteLower24++
	return ((uint32(time.Now().Unix()) & 0xff) << 24) | (n & 0x00ffffff)
}

// GenerateSessionID produces a Session-Id per RFC 6733 §8.8:
// "<DiamIdent>;<hi32>;<lo32>" from a microsecond Unix timestamp. Not
// itself a routing concern, but shipped alongside the Stack the way
// the teacher ships GenerateSessionId next to its peer/session code,
// for application handlers building session-bearing requests.
func GenerateSessionID(originHost string) string {
	now := uint64(time.Now().UnixMicro())
	return fmt.Sprintf("%s;%d;%d", originHost, uint32(now>>32), uint32(now))
}
