package peer_test

import (
	"net"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
)

func mustParseIPv4(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		panic("bad test IP: " + s)
	}
	return ip
}

// fakeIOAdapter captures every Write call instead of touching a real
// transport, so a test can decode what a Peer sent and feed back a
// synthesized reply.
type fakeIOAdapter struct {
	written []*diameter.Message
}

func (f *fakeIOAdapter) ConnectV4(p *peer.Peer, host string, port uint16) error { return nil }
func (f *fakeIOAdapter) ListenV4(p *peer.Peer, host string, port uint16) error  { return nil }
func (f *fakeIOAdapter) Close(p *peer.Peer) error                               { return nil }

func (f *fakeIOAdapter) Write(p *peer.Peer, data []byte) error {
	m, _, err := diameter.DecodeNextMessage(data)
	if err != nil {
		return err
	}
	f.written = append(f.written, m)
	return nil
}

func (f *fakeIOAdapter) last() *diameter.Message {
	if len(f.written) == 0 {
		return nil
	}
	return f.written[len(f.written)-1]
}

func remoteIdentityAvps(originHost, originRealm string, vendorID uint32, productName string) []*diameter.AVP {
	return []*diameter.AVP{
		diameter.NewTypedAVP(264, 0, true, diameter.DiamIdent, originHost),
		diameter.NewTypedAVP(296, 0, true, diameter.DiamIdent, originRealm),
		diameter.NewTypedAVP(257, 0, true, diameter.Address, mustParseIPv4("10.0.0.9")),
		diameter.NewTypedAVP(266, 0, true, diameter.Unsigned32, vendorID),
		diameter.NewTypedAVP(269, 0, true, diameter.UTF8String, productName),
	}
}

func localConfig(originHost, originRealm string) peer.Config {
	return peer.Config{
		LocalIdentity: peer.Identity{
			OriginHost:      originHost,
			OriginRealm:     originRealm,
			HostIPAddresses: nil,
			VendorID:        0,
			ProductName:     "test-peer",
		},
		FirmwareRevision: 1,
	}
}
