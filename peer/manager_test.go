package peer_test

import (
	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PeerManager", func() {
	var (
		io      *fakeIOAdapter
		manager *peer.PeerManager
	)

	BeforeEach(func() {
		io = &fakeIOAdapter{}
		manager = peer.NewPeerManager(io)
	})

	It("creates a CLIENT peer via ClientV4Add", func() {
		p, err := manager.ClientV4Add("127.0.0.1", 3868, localConfig("client.example.com", "example.com"))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Role).To(Equal(peer.RoleClient))
		Expect(p.State()).To(Equal(peer.StateWaitConn))
	})

	Describe("registration", func() {
		var p *peer.Peer

		BeforeEach(func() {
			var err error
			p, err = manager.ClientV4Add("127.0.0.1", 3868, localConfig("client.example.com", "example.com"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects a second registration of the same identity in the same realm", func() {
			apps := map[peer.ApplicationID]bool{{VendorID: 0, ID: 4}: true}

			Expect(manager.RegisterPeer(p, "client.example.com", "example.com", apps)).To(Succeed())

			other, err := manager.ClientV4Add("127.0.0.1", 3869, localConfig("client.example.com", "example.com"))
			Expect(err).ToNot(HaveOccurred())

			err = manager.RegisterPeer(other, "client.example.com", "example.com", apps)
			Expect(err).To(MatchError(diameter.ErrDuplicateIdentity))
		})

		It("retains the realm after the only peer in it is removed", func() {
			apps := map[peer.ApplicationID]bool{{VendorID: 0, ID: 4}: true}
			Expect(manager.RegisterPeer(p, "client.example.com", "example.com", apps)).To(Succeed())

			manager.RemovePeer(p, "client.example.com", "example.com")

			realm := manager.Realm("example.com")
			Expect(realm).ToNot(BeNil())
			Expect(realm.PeerByIdentity("client.example.com")).To(BeNil())
			Expect(realm.PeersSupporting(peer.ApplicationID{VendorID: 0, ID: 4})).To(BeEmpty())
		})

		It("lists every registered peer across realms via AllPeers", func() {
			apps := map[peer.ApplicationID]bool{{VendorID: 0, ID: 4}: true}
			Expect(manager.RegisterPeer(p, "client.example.com", "example.com", apps)).To(Succeed())

			another, err := manager.ClientV4Add("127.0.0.1", 3870, localConfig("client2.example.com", "other.com"))
			Expect(err).ToNot(HaveOccurred())
			Expect(manager.RegisterPeer(another, "client2.example.com", "other.com", apps)).To(Succeed())

			Expect(manager.AllPeers()).To(HaveLen(2))
		})
	})
})
