package stack

import (
	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/peer"
)

const applicationUnsupportedResultCode = 3007
const redirectIndicationResultCode = 3006

// dispatch implements spec §4.6's incoming-dispatch procedure for one
// application message (anything Peer.Feed did not itself consume as
// connection-state traffic).
func (s *Stack) dispatch(p *peer.Peer, m *diameter.Message) {
	vendorID, appID := s.deriveVendorAndApplication(m)
	key := peer.ApplicationID{VendorID: vendorID, ID: appID}

	handler, ok := s.authApps[key]
	if !ok {
		handler, ok = s.acctApps[key]
	}

	if !ok {
		if m.IsRequest() {
			_ = p.SendApplicationMessage(s.CreateAnswer(m, applicationUnsupportedResultCode))
		}
		return
	}

	if m.IsAnswer() {
		s.retransmits.removeMatching(m.HopByHopID)
		if rc := m.FirstAvpMatching(0, 268); rc != nil {
			if code, err := rc.AsUnsigned32(); err == nil && code == redirectIndicationResultCode {
				handler.OnRedirect(p, m)
				return
			}
		}
		handler.OnAnswer(p, m)
		return
	}

	if m.IsPotentiallyRetransmitted() {
		handler.OnRetransmit(p, m)
		return
	}

	handler.OnRequest(p, m)
}

// deriveVendorAndApplication implements spec §4.6 step 1: prefer a
// Vendor-Specific-Application-Id (260) group's Vendor-Id plus its
// Auth- or Acct-Application-Id child; otherwise look at the top-level
// Auth-/Acct-Application-Id AVPs with vendor-id 0; otherwise fall back
// to the message header's application-id with vendor-id 0.
func (s *Stack) deriveVendorAndApplication(m *diameter.Message) (vendorID, applicationID uint32) {
	if vsa := m.FirstAvpMatching(0, 260); vsa != nil {
		if children, err := vsa.AsGrouped(); err == nil {
			var vid uint32
			for _, child := range children {
				if child.Code == 266 {
					if v, err := child.AsUnsigned32(); err == nil {
						vid = v
					}
				}
			}
			for _, child := range children {
				if child.Code == 258 || child.Code == 259 {
					if id, err := child.AsUnsigned32(); err == nil {
						return vid, id
					}
				}
			}
		}
	}

	if avp := m.FirstAvpMatching(0, 258); avp != nil {
		if id, err := avp.AsUnsigned32(); err == nil {
			return 0, id
		}
	}

	if avp := m.FirstAvpMatching(0, 259); avp != nil {
		if id, err := avp.AsUnsigned32(); err == nil {
			return 0, id
		}
	}

	return 0, m.AppID
}
