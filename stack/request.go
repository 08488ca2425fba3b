package stack

import "github.com/blorticus-go/diameter"

// CreateRequest builds a new request message with freshly allocated
// hop-by-hop/end-to-end ids and this Stack's Origin-Host/Origin-Realm,
// per spec §4.6. When vendorID is non-zero, the Auth-Application-Id
// (or Acct-Application-Id, if acct is true) is wrapped inside a
// Vendor-Specific-Application-Id (260) grouped AVP alongside Vendor-Id
// (266); otherwise it is added at the top level. When both auth and
// acct are false, no application-id AVP is added at all.
func (s *Stack) CreateRequest(applicationID uint32, commandCode diameter.Uint24, auth, acct bool, vendorID uint32) *diameter.Message {
	mandatory := []*diameter.AVP{
		s.originHostAvp(),
		s.originRealmAvp(),
	}

	var optional []*diameter.AVP

	// Per spec.md §9's first open-question resolution: acct uses
	// Acct-Application-Id (259), not the teacher's Auth-Application-Id
	// (258) re-use for accounting.
	switch {
	case auth && acct:
		optional = append(optional, s.applicationIDAvp(258, applicationID, vendorID))
		optional = append(optional, s.applicationIDAvp(259, applicationID, vendorID))
	case auth:
		optional = append(optional, s.applicationIDAvp(258, applicationID, vendorID))
	case acct:
		optional = append(optional, s.applicationIDAvp(259, applicationID, vendorID))
	}

	return diameter.NewMessage(
		diameter.MsgFlagRequest,
		commandCode,
		applicationID,
		s.seq.NextHopByHopID(),
		s.seq.NextEndToEndID(),
		mandatory,
		optional,
	)
}

// applicationIDAvp builds the Auth/Acct-Application-Id AVP identified
// by code, wrapping it in a Vendor-Specific-Application-Id (260) group
// with Vendor-Id (266) when vendorID is non-zero. Per spec.md §9's
// second open-question resolution, the grouped AVP carries only
// Vendor-Id plus this already-built application-id AVP, never a
// second freshly-built copy.
func (s *Stack) applicationIDAvp(code uint32, applicationID uint32, vendorID uint32) *diameter.AVP {
	idAvp := diameter.NewTypedAVP(code, 0, true, diameter.Unsigned32, applicationID)

	if vendorID == 0 {
		return idAvp
	}

	vendorAvp := diameter.NewTypedAVP(266, 0, true, diameter.Unsigned32, vendorID)
	return diameter.NewTypedAVP(260, 0, true, diameter.Grouped, []*diameter.AVP{vendorAvp, idAvp})
}

// CreateAnswer builds an answer to request, copying its proxiable
// flag, end-to-end id, hop-by-hop id, application-id, and command
// code; Origin-Host/Origin-Realm are added, and a Result-Code (268) is
// added when resultCode is non-zero.
func (s *Stack) CreateAnswer(request *diameter.Message, resultCode uint32) *diameter.Message {
	mandatory := []*diameter.AVP{
		s.originHostAvp(),
		s.originRealmAvp(),
	}

	if resultCode != 0 {
		mandatory = append([]*diameter.AVP{diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, resultCode)}, mandatory...)
	}

	return request.GenerateMatchingResponseWithAvps(mandatory, nil)
}

func (s *Stack) originHostAvp() *diameter.AVP {
	return diameter.NewTypedAVP(264, 0, true, diameter.DiamIdent, s.identity)
}

func (s *Stack) originRealmAvp() *diameter.AVP {
	return diameter.NewTypedAVP(296, 0, true, diameter.DiamIdent, s.realm)
}
