package peer

import "github.com/blorticus-go/diameter"

// buildCER constructs a Capabilities-Exchange-Request (code 257,
// application 0, R=1) advertising this peer's local identity and
// configured applications, per spec §4.4's CER contents.
func (p *Peer) buildCER() *diameter.Message {
	avps := p.capabilitiesExchangeAvps()

	return diameter.NewMessage(
		diameter.MsgFlagRequest,
		257,
		0,
		p.seq.nextHopByHopID(),
		p.seq.nextEndToEndID(),
		p.config.LocalIdentity.CapabilitiesExchangeMandatoryAvps(),
		avps,
	)
}

// buildCEA constructs a Capabilities-Exchange-Answer in response to a
// received CER, carrying the supplied Result-Code.
func (p *Peer) buildCEA(request *diameter.Message, resultCode uint32) *diameter.Message {
	avps := p.capabilitiesExchangeAvps()

	mandatory := append(
		[]*diameter.AVP{diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, resultCode)},
		p.config.LocalIdentity.CapabilitiesExchangeMandatoryAvps()...,
	)

	return request.GenerateMatchingResponseWithAvps(mandatory, avps)
}

// capabilitiesExchangeAvps builds the optional CER/CEA AVPs beyond the
// mandatory identity set: Firmware-Revision, Supported-Vendor-Id,
// Auth/Acct-Application-Id, and Vendor-Specific-Application-Id groups.
func (p *Peer) capabilitiesExchangeAvps() []*diameter.AVP {
	avps := make([]*diameter.AVP, 0, 4+len(p.config.SupportedVendorIDs)+len(p.config.AuthApplications)+len(p.config.AcctApplications))

	avps = append(avps, diameter.NewTypedAVP(267, 0, false, diameter.Unsigned32, p.config.FirmwareRevision))

	for _, v := range p.config.SupportedVendorIDs {
		avps = append(avps, diameter.NewTypedAVP(265, 0, false, diameter.Unsigned32, v))
	}

	for _, app := range p.config.AuthApplications {
		avps = append(avps, applicationIDAvp(258, app))
	}

	for _, app := range p.config.AcctApplications {
		avps = append(avps, applicationIDAvp(259, app))
	}

	return avps
}

// applicationIDAvp builds the Auth-Application-Id or Acct-Application-Id
// AVP for app, naturally wrapping it in a Vendor-Specific-Application-Id
// (260) grouped AVP together with Vendor-Id (266) whenever app carries a
// non-zero vendor. Per spec.md §9's second open-question resolution,
// when the application is vendor-scoped the grouped AVP carries only
// Vendor-Id plus this already-built application-id AVP, not a second
// copy built fresh.
func applicationIDAvp(code uint32, app ApplicationID) *diameter.AVP {
	idAvp := diameter.NewTypedAVP(code, 0, true, diameter.Unsigned32, app.ID)

	if app.VendorID == 0 {
		return idAvp
	}

	vendorAvp := diameter.NewTypedAVP(266, 0, true, diameter.Unsigned32, app.VendorID)

	return diameter.NewTypedAVP(260, 0, true, diameter.Grouped, []*diameter.AVP{vendorAvp, idAvp})
}

// buildDWR constructs a Device-Watchdog-Request (code 280, application 0, R=1).
func (p *Peer) buildDWR() *diameter.Message {
	return diameter.NewMessage(
		diameter.MsgFlagRequest,
		280,
		0,
		p.seq.nextHopByHopID(),
		p.seq.nextEndToEndID(),
		[]*diameter.AVP{
			p.config.LocalIdentity.OriginHostAvp(),
			p.config.LocalIdentity.OriginRealmAvp(),
		},
		nil,
	)
}

// buildDWA constructs a Device-Watchdog-Answer in response to request,
// carrying the supplied Result-Code.
func (p *Peer) buildDWA(request *diameter.Message, resultCode uint32) *diameter.Message {
	return request.GenerateMatchingResponseWithAvps(
		[]*diameter.AVP{
			diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, resultCode),
			p.config.LocalIdentity.OriginHostAvp(),
			p.config.LocalIdentity.OriginRealmAvp(),
		},
		nil,
	)
}

// buildDPR constructs a Disconnect-Peer-Request (code 282, application
// 0, R=1) carrying the supplied Disconnect-Cause (273).
func (p *Peer) buildDPR(cause DisconnectCause) *diameter.Message {
	return diameter.NewMessage(
		diameter.MsgFlagRequest,
		282,
		0,
		p.seq.nextHopByHopID(),
		p.seq.nextEndToEndID(),
		[]*diameter.AVP{
			p.config.LocalIdentity.OriginHostAvp(),
			p.config.LocalIdentity.OriginRealmAvp(),
			diameter.NewTypedAVP(273, 0, true, diameter.Enumerated, int32(cause)),
		},
		nil,
	)
}

// buildDPA constructs a Disconnect-Peer-Answer in response to request,
// carrying the supplied Result-Code.
func (p *Peer) buildDPA(request *diameter.Message, resultCode uint32) *diameter.Message {
	return request.GenerateMatchingResponseWithAvps(
		[]*diameter.AVP{
			diameter.NewTypedAVP(268, 0, true, diameter.Unsigned32, resultCode),
			p.config.LocalIdentity.OriginHostAvp(),
			p.config.LocalIdentity.OriginRealmAvp(),
		},
		nil,
	)
}
