package peer

import (
	"fmt"
	"net"

	"github.com/blorticus-go/diameter"
)

// Identity carries the Capabilities-Exchange attributes a peer
// advertises about itself: Origin-Host, Origin-Realm, its advertised
// Host-IP-Address set, Vendor-Id, and Product-Name. The first call to
// one of its *Avp accessors caches the built AVP; callers must not
// mutate an Identity's fields afterward.
type Identity struct {
	OriginHost      string
	OriginRealm     string
	HostIPAddresses []net.IP
	VendorID        uint32
	ProductName     string

	cache struct {
		originHost  *diameter.AVP
		originRealm *diameter.AVP
		vendorID    *diameter.AVP
		productName *diameter.AVP
		hostIPs     []*diameter.AVP
	}
}

// OriginHostAvp returns the Origin-Host (264) AVP for this identity.
func (e *Identity) OriginHostAvp() *diameter.AVP {
	if e.cache.originHost == nil {
		e.cache.originHost = diameter.NewTypedAVP(264, 0, true, diameter.DiamIdent, e.OriginHost)
	}
	return e.cache.originHost
}

// OriginRealmAvp returns the Origin-Realm (296) AVP for this identity.
func (e *Identity) OriginRealmAvp() *diameter.AVP {
	if e.cache.originRealm == nil {
		e.cache.originRealm = diameter.NewTypedAVP(296, 0, true, diameter.DiamIdent, e.OriginRealm)
	}
	return e.cache.originRealm
}

// VendorIDAvp returns the Vendor-Id (266) AVP for this identity.
func (e *Identity) VendorIDAvp() *diameter.AVP {
	if e.cache.vendorID == nil {
		e.cache.vendorID = diameter.NewTypedAVP(266, 0, true, diameter.Unsigned32, e.VendorID)
	}
	return e.cache.vendorID
}

// ProductNameAvp returns the Product-Name (269) AVP for this identity.
func (e *Identity) ProductNameAvp() *diameter.AVP {
	if e.cache.productName == nil {
		e.cache.productName = diameter.NewTypedAVP(269, 0, true, diameter.UTF8String, e.ProductName)
	}
	return e.cache.productName
}

// HostIPAddressAvps returns the Host-IP-Address (257) AVP set for this identity.
func (e *Identity) HostIPAddressAvps() []*diameter.AVP {
	if len(e.cache.hostIPs) == 0 && len(e.HostIPAddresses) > 0 {
		avps := make([]*diameter.AVP, len(e.HostIPAddresses))
		for i, ip := range e.HostIPAddresses {
			avps[i] = diameter.NewTypedAVP(257, 0, true, diameter.Address, ip)
		}
		e.cache.hostIPs = avps
	}
	return e.cache.hostIPs
}

// CapabilitiesExchangeMandatoryAvps returns the Origin-Host,
// Origin-Realm, Host-IP-Address set, Vendor-Id, and Product-Name AVPs
// every CER/CEA must carry.
func (e *Identity) CapabilitiesExchangeMandatoryAvps() []*diameter.AVP {
	avps := make([]*diameter.AVP, 0, 4+len(e.HostIPAddresses))
	avps = append(avps, e.OriginHostAvp(), e.OriginRealmAvp())
	avps = append(avps, e.HostIPAddressAvps()...)
	avps = append(avps, e.VendorIDAvp(), e.ProductNameAvp())
	return avps
}

// The Firmware-Revision, Supported-Vendor-Id and application-id AVPs are
// built by Peer at CER/CEA construction time (capabilitiesExchangeAvps
// and applicationIDAvp in messages.go), not cached on Identity, since
// firmware revision and supported applications are stack-level
// configuration rather than per-peer identity attributes.

// identityFromCapabilitiesExchangeMessage reads a CER or CEA and
// extracts the Identity it carries. Returns ErrCapabilitiesFailure if
// a mandatory AVP is missing or cannot be decoded.
func identityFromCapabilitiesExchangeMessage(m *diameter.Message) (*Identity, error) {
	for _, avpCode := range []diameter.Uint24{264, 296, 266, 269} {
		if m.NumberOfTopLevelAvpsMatching(0, avpCode) != 1 {
			return nil, fmt.Errorf("%w: missing mandatory AVP with code (%d)", diameter.ErrCapabilitiesFailure, avpCode)
		}
	}

	hostIPAvps := m.TopLevelAvpsMatching(0, 257)

	e := &Identity{
		HostIPAddresses: make([]net.IP, len(hostIPAvps)),
	}

	originHost, err := diameter.ConvertAVPDataToTypedData(m.FirstAvpMatching(0, 264).Data, diameter.DiamIdent)
	if err != nil {
		return nil, fmt.Errorf("%w: Origin-Host cannot be decoded: %s", diameter.ErrCapabilitiesFailure, err)
	}
	e.OriginHost = originHost.(string)

	originRealm, err := diameter.ConvertAVPDataToTypedData(m.FirstAvpMatching(0, 296).Data, diameter.DiamIdent)
	if err != nil {
		return nil, fmt.Errorf("%w: Origin-Realm cannot be decoded: %s", diameter.ErrCapabilitiesFailure, err)
	}
	e.OriginRealm = originRealm.(string)

	vendorID, err := diameter.ConvertAVPDataToTypedData(m.FirstAvpMatching(0, 266).Data, diameter.Unsigned32)
	if err != nil {
		return nil, fmt.Errorf("%w: Vendor-Id cannot be decoded: %s", diameter.ErrCapabilitiesFailure, err)
	}
	e.VendorID = vendorID.(uint32)

	productName, err := diameter.ConvertAVPDataToTypedData(m.FirstAvpMatching(0, 269).Data, diameter.UTF8String)
	if err != nil {
		return nil, fmt.Errorf("%w: Product-Name cannot be decoded: %s", diameter.ErrCapabilitiesFailure, err)
	}
	e.ProductName = productName.(string)

	for i, ipAvp := range hostIPAvps {
		ip, err := diameter.ConvertAVPDataToTypedData(ipAvp.Data, diameter.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: Host-IP-Address cannot be decoded: %s", diameter.ErrCapabilitiesFailure, err)
		}
		e.HostIPAddresses[i] = ip.(net.IP)
	}

	return e, nil
}

// applicationsAdvertisedByCapabilitiesExchangeMessage extracts the
// (vendor_id, application_id) pairs a CER/CEA advertises: top-level
// Auth-Application-Id (258) and Acct-Application-Id (259) AVPs, plus
// any found inside Vendor-Specific-Application-Id (260) groups paired
// with that group's Vendor-Id (266).
func applicationsAdvertisedByCapabilitiesExchangeMessage(m *diameter.Message) map[ApplicationID]bool {
	apps := make(map[ApplicationID]bool)

	for _, code := range []diameter.Uint24{258, 259} {
		for _, avp := range m.TopLevelAvpsMatching(0, code) {
			if id, err := avp.AsUnsigned32(); err == nil {
				apps[ApplicationID{VendorID: 0, ID: id}] = true
			}
		}
	}

	for _, vsa := range m.TopLevelAvpsMatching(0, 260) {
		children, err := vsa.AsGrouped()
		if err != nil {
			continue
		}
		var vendorID uint32
		for _, child := range children {
			if child.Code == 266 {
				if v, err := child.AsUnsigned32(); err == nil {
					vendorID = v
				}
			}
		}
		for _, child := range children {
			if child.Code == 258 || child.Code == 259 {
				if id, err := child.AsUnsigned32(); err == nil {
					apps[ApplicationID{VendorID: vendorID, ID: id}] = true
				}
			}
		}
	}

	return apps
}
