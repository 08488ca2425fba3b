package diameter

import "fmt"

// Error taxonomy for the core. All are plain error values (never
// exceptions); sentinels are wrapped with fmt.Errorf("...: %w", ...)
// so callers can match with errors.Is.
var (
	// ErrMalformedMessage indicates a header parse failure: length < 20,
	// version != 1, or a truncated header. The caller must disconnect.
	ErrMalformedMessage = fmt.Errorf("malformed diameter message")

	// ErrMalformedAvp indicates an AVP length, reserved-flag, or
	// truncation problem.
	ErrMalformedAvp = fmt.Errorf("malformed AVP")

	// ErrTypeMismatch indicates a value of the wrong kind for the AVP
	// type: a Go value that cannot be encoded as that type, or a typed
	// accessor used on a payload of another kind (AsAddressV4 on an IPv6
	// address). Raw data that fails to decode is ErrMalformedAvp.
	ErrTypeMismatch = fmt.Errorf("AVP type mismatch")

	// ErrCapabilitiesFailure indicates a CEA carried a non-2001 Result-Code
	// or a mandatory AVP (Origin-Host/Origin-Realm) was missing.
	ErrCapabilitiesFailure = fmt.Errorf("capabilities-exchange failure")

	// ErrDuplicateIdentity indicates a second peer registered the same
	// identity within a realm.
	ErrDuplicateIdentity = fmt.Errorf("duplicate peer identity in realm")

	// ErrApplicationUnsupported indicates no handler was registered for
	// the dispatched (vendor-id, application-id) pair.
	ErrApplicationUnsupported = fmt.Errorf("application unsupported")

	// ErrRetransmitExhausted indicates a queued request's retry budget
	// elapsed without an answer.
	ErrRetransmitExhausted = fmt.Errorf("retransmit exhausted")
)

// AvpError wraps ErrMalformedAvp or ErrTypeMismatch with the offending
// AVP code so callers can report which attribute failed.
type AvpError struct {
	Code     uint32
	VendorID uint32
	Err      error
}

func (e *AvpError) Error() string {
	if e.VendorID != 0 {
		return fmt.Sprintf("AVP %d (vendor %d): %s", e.Code, e.VendorID, e.Err)
	}
	return fmt.Sprintf("AVP %d: %s", e.Code, e.Err)
}

func (e *AvpError) Unwrap() error {
	return e.Err
}

func newAvpError(code, vendorID uint32, cause error) *AvpError {
	return &AvpError{Code: code, VendorID: vendorID, Err: cause}
}
