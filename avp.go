package diameter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"
	"unicode/utf8"
)

const (
	avpProtectedFlag                 = 0x20
	avpMandatoryFlag                 = 0x40
	avpFlagVendorSpecific            = 0x80
	nonVendorSpecificAvpHeaderLength = 8
	vendorSpecificAvpHeaderLength    = 12
)

// AVPDataType enumerates the Diameter AVP base data types this codec
// understands. For each, the "typed" Go value is documented at its
// constant.
type AVPDataType int

const (
	// Unsigned32 is a 32-bit unsigned integer. Typed value: uint32.
	Unsigned32 AVPDataType = 1 + iota
	// Unsigned64 is a 64-bit unsigned integer. Typed value: uint64.
	Unsigned64
	// Integer32 is a 32-bit signed integer. Typed value: int32.
	Integer32
	// Integer64 is a 64-bit signed integer. Typed value: int64.
	Integer64
	// Float32 is a 32-bit IEEE float. Typed value: float32.
	Float32
	// Float64 is a 64-bit IEEE float. Typed value: float64.
	Float64
	// Enumerated is encoded identically to Integer32. Typed value: int32.
	Enumerated
	// UTF8String is a UTF8-validated octet stream. Typed value: string.
	UTF8String
	// OctetString is an arbitrary octet stream. Typed value: []byte.
	OctetString
	// Time is seconds since 1900-01-01 encoded as Unsigned32.
	Time
	// Address carries a 2-byte address-family prefix (IP4=1, IP6=2).
	// Typed value: net.IP.
	Address
	// DiamIdent is a Diameter-Identity (an OctetString used for host
	// and realm names). Typed value: string.
	DiamIdent
	// DiamURI is a Diameter URI. Typed value: string.
	DiamURI
	// Grouped is an ordered sequence of child AVPs. Typed value: []*AVP.
	Grouped
	// IPFilterRule is an IP filter rule string. Typed value: []byte.
	IPFilterRule
	// TypeOrAvpUnknown marks an AVP whose type the dictionary does not know.
	TypeOrAvpUnknown
)

// AddressFamilyNumber is the IANA Address Family Number prefixing an
// Address-typed AVP payload.
type AddressFamilyNumber uint16

const (
	AddressFamilyNumberInvalid AddressFamilyNumber = 0
	IP4                        AddressFamilyNumber = 1
	IP6                        AddressFamilyNumber = 2
)

var diameterBaseTime = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// AVPExtendedAttributes carries dictionary-derived information about an
// AVP: its human-readable name and its decoded typed value.
type AVPExtendedAttributes struct {
	Name       string
	DataType   AVPDataType
	TypedValue interface{}
}

// AVP represents a single Diameter Attribute-Value Pair. Decoding is
// lazy: DecodeAVP only parses the header and stores the raw payload in
// Data; conversion to a typed value happens on demand via a typed
// accessor or ConvertDataToTypedData, so opaque/unknown AVPs can be
// forwarded unchanged without ever failing to parse.
type AVP struct {
	Code               uint32
	VendorSpecific     bool
	Mandatory          bool
	Protected          bool
	VendorID           uint32
	Data               []byte
	Length             int
	PaddedLength       int
	ExtendedAttributes *AVPExtendedAttributes
}

// NewAVP constructs an untyped AVP from raw payload bytes. VendorSpecific
// is set iff vendorID != 0.
func NewAVP(code uint32, vendorID uint32, mandatory bool, data []byte) *AVP {
	avp := &AVP{
		Code:      code,
		VendorID:  vendorID,
		Mandatory: mandatory,
		Data:      data,
	}

	if vendorID != 0 {
		avp.VendorSpecific = true
		avp.Length = vendorSpecificAvpHeaderLength
	} else {
		avp.Length = nonVendorSpecificAvpHeaderLength
	}

	avp.Length += len(data)
	avp.updatePaddedLength()

	return avp
}

// NewTypedAVPErrorable constructs an AVP from a typed Go value, encoding
// it according to avpType. Returns an error if value cannot be converted
// to avpType without an unacceptable loss (e.g. wrong Go type).
func NewTypedAVPErrorable(code uint32, vendorID uint32, mandatory bool, avpType AVPDataType, value interface{}) (*AVP, error) {
	data, coercedValue, err := encodeTypedValue(code, vendorID, avpType, value)
	if err != nil {
		return nil, err
	}

	avp := NewAVP(code, vendorID, mandatory, data)
	avp.ExtendedAttributes = &AVPExtendedAttributes{DataType: avpType, TypedValue: coercedValue}

	return avp, nil
}

// NewTypedAVP is NewTypedAVPErrorable but panics on error. Use only when
// the caller controls both the type and the value (e.g. constructing a
// well-known base-protocol AVP with a literal).
func NewTypedAVP(code uint32, vendorID uint32, mandatory bool, avpType AVPDataType, value interface{}) *AVP {
	avp, err := NewTypedAVPErrorable(code, vendorID, mandatory, avpType, value)
	if err != nil {
		panic(err)
	}
	return avp
}

func encodeTypedValue(code, vendorID uint32, avpType AVPDataType, value interface{}) (data []byte, coercedValue interface{}, err error) {
	switch avpType {
	case Unsigned32:
		data = make([]byte, 4)
		switch v := value.(type) {
		case uint32:
			coercedValue = v
			binary.BigEndian.PutUint32(data, v)
		case int:
			coercedValue = uint32(v)
			binary.BigEndian.PutUint32(data, uint32(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Unsigned32", ErrTypeMismatch))
		}

	case Unsigned64:
		data = make([]byte, 8)
		switch v := value.(type) {
		case uint64:
			coercedValue = v
			binary.BigEndian.PutUint64(data, v)
		case uint32:
			coercedValue = uint64(v)
			binary.BigEndian.PutUint64(data, uint64(v))
		case uint:
			coercedValue = uint64(v)
			binary.BigEndian.PutUint64(data, uint64(v))
		case int:
			coercedValue = uint64(v)
			binary.BigEndian.PutUint64(data, uint64(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Unsigned64", ErrTypeMismatch))
		}

	case Integer32, Enumerated:
		buf := new(bytes.Buffer)
		switch v := value.(type) {
		case int32:
			coercedValue = v
			binary.Write(buf, binary.BigEndian, v)
		case int:
			coercedValue = int32(v)
			binary.Write(buf, binary.BigEndian, int32(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Integer32/Enumerated", ErrTypeMismatch))
		}
		data = buf.Bytes()

	case Integer64:
		buf := new(bytes.Buffer)
		switch v := value.(type) {
		case int64:
			coercedValue = v
			binary.Write(buf, binary.BigEndian, v)
		case int32:
			coercedValue = int64(v)
			binary.Write(buf, binary.BigEndian, int64(v))
		case int:
			coercedValue = int64(v)
			binary.Write(buf, binary.BigEndian, int64(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Integer64", ErrTypeMismatch))
		}
		data = buf.Bytes()

	case Float32:
		buf := new(bytes.Buffer)
		switch v := value.(type) {
		case float32:
			coercedValue = v
			binary.Write(buf, binary.BigEndian, v)
		case int:
			coercedValue = float32(v)
			binary.Write(buf, binary.BigEndian, float32(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Float32", ErrTypeMismatch))
		}
		data = buf.Bytes()

	case Float64:
		buf := new(bytes.Buffer)
		switch v := value.(type) {
		case float64:
			coercedValue = v
			binary.Write(buf, binary.BigEndian, v)
		case float32:
			coercedValue = float64(v)
			binary.Write(buf, binary.BigEndian, float64(v))
		case int:
			coercedValue = float64(v)
			binary.Write(buf, binary.BigEndian, float64(v))
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Float64", ErrTypeMismatch))
		}
		data = buf.Bytes()

	case UTF8String:
		switch v := value.(type) {
		case string:
			data, coercedValue = []byte(v), v
		case []byte:
			data, coercedValue = v, string(v)
		case []rune:
			data, coercedValue = []byte(string(v)), string(v)
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to UTF8String", ErrTypeMismatch))
		}
		if !utf8.Valid(data) {
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value is not valid UTF8", ErrMalformedAvp))
		}

	case OctetString, IPFilterRule:
		switch v := value.(type) {
		case []byte:
			data, coercedValue = v, v
		case string:
			data, coercedValue = []byte(v), []byte(v)
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to OctetString", ErrTypeMismatch))
		}

	case DiamIdent, DiamURI:
		v, isString := value.(string)
		if !isString {
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to DiamIdent/DiamURI", ErrTypeMismatch))
		}
		data, coercedValue = []byte(v), v

	case Time:
		switch v := value.(type) {
		case time.Time:
			return encodeTypedValue(code, vendorID, avpType, &v)
		case *time.Time:
			secondsSinceEpoch := v.Sub(diameterBaseTime) / time.Second
			if secondsSinceEpoch < 0 {
				return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: Time precedes the Diameter epoch", ErrTypeMismatch))
			}
			if secondsSinceEpoch > 4294967295 {
				return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: Time exceeds what a 32-bit value can represent", ErrTypeMismatch))
			}
			data = make([]byte, 4)
			binary.BigEndian.PutUint32(data, uint32(secondsSinceEpoch))
			coercedValue = v
		case uint32:
			data = make([]byte, 4)
			binary.BigEndian.PutUint32(data, v)
			t := diameterBaseTime.Add(time.Duration(v) * time.Second)
			coercedValue = &t
		case int:
			if v < 0 {
				return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: Time cannot be negative", ErrTypeMismatch))
			}
			data = make([]byte, 4)
			binary.BigEndian.PutUint32(data, uint32(v))
			t := diameterBaseTime.Add(time.Duration(v) * time.Second)
			coercedValue = &t
		case []byte:
			if len(v) != 4 {
				return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: Time requires exactly 4 bytes", ErrMalformedAvp))
			}
			data = v
			t := diameterBaseTime.Add(time.Duration(binary.BigEndian.Uint32(v)) * time.Second)
			coercedValue = &t
		default:
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Time", ErrTypeMismatch))
		}

	case Address:
		ip, err := coerceToIP(value)
		if err != nil {
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: %s", ErrTypeMismatch, err))
		}
		data = encodeAddress(ip)
		coercedValue = ip

	case Grouped:
		children, isAvpSlice := value.([]*AVP)
		if !isAvpSlice {
			return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: value cannot be converted to Grouped", ErrTypeMismatch))
		}
		buf := bytes.NewBuffer([]byte{})
		for _, child := range children {
			buf.Write(child.Encode())
		}
		data, coercedValue = buf.Bytes(), children

	default:
		return nil, nil, newAvpError(code, vendorID, fmt.Errorf("%w: unknown AVPDataType", ErrTypeMismatch))
	}

	return data, coercedValue, nil
}

func coerceToIP(value interface{}) (net.IP, error) {
	switch v := value.(type) {
	case net.IP:
		return v, nil
	case *net.IP:
		return *v, nil
	case net.IPAddr:
		return v.IP, nil
	case *net.IPAddr:
		return v.IP, nil
	default:
		return nil, fmt.Errorf("value cannot be converted to an IP address")
	}
}

func encodeAddress(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		data := make([]byte, 6)
		binary.BigEndian.PutUint16(data, uint16(IP4))
		copy(data[2:], v4)
		return data
	}

	data := make([]byte, 18)
	binary.BigEndian.PutUint16(data, uint16(IP6))
	copy(data[2:], ip.To16())
	return data
}

// ConvertAVPDataToTypedData decodes raw AVP payload bytes as dataType,
// returning the typed Go value described at that AVPDataType constant.
func ConvertAVPDataToTypedData(avpData []byte, dataType AVPDataType) (interface{}, error) {
	switch dataType {
	case Unsigned32:
		if len(avpData) != 4 {
			return nil, fmt.Errorf("%w: Unsigned32 requires exactly 4 bytes", ErrMalformedAvp)
		}
		return binary.BigEndian.Uint32(avpData), nil

	case Unsigned64:
		if len(avpData) != 8 {
			return nil, fmt.Errorf("%w: Unsigned64 requires exactly 8 bytes", ErrMalformedAvp)
		}
		return binary.BigEndian.Uint64(avpData), nil

	case Integer32, Enumerated:
		if len(avpData) != 4 {
			return nil, fmt.Errorf("%w: Integer32/Enumerated requires exactly 4 bytes", ErrMalformedAvp)
		}
		return int32(binary.BigEndian.Uint32(avpData)), nil

	case Integer64:
		if len(avpData) != 8 {
			return nil, fmt.Errorf("%w: Integer64 requires exactly 8 bytes", ErrMalformedAvp)
		}
		return int64(binary.BigEndian.Uint64(avpData)), nil

	case Float32:
		if len(avpData) != 4 {
			return nil, fmt.Errorf("%w: Float32 requires exactly 4 bytes", ErrMalformedAvp)
		}
		return math.Float32frombits(binary.BigEndian.Uint32(avpData)), nil

	case Float64:
		if len(avpData) != 8 {
			return nil, fmt.Errorf("%w: Float64 requires exactly 8 bytes", ErrMalformedAvp)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(avpData)), nil

	case UTF8String:
		if !utf8.Valid(avpData) {
			return nil, fmt.Errorf("%w: UTF8String is not valid UTF8", ErrMalformedAvp)
		}
		return string(avpData), nil

	case OctetString, IPFilterRule:
		return avpData, nil

	case DiamIdent, DiamURI:
		return string(avpData), nil

	case Time:
		if len(avpData) != 4 {
			return nil, fmt.Errorf("%w: Time requires exactly 4 bytes", ErrMalformedAvp)
		}
		seconds := binary.BigEndian.Uint32(avpData)
		t := diameterBaseTime.Add(time.Duration(seconds) * time.Second)
		return &t, nil

	case Address:
		if len(avpData) < 2 {
			return nil, fmt.Errorf("%w: Address requires at least 2 bytes", ErrMalformedAvp)
		}
		family := AddressFamilyNumber(binary.BigEndian.Uint16(avpData[:2]))
		switch family {
		case IP4:
			if len(avpData) != 6 {
				return nil, fmt.Errorf("%w: IP4 Address requires exactly 6 bytes", ErrMalformedAvp)
			}
			return net.IP(avpData[2:6]), nil
		case IP6:
			if len(avpData) != 18 {
				return nil, fmt.Errorf("%w: IP6 Address requires exactly 18 bytes", ErrMalformedAvp)
			}
			return net.IP(avpData[2:18]), nil
		default:
			return nil, fmt.Errorf("%w: Address family %d is not supported (only IPv4 and IPv6 are)", ErrMalformedAvp, family)
		}

	case Grouped:
		children, err := decodeGroupedAvps(avpData)
		if err != nil {
			return nil, err
		}
		return children, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized AVPDataType", ErrTypeMismatch)
	}
}

func decodeGroupedAvps(data []byte) ([]*AVP, error) {
	children := make([]*AVP, 0, 4)
	for len(data) > 0 {
		child, err := DecodeAVP(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AVP inside group: %w", err)
		}
		children = append(children, child)
		data = data[child.PaddedLength:]
	}
	return children, nil
}

// MustConvertAVPDataToTypedData is ConvertAVPDataToTypedData but panics
// on error.
func MustConvertAVPDataToTypedData(avpData []byte, dataType AVPDataType) interface{} {
	v, err := ConvertAVPDataToTypedData(avpData, dataType)
	if err != nil {
		panic(err)
	}
	return v
}

// MakeProtected sets the Protected (P) flag and returns the receiver so
// it may be chained onto a constructor call.
func (avp *AVP) MakeProtected() *AVP {
	avp.Protected = true
	return avp
}

// ConvertDataToTypedData decodes avp.Data as dataType. It does not
// consult ExtendedAttributes; callers that want the dictionary-resolved
// type should use Dictionary.TypeAnAvp.
func (avp *AVP) ConvertDataToTypedData(dataType AVPDataType) (interface{}, error) {
	v, err := ConvertAVPDataToTypedData(avp.Data, dataType)
	if err != nil {
		return nil, newAvpError(avp.Code, avp.VendorID, err)
	}
	return v, nil
}

// AsInteger32 returns avp.Data decoded as Integer32.
func (avp *AVP) AsInteger32() (int32, error) {
	v, err := avp.ConvertDataToTypedData(Integer32)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

// AsUnsigned32 returns avp.Data decoded as Unsigned32.
func (avp *AVP) AsUnsigned32() (uint32, error) {
	v, err := avp.ConvertDataToTypedData(Unsigned32)
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// AsUnsigned64 returns avp.Data decoded as Unsigned64.
func (avp *AVP) AsUnsigned64() (uint64, error) {
	v, err := avp.ConvertDataToTypedData(Unsigned64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// AsOctetString returns avp.Data as-is (OctetString never fails to decode).
func (avp *AVP) AsOctetString() []byte {
	return avp.Data
}

// AsUTF8String returns avp.Data decoded as UTF8String.
func (avp *AVP) AsUTF8String() (string, error) {
	v, err := avp.ConvertDataToTypedData(UTF8String)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// AsDiamIdent returns avp.Data decoded as DiamIdent.
func (avp *AVP) AsDiamIdent() (string, error) {
	v, err := avp.ConvertDataToTypedData(DiamIdent)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// AsAddressV4 returns avp.Data decoded as an IPv4 Address. Returns
// ErrTypeMismatch if the payload is not a 6-byte IPv4 Address.
func (avp *AVP) AsAddressV4() (net.IP, error) {
	v, err := avp.ConvertDataToTypedData(Address)
	if err != nil {
		return nil, err
	}
	ip := v.(net.IP)
	if ip.To4() == nil {
		return nil, newAvpError(avp.Code, avp.VendorID, fmt.Errorf("%w: Address is not IPv4", ErrTypeMismatch))
	}
	return ip, nil
}

// AsGrouped decodes avp.Data as a sequence of child AVPs.
func (avp *AVP) AsGrouped() ([]*AVP, error) {
	v, err := avp.ConvertDataToTypedData(Grouped)
	if err != nil {
		return nil, err
	}
	return v.([]*AVP), nil
}

func appendUint32(buf *bytes.Buffer, v uint32) {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		panic(fmt.Sprintf("binary.Write failed: %s", err))
	}
}

// Encode produces the on-wire octet stream for this AVP, including any
// trailing pad bytes needed to reach a 4-byte boundary.
func (avp *AVP) Encode() []byte {
	buf := new(bytes.Buffer)

	appendUint32(buf, avp.Code)

	flags := uint32(0)
	if avp.VendorSpecific {
		flags |= avpFlagVendorSpecific
	}
	if avp.Mandatory {
		flags |= avpMandatoryFlag
	}
	if avp.Protected {
		flags |= avpProtectedFlag
	}

	appendUint32(buf, (flags<<24)|(uint32(avp.Length)&0x00ffffff))

	if avp.VendorSpecific {
		appendUint32(buf, avp.VendorID)
	}

	buf.Write(avp.Data)
	buf.Write(make([]byte, avp.PaddedLength-avp.Length))

	return buf.Bytes()
}

func (avp *AVP) updatePaddedLength() {
	if carry := avp.Length % 4; carry > 0 {
		avp.PaddedLength = avp.Length + (4 - carry)
	} else {
		avp.PaddedLength = avp.Length
	}
}

// Clone returns a deep copy of this AVP.
func (avp *AVP) Clone() *AVP {
	clone := *avp
	clone.Data = make([]byte, len(avp.Data))
	copy(clone.Data, avp.Data)
	return &clone
}

// Equal reports whether avp and a would encode to the same bytes.
func (avp *AVP) Equal(a *AVP) bool {
	if a == nil {
		return false
	}
	if avp.Code != a.Code || avp.VendorSpecific != a.VendorSpecific || avp.Mandatory != a.Mandatory ||
		avp.Protected != a.Protected || avp.VendorID != a.VendorID || avp.Length != a.Length || avp.PaddedLength != a.PaddedLength {
		return false
	}
	return bytes.Equal(avp.Data, a.Data)
}

// DecodeAVP parses one AVP, including its pad bytes, from the front of
// input. input must contain at least one complete AVP.
func DecodeAVP(input []byte) (*AVP, error) {
	if len(input) < nonVendorSpecificAvpHeaderLength {
		return nil, fmt.Errorf("%w: truncated AVP header", ErrMalformedAvp)
	}

	avp := new(AVP)
	avp.Code = binary.BigEndian.Uint32(input[0:4])

	flagsAndLength := binary.BigEndian.Uint32(input[4:8])
	flags := byte(flagsAndLength >> 24)
	avp.Length = int(flagsAndLength & 0x00ffffff)

	avp.Mandatory = flags&avpMandatoryFlag != 0
	avp.Protected = flags&avpProtectedFlag != 0
	avp.VendorSpecific = flags&avpFlagVendorSpecific != 0

	if flags&0x1f != 0 {
		return nil, newAvpError(avp.Code, 0, fmt.Errorf("%w: reserved flag bits set", ErrMalformedAvp))
	}

	if avp.Length > len(input) {
		return nil, newAvpError(avp.Code, 0, fmt.Errorf("%w: length field exceeds available bytes", ErrMalformedAvp))
	}

	headerLength := nonVendorSpecificAvpHeaderLength
	offset := 8

	if avp.VendorSpecific {
		if avp.Length < vendorSpecificAvpHeaderLength {
			return nil, newAvpError(avp.Code, 0, fmt.Errorf("%w: length too small for vendor-specific header", ErrMalformedAvp))
		}
		avp.VendorID = binary.BigEndian.Uint32(input[8:12])
		headerLength = vendorSpecificAvpHeaderLength
		offset = 12
	} else if avp.Length < nonVendorSpecificAvpHeaderLength {
		return nil, newAvpError(avp.Code, 0, fmt.Errorf("%w: length too small for AVP header", ErrMalformedAvp))
	}

	avp.Data = make([]byte, avp.Length-headerLength)
	copy(avp.Data, input[offset:avp.Length])

	avp.updatePaddedLength()

	return avp, nil
}

// AvpVendorIdAndCode is a (vendor-id, code) pair used to key AVP lookup maps.
type AvpVendorIdAndCode struct {
	VendorID uint32
	Code     uint32
}

// GenerateMapOfAvpsByVendorAndCode groups avps by (vendor-id, code),
// preserving each group's relative order.
func GenerateMapOfAvpsByVendorAndCode(avps []*AVP) map[AvpVendorIdAndCode][]*AVP {
	m := make(map[AvpVendorIdAndCode][]*AVP)
	for _, avp := range avps {
		key := AvpVendorIdAndCode{avp.VendorID, avp.Code}
		m[key] = append(m[key], avp)
	}
	return m
}

// AvpCodePath identifies one step of a path walk into nested Grouped AVPs.
type AvpCodePath struct {
	VendorID uint32
	Code     uint32
}

// Find returns the ordered list of direct child AVPs of avp (which must
// be Grouped) matching (vendorID, code).
func (avp *AVP) Find(vendorID, code uint32) []*AVP {
	children, err := avp.AsGrouped()
	if err != nil {
		return nil
	}
	var matches []*AVP
	for _, child := range children {
		if child.VendorID == vendorID && child.Code == code {
			matches = append(matches, child)
		}
	}
	return matches
}

// FindFirst walks a path of (vendor-id, code) pairs into nested Grouped
// AVPs, starting from avp's direct children, and returns the AVP at the
// end of the path, or nil if any step is absent.
func (avp *AVP) FindFirst(path ...AvpCodePath) *AVP {
	if len(path) == 0 {
		return nil
	}

	current := avp
	for _, step := range path {
		matches := current.Find(step.VendorID, step.Code)
		if len(matches) == 0 {
			return nil
		}
		current = matches[0]
	}
	return current
}
