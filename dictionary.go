package diameter

import (
	"encoding/xml"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// dictionaryXMLEnum is one <enum> child of an <avp> element.
type dictionaryXMLEnum struct {
	Name string `xml:"name,attr"`
	Code int32  `xml:"code,attr"`
}

// dictionaryXMLAvp is one <avp> element.
type dictionaryXMLAvp struct {
	Name      string              `xml:"name,attr"`
	Code      uint32              `xml:"code,attr"`
	VendorID  uint32              `xml:"vendor-id,attr"`
	Type      string              `xml:"type,attr"`
	Mandatory string              `xml:"mandatory,attr"`
	Protected string              `xml:"protected,attr"`
	Enums     []dictionaryXMLEnum `xml:"enum"`
}

// dictionaryXMLCommand is one <command> element, nested inside <application>.
type dictionaryXMLCommand struct {
	Name     string `xml:"name,attr"`
	Code     uint32 `xml:"code,attr"`
	VendorID uint32 `xml:"vendor-id,attr"`
}

// dictionaryXMLApplication is one <application> element.
type dictionaryXMLApplication struct {
	ID       uint32                  `xml:"id,attr"`
	Commands []dictionaryXMLCommand  `xml:"command"`
}

// dictionaryXMLVendor is one <vendor> element.
type dictionaryXMLVendor struct {
	Name string `xml:"vendor-id,attr"`
	Code uint32 `xml:"code,attr"`
}

// dictionaryXMLRoot is the top-level <dictionary> document described by
// spec §4.3/§6: a flat sequence of <vendor>, <application>, and <avp>
// elements. Unrecognized elements are ignored by encoding/xml unless a
// field is declared for them, matching the "accepts unknown elements
// silently" requirement.
type dictionaryXMLRoot struct {
	XMLName      xml.Name                   `xml:"dictionary"`
	Vendors      []dictionaryXMLVendor      `xml:"vendor"`
	Applications []dictionaryXMLApplication `xml:"application"`
	Avps         []dictionaryXMLAvp         `xml:"avp"`
}

// DictionaryYamlAvpEnumerationType is the type for Avp Enumerations in the
// secondary YAML dictionary format, retained from the teacher's original
// dictionary loader for backward compatibility with pre-existing sample
// dictionaries.
type DictionaryYamlAvpEnumerationType struct {
	Name  string `yaml:"Name"`
	Value uint32 `yaml:"Value"`
}

// DictionaryYamlAvpType is the type for AvpTypes in a Diameter YAML Dictionary.
type DictionaryYamlAvpType struct {
	Name        string                             `yaml:"Name"`
	Code        uint32                             `yaml:"Code"`
	Type        string                             `yaml:"Type"`
	VendorID    uint32                             `yaml:"VendorId"`
	Enumeration []DictionaryYamlAvpEnumerationType `yaml:"Enumeration"`
}

// DictionaryYamlMessageAbbreviation is the type for MessageTypes.Abbreviations
// in a Diameter YAML Dictionary.
type DictionaryYamlMessageAbbreviation struct {
	Request string `yaml:"Request"`
	Answer  string `yaml:"Answer"`
}

// DictionaryYamlMessageType is the type for MessageTypes in a Diameter YAML Dictionary.
type DictionaryYamlMessageType struct {
	Basename      string                            `yaml:"Basename"`
	Code          uint32                            `yaml:"Code"`
	ApplicationID uint32                            `yaml:"ApplicationId"`
	Abbreviations DictionaryYamlMessageAbbreviation `yaml:"Abbreviations"`
}

// DictionaryYaml represents a YAML dictionary containing Diameter message
// type and AVP definitions, in the teacher's original (non-XML) format.
type DictionaryYaml struct {
	AvpTypes     []DictionaryYamlAvpType     `yaml:"AvpTypes"`
	MessageTypes []DictionaryYamlMessageType `yaml:"MessageTypes"`
}

type dictionaryCommandDescriptor struct {
	name     string
	code     uint32
	vendorID uint32
	appID    uint32
}

type dictionaryAvpDescriptor struct {
	name      string
	code      uint32
	vendorID  uint32
	dataType  AVPDataType
	mandatory bool
	protected bool
	enumByName map[string]int32
	enumByCode map[int32]string
}

type avpFullyQualifiedCodeType struct {
	vendorID uint32
	code     uint32
}

type commandFullyQualifiedCodeType struct {
	appID uint32
	code  uint32
}

// Dictionary is a Diameter dictionary: the three indices named in spec
// §3 (command descriptors by name and by (app-id, code); AVP descriptors
// by name and by (vendor-id, code)).
type Dictionary struct {
	commandDescriptorByName       map[string]*dictionaryCommandDescriptor
	commandDescriptorByCode        map[commandFullyQualifiedCodeType]*dictionaryCommandDescriptor
	avpDescriptorByName             map[string]*dictionaryAvpDescriptor
	avpDescriptorByFullyQualifiedCode map[avpFullyQualifiedCodeType]*dictionaryAvpDescriptor
	vendorCodeByName                 map[string]uint32
}

var mapOfXMLAvpTypeStringToAVPDataType = map[string]AVPDataType{
	"Unsigned32":   Unsigned32,
	"Unsigned64":   Unsigned64,
	"Integer32":    Integer32,
	"Integer64":    Integer64,
	"Float32":      Float32,
	"Float64":      Float64,
	"Enumerated":   Enumerated,
	"OctetString":  OctetString,
	"UTF8String":   UTF8String,
	"Grouped":      Grouped,
	"Address":      Address,
	"Time":         Time,
	"DiamIdent":    DiamIdent,
	"DiamURI":      DiamURI,
	"IPFilterRule": IPFilterRule,
}

func newEmptyDictionary() *Dictionary {
	return &Dictionary{
		commandDescriptorByName:           make(map[string]*dictionaryCommandDescriptor),
		commandDescriptorByCode:           make(map[commandFullyQualifiedCodeType]*dictionaryCommandDescriptor),
		avpDescriptorByName:               make(map[string]*dictionaryAvpDescriptor),
		avpDescriptorByFullyQualifiedCode: make(map[avpFullyQualifiedCodeType]*dictionaryAvpDescriptor),
		vendorCodeByName:                  make(map[string]uint32),
	}
}

// FromXMLFile loads a Diameter dictionary from an XML file per spec §4.3.
func FromXMLFile(path string) (*Dictionary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file (%s): %w", path, err)
	}
	return FromXMLString(string(content))
}

// FromXMLString loads a Diameter dictionary from an XML document per spec
// §4.3/§6. A missing vendor-id attribute anywhere resolves to 0. An
// <avp> or <command> element without a name attribute, a <vendor>
// element without its vendor-id attribute, or an <avp> with an
// unrecognized type, is a load failure naming the kind of element. No other attribute is checked: a missing code takes the
// value 0, and a missing mandatory or protected attribute leaves that
// flag unset.
func FromXMLString(document string) (*Dictionary, error) {
	root := new(dictionaryXMLRoot)
	if err := xml.Unmarshal([]byte(document), root); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary XML: %w", err)
	}

	dictionary := newEmptyDictionary()

	for _, vendor := range root.Vendors {
		if vendor.Name == "" {
			return nil, fmt.Errorf("dictionary <vendor> element missing vendor-id name attribute")
		}
		dictionary.vendorCodeByName[vendor.Name] = vendor.Code
	}

	for _, avpElement := range root.Avps {
		if avpElement.Name == "" {
			return nil, fmt.Errorf("dictionary <avp> element missing name attribute")
		}

		dataType, typeIsKnown := mapOfXMLAvpTypeStringToAVPDataType[avpElement.Type]
		if !typeIsKnown {
			return nil, fmt.Errorf("dictionary <avp name=%q> has unrecognized type (%s)", avpElement.Name, avpElement.Type)
		}

		descriptor := &dictionaryAvpDescriptor{
			name:      avpElement.Name,
			code:      avpElement.Code,
			vendorID:  avpElement.VendorID,
			dataType:  dataType,
			mandatory: avpElement.Mandatory == "must",
			protected: avpElement.Protected == "must",
		}

		if len(avpElement.Enums) > 0 {
			descriptor.enumByName = make(map[string]int32, len(avpElement.Enums))
			descriptor.enumByCode = make(map[int32]string, len(avpElement.Enums))
			for _, enum := range avpElement.Enums {
				descriptor.enumByName[enum.Name] = enum.Code
				descriptor.enumByCode[enum.Code] = enum.Name
			}
		}

		dictionary.avpDescriptorByName[avpElement.Name] = descriptor
		dictionary.avpDescriptorByFullyQualifiedCode[avpFullyQualifiedCodeType{avpElement.VendorID, avpElement.Code}] = descriptor
	}

	for _, application := range root.Applications {
		for _, command := range application.Commands {
			if command.Name == "" {
				return nil, fmt.Errorf("dictionary <command> element (application id=%d) missing name attribute", application.ID)
			}

			descriptor := &dictionaryCommandDescriptor{
				name:     command.Name,
				code:     command.Code,
				vendorID: command.VendorID,
				appID:    application.ID,
			}

			dictionary.commandDescriptorByName[command.Name] = descriptor

			// A request and its answer share a code; the first one listed
			// (conventionally the request) keeps the by-code entry.
			codeKey := commandFullyQualifiedCodeType{application.ID, command.Code}
			if _, exists := dictionary.commandDescriptorByCode[codeKey]; !exists {
				dictionary.commandDescriptorByCode[codeKey] = descriptor
			}
		}
	}

	return dictionary, nil
}

// FromYAMLFile loads a dictionary from the teacher's original YAML
// format, retained for backward compatibility with pre-existing sample
// dictionary files.
func FromYAMLFile(path string) (*Dictionary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file (%s): %w", path, err)
	}
	return FromYAMLString(string(content))
}

// FromYAMLString loads a dictionary from a YAML document in the
// teacher's original (non-XML) dictionary format.
func FromYAMLString(document string) (*Dictionary, error) {
	yamlForm := new(DictionaryYaml)
	if err := yaml.Unmarshal([]byte(document), yamlForm); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary YAML: %w", err)
	}

	dictionary := newEmptyDictionary()

	for _, yamlAvp := range yamlForm.AvpTypes {
		dataType, typeIsKnown := mapOfXMLAvpTypeStringToAVPDataType[yamlAvp.Type]
		if !typeIsKnown {
			return nil, fmt.Errorf("dictionary AVP (%s) has unrecognized type (%s)", yamlAvp.Name, yamlAvp.Type)
		}

		descriptor := &dictionaryAvpDescriptor{
			name:     yamlAvp.Name,
			code:     yamlAvp.Code,
			vendorID: yamlAvp.VendorID,
			dataType: dataType,
		}

		if len(yamlAvp.Enumeration) > 0 {
			descriptor.enumByName = make(map[string]int32, len(yamlAvp.Enumeration))
			descriptor.enumByCode = make(map[int32]string, len(yamlAvp.Enumeration))
			for _, enum := range yamlAvp.Enumeration {
				descriptor.enumByName[enum.Name] = int32(enum.Value)
				descriptor.enumByCode[int32(enum.Value)] = enum.Name
			}
		}

		dictionary.avpDescriptorByName[yamlAvp.Name] = descriptor
		dictionary.avpDescriptorByFullyQualifiedCode[avpFullyQualifiedCodeType{yamlAvp.VendorID, yamlAvp.Code}] = descriptor
	}

	for _, yamlMessage := range yamlForm.MessageTypes {
		requestDescriptor := &dictionaryCommandDescriptor{
			name:  yamlMessage.Basename + "-Request",
			code:  yamlMessage.Code,
			appID: yamlMessage.ApplicationID,
		}
		dictionary.commandDescriptorByName[requestDescriptor.name] = requestDescriptor
		dictionary.commandDescriptorByName[yamlMessage.Abbreviations.Request] = requestDescriptor
		dictionary.commandDescriptorByCode[commandFullyQualifiedCodeType{yamlMessage.ApplicationID, yamlMessage.Code}] = requestDescriptor

		answerDescriptor := &dictionaryCommandDescriptor{
			name:  yamlMessage.Basename + "-Answer",
			code:  yamlMessage.Code,
			appID: yamlMessage.ApplicationID,
		}
		dictionary.commandDescriptorByName[answerDescriptor.name] = answerDescriptor
		dictionary.commandDescriptorByName[yamlMessage.Abbreviations.Answer] = answerDescriptor
	}

	return dictionary, nil
}

// Command returns the command descriptor named name, or nil if unknown.
// Unknown names yield nil rather than an error per spec §4.3 ("never
// raise in the hot path").
func (d *Dictionary) Command(name string) *dictionaryCommandDescriptor {
	return d.commandDescriptorByName[name]
}

// CommandName returns the dictionary name of the command with
// (appID, code), or "" if unknown.
func (d *Dictionary) CommandName(appID, code uint32) string {
	if descriptor := d.commandDescriptorByCode[commandFullyQualifiedCodeType{appID, code}]; descriptor != nil {
		return descriptor.name
	}
	return ""
}

// IsCommand reports whether message's (application-id, command-code)
// matches the command named name in the dictionary.
func (d *Dictionary) IsCommand(m *Message, name string) bool {
	descriptor := d.commandDescriptorByName[name]
	return descriptor != nil && descriptor.appID == m.AppID && descriptor.code == uint32(m.Code)
}

// AvpCode returns the (code, vendor-id) pair for the AVP named name.
// ok is false if name is not in the dictionary.
func (d *Dictionary) AvpCode(name string) (code, vendorID uint32, ok bool) {
	descriptor, isInMap := d.avpDescriptorByName[name]
	if !isInMap {
		return 0, 0, false
	}
	return descriptor.code, descriptor.vendorID, true
}

// Avp returns the AVP descriptor's data type for name, or
// TypeOrAvpUnknown if name is not in the dictionary.
func (d *Dictionary) Avp(name string) AVPDataType {
	if descriptor, isInMap := d.avpDescriptorByName[name]; isInMap {
		return descriptor.dataType
	}
	return TypeOrAvpUnknown
}

// DataTypeForAvp returns the AVPDataType for avp based on its
// vendor-id and code, or TypeOrAvpUnknown if not in the dictionary.
func (d *Dictionary) DataTypeForAvp(avp *AVP) AVPDataType {
	if descriptor, isInMap := d.avpDescriptorByFullyQualifiedCode[avpFullyQualifiedCodeType{avp.VendorID, avp.Code}]; isInMap {
		return descriptor.dataType
	}
	return TypeOrAvpUnknown
}

// EnumCode returns the integer value of enumName for the Enumerated AVP
// named avpName. ok is false if either name is unknown.
func (d *Dictionary) EnumCode(avpName, enumName string) (code int32, ok bool) {
	descriptor, isInMap := d.avpDescriptorByName[avpName]
	if !isInMap || descriptor.enumByName == nil {
		return 0, false
	}
	code, ok = descriptor.enumByName[enumName]
	return code, ok
}

// EnumName returns the symbolic name of code for the Enumerated AVP
// named avpName. ok is false if either is unknown.
func (d *Dictionary) EnumName(avpName string, code int32) (name string, ok bool) {
	descriptor, isInMap := d.avpDescriptorByName[avpName]
	if !isInMap || descriptor.enumByCode == nil {
		return "", false
	}
	name, ok = descriptor.enumByCode[code]
	return name, ok
}

// BuildAvpErrorable returns a prototype AVP for the dictionary AVP named
// name, with code, vendor-id, and the Mandatory/Protected flags
// pre-populated from the dictionary and Data left empty. Returns an
// error if name is unknown.
func (d *Dictionary) BuildAvpErrorable(name string) (*AVP, error) {
	descriptor, isInMap := d.avpDescriptorByName[name]
	if !isInMap {
		return nil, fmt.Errorf("no AVP named (%s) in the dictionary", name)
	}

	avp := NewAVP(descriptor.code, descriptor.vendorID, descriptor.mandatory, []byte{})
	if descriptor.protected {
		avp.MakeProtected()
	}
	return avp, nil
}

// BuildAvp is BuildAvpErrorable but panics on error.
func (d *Dictionary) BuildAvp(name string) *AVP {
	avp, err := d.BuildAvpErrorable(name)
	if err != nil {
		panic(err)
	}
	return avp
}

// AVPErrorable returns a fully encoded AVP based on the dictionary
// definition for name, with its value encoded from value per the
// dictionary's declared type. Returns an error if name is unknown or
// value cannot be encoded as that type.
func (d *Dictionary) AVPErrorable(name string, value interface{}) (*AVP, error) {
	descriptor, isInMap := d.avpDescriptorByName[name]
	if !isInMap {
		return nil, fmt.Errorf("no AVP named (%s) in the dictionary", name)
	}

	avp, err := NewTypedAVPErrorable(descriptor.code, descriptor.vendorID, descriptor.mandatory, descriptor.dataType, value)
	if err != nil {
		return nil, err
	}
	if descriptor.protected {
		avp.MakeProtected()
	}
	return avp, nil
}

// AVP is AVPErrorable but panics on error.
func (d *Dictionary) AVP(name string, value interface{}) *AVP {
	avp, err := d.AVPErrorable(name, value)
	if err != nil {
		panic(err)
	}
	return avp
}

// TypeAnAvp resolves untypedAvp's dictionary name and typed value from
// its (vendor-id, code). If the AVP type is not in the dictionary, its
// ExtendedAttributes is set to nil and untypedAvp is returned unchanged.
func (d *Dictionary) TypeAnAvp(untypedAvp *AVP) (*AVP, error) {
	descriptor, isInMap := d.avpDescriptorByFullyQualifiedCode[avpFullyQualifiedCodeType{untypedAvp.VendorID, untypedAvp.Code}]
	if !isInMap {
		untypedAvp.ExtendedAttributes = nil
		return untypedAvp, nil
	}

	typedData, err := untypedAvp.ConvertDataToTypedData(descriptor.dataType)
	if err != nil {
		return nil, err
	}

	untypedAvp.ExtendedAttributes = &AVPExtendedAttributes{
		Name:       descriptor.name,
		DataType:   descriptor.dataType,
		TypedValue: typedData,
	}

	return untypedAvp, nil
}

// FindAvp returns the ordered list of top-level AVPs in container
// (which must be a Grouped AVP) matching the dictionary AVP
// named name. Unknown names yield an empty slice.
func (d *Dictionary) FindAvp(container *AVP, name string) []*AVP {
	descriptor, isInMap := d.avpDescriptorByName[name]
	if !isInMap {
		return nil
	}
	return container.Find(descriptor.vendorID, descriptor.code)
}

// FindFirstInMessage walks a path of dictionary AVP names into a
// message's top-level AVPs and any nested Grouped AVPs, returning the
// AVP at the end of the path or nil if any step or name is unknown.
func (d *Dictionary) FindFirstInMessage(m *Message, names ...string) *AVP {
	if len(names) == 0 {
		return nil
	}

	descriptor, isInMap := d.avpDescriptorByName[names[0]]
	if !isInMap {
		return nil
	}

	matches := m.TopLevelAvpsMatching(descriptor.vendorID, Uint24(descriptor.code))
	if len(matches) == 0 {
		return nil
	}

	if len(names) == 1 {
		return matches[0]
	}

	remainingPath := make([]AvpCodePath, 0, len(names)-1)
	for _, name := range names[1:] {
		stepDescriptor, stepIsInMap := d.avpDescriptorByName[name]
		if !stepIsInMap {
			return nil
		}
		remainingPath = append(remainingPath, AvpCodePath{VendorID: stepDescriptor.vendorID, Code: stepDescriptor.code})
	}

	return matches[0].FindFirst(remainingPath...)
}
