// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"fmt"
	"log/slog"
	"net"
)

// Tag is a BER/SNMP type tag byte.
type Tag byte

// Tag values, matching original_source/src/QtSnmpData.h's constant set.
const (
	TagInteger        Tag = 0x02
	TagOctetString    Tag = 0x04
	TagNull           Tag = 0x05
	TagObject         Tag = 0x06
	TagSequence       Tag = 0x30
	TagIPAddress      Tag = 0x40
	TagCounter        Tag = 0x41
	TagGauge          Tag = 0x42
	TagTimeTicks      Tag = 0x43
	TagGetRequest     Tag = 0xA0
	TagGetNextRequest Tag = 0xA1
	TagGetResponse    Tag = 0xA2
	TagSetRequest     Tag = 0xA3
)

// containerTags are the tags whose content is a nested list of values
// rather than a scalar payload.
func (t Tag) isContainer() bool {
	switch t {
	case TagSequence, TagGetRequest, TagGetNextRequest, TagGetResponse, TagSetRequest:
		return true
	default:
		return false
	}
}

// String names the tag for diagnostics.
func (t Tag) String() string {
	switch t {
	case TagInteger:
		return "INTEGER"
	case TagOctetString:
		return "OCTET STRING"
	case TagNull:
		return "NULL"
	case TagObject:
		return "OBJECT IDENTIFIER"
	case TagSequence:
		return "SEQUENCE"
	case TagIPAddress:
		return "IpAddress"
	case TagCounter:
		return "Counter"
	case TagGauge:
		return "Gauge"
	case TagTimeTicks:
		return "TimeTicks"
	case TagGetRequest:
		return "GetRequest"
	case TagGetNextRequest:
		return "GetNextRequest"
	case TagGetResponse:
		return "GetResponse"
	case TagSetRequest:
		return "SetRequest"
	default:
		return fmt.Sprintf("Tag(0x%02X)", byte(t))
	}
}

// timeTicksStoredLen is the fixed internal width TIME-TICKS payloads
// are padded to, per QtSnmpData's constructor.
const timeTicksStoredLen = 8

// Value is a single node of the BER value tree: either a scalar
// (primitive tag, payload bytes, no children) or a container
// (SEQUENCE or one of the four PDU tags, nested children, no
// payload). A scalar that answers a variable-binding's OID carries
// that OID in address — this is bookkeeping the tree carries
// alongside the wire value, not part of the wire encoding itself:
// Encode does not emit it and Decode never sets it.
type Value struct {
	tag      Tag
	payload  []byte
	children []Value
	address  OID
}

// Tag returns the value's BER tag.
func (v Value) Tag() Tag { return v.tag }

// Payload returns the scalar's raw stored bytes. Empty for
// containers.
func (v Value) Payload() []byte { return v.payload }

// Children returns the container's nested values. Empty for scalars.
func (v Value) Children() []Value { return v.children }

// Address returns the OID this value answers, if it was set by a
// response binding.
func (v Value) Address() OID { return v.address }

// SetAddress records which OID this value answers.
func (v *Value) SetAddress(oid OID) { v.address = oid.Copy() }

// AddChild appends a child to a container value.
func (v *Value) AddChild(child Value) { v.children = append(v.children, child) }

// Equal reports structural equality: same tag, same payload bytes,
// same children (recursively), same address. Hand-rolled rather than
// reflect.DeepEqual so that a nil and an empty children slice compare
// equal, matching original_source's operator==.
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	if !bytesEqual(v.payload, other.payload) {
		return false
	}
	if !v.address.Equal(other.address) {
		return false
	}
	if len(v.children) != len(other.children) {
		return false
	}
	for i := range v.children {
		if !v.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsValid reports whether the value's stored payload is well formed
// for its tag. OBJECT and OCTET STRING values are always valid;
// containers and NULL require an empty payload;
// INTEGER/COUNTER/GAUGE reject non-minimal two's-complement padding
// and empty payloads; IP-ADDRESS requires exactly 4 bytes;
// TIME-TICKS requires the fixed 8-byte internal width. Unknown tags
// are never valid.
func (v Value) IsValid() bool {
	switch v.tag {
	case TagInteger, TagCounter, TagGauge:
		if len(v.payload) == 0 {
			return false
		}
		if len(v.payload) == 1 {
			return true
		}
		b0, b1 := v.payload[0], v.payload[1]
		if b0 == 0xFF && b1&0x80 != 0 {
			return false
		}
		if b0 == 0x00 && b1&0x80 == 0 {
			return false
		}
		return true
	case TagIPAddress:
		return len(v.payload) == 4
	case TagTimeTicks:
		return len(v.payload) == timeTicksStoredLen
	case TagNull:
		return len(v.payload) == 0
	case TagObject, TagOctetString:
		return true
	default:
		if v.tag.isContainer() {
			return len(v.payload) == 0
		}
		return false
	}
}

// AsI64 returns the value's payload interpreted as a signed integer
// (INTEGER) or an unsigned integer (COUNTER, GAUGE, TIME-TICKS,
// reinterpreted as non-negative). ok is false for any other tag.
func (v Value) AsI64() (n int64, ok bool) {
	switch v.tag {
	case TagInteger:
		return decodeInteger(v.payload), true
	case TagCounter, TagGauge:
		return int64(decodeUnsignedInteger(v.payload)), true
	case TagTimeTicks:
		return int64(decodeUnsignedInteger(v.payload)), true
	default:
		return 0, false
	}
}

// AsText returns an OCTET STRING payload as text, or an OBJECT
// value's canonical dotted-decimal OID text.
func (v Value) AsText() (string, bool) {
	switch v.tag {
	case TagOctetString:
		return string(v.payload), true
	case TagObject:
		return string(v.payload), true
	default:
		return "", false
	}
}

// AsOID parses an OBJECT value's stored text back into an OID.
func (v Value) AsOID() (OID, bool) {
	if v.tag != TagObject {
		return nil, false
	}
	oid, err := ParseOID(string(v.payload))
	if err != nil {
		return nil, false
	}
	return oid, true
}

// AsIP interprets an IP-ADDRESS value's 4-byte payload as a net.IP.
func (v Value) AsIP() (net.IP, bool) {
	if v.tag != TagIPAddress || len(v.payload) != 4 {
		return nil, false
	}
	ip := make(net.IP, 4)
	copy(ip, v.payload)
	return ip, true
}

// Integer builds an INTEGER value from n, using its minimal
// two's-complement encoding.
func Integer(n int64) Value {
	return Value{tag: TagInteger, payload: encodeInteger(n)}
}

// Unsigned builds a value of the given unsigned tag (Counter, Gauge or
// TimeTicks) from n. TimeTicks is always stored at the fixed 8-byte
// internal width, left-zero-padded.
func Unsigned(tag Tag, n uint64) Value {
	if tag == TagTimeTicks {
		payload := make([]byte, timeTicksStoredLen)
		for i := timeTicksStoredLen - 1; i >= 0; i-- {
			payload[i] = byte(n)
			n >>= 8
		}
		return Value{tag: TagTimeTicks, payload: payload}
	}
	return Value{tag: tag, payload: encodeUnsignedInteger(n)}
}

// Null builds a NULL value.
func Null() Value {
	return Value{tag: TagNull}
}

// String builds an OCTET STRING value.
func String(s string) Value {
	return Value{tag: TagOctetString, payload: []byte(s)}
}

// IPAddress builds an IP-ADDRESS value from a 4-byte (or 4-byte-
// representable) net.IP.
func IPAddress(ip net.IP) Value {
	v4 := ip.To4()
	if v4 == nil {
		return Value{tag: TagIPAddress}
	}
	payload := make([]byte, 4)
	copy(payload, v4)
	return Value{tag: TagIPAddress, payload: payload}
}

// OIDValue builds an OBJECT value from oid. Construction never
// validates the OID — validity (the mandatory 1.3 prefix, 31-bit
// sub-identifiers) is only checked at Encode time, matching
// QtSnmpData::oid's lazy factory.
func OIDValue(oid OID) Value {
	return Value{tag: TagObject, payload: []byte(oid.String())}
}

// Sequence builds a container value of the given tag (normally
// TagSequence, or one of the four PDU tags) from children.
func Sequence(tag Tag, children ...Value) Value {
	return Value{tag: tag, children: children}
}

// Encode serializes v to its BER wire form. An OBJECT value whose
// stored OID text is missing the 1.3 prefix or carries a
// sub-identifier wider than 31 bits fails encoding here, not at
// construction.
func (v Value) Encode() ([]byte, error) {
	if v.tag.isContainer() {
		var payload []byte
		for _, child := range v.children {
			enc, err := child.Encode()
			if err != nil {
				return nil, err
			}
			payload = append(payload, enc...)
		}
		return encodeTLV(nil, byte(v.tag), payload), nil
	}

	if v.tag == TagObject {
		oid, err := ParseOID(string(v.payload))
		if err != nil {
			return nil, fmt.Errorf("snmp: encode OBJECT %q: %w", v.payload, err)
		}
		return encodeTLV(nil, byte(v.tag), encodeOID(oid)), nil
	}

	if v.tag == TagTimeTicks {
		// Deliberate divergence from original_source's makeSnmpChunk,
		// which emits the 8 stored bytes verbatim: this derives a
		// proper minimal unsigned wire encoding while still keeping
		// the fixed 8-byte internal storage invariant.
		n := decodeUnsignedInteger(v.payload)
		return encodeTLV(nil, byte(v.tag), encodeUnsignedInteger(n)), nil
	}

	return encodeTLV(nil, byte(v.tag), v.payload), nil
}

// Decode parses a buffer of zero or more top-level BER TLV frames
// into Values. Malformed input is never returned as an error: per the
// decoder's tie-break rules (grounded on
// original_source/QtSnmpData::parseData), a frame with fewer than 2
// remaining octets or a declared length exceeding what's left simply
// stops the decode at that point, returning whatever parsed cleanly
// so far; an unrecognized tag produces an IsValid()==false Value
// rather than aborting; a malformed item inside a container aborts
// only that container, not the whole decode.
func Decode(logger *slog.Logger, buf []byte) []Value {
	if logger == nil {
		logger = slog.Default()
	}
	var values []Value
	off := 0
	for off < len(buf) {
		v, next, ok := decodeOne(logger, buf, off)
		if !ok {
			logger.Debug("snmp: stopping decode, malformed frame", "offset", off, "remaining", len(buf)-off)
			break
		}
		values = append(values, v)
		off = next
	}
	return values
}

func decodeOne(logger *slog.Logger, buf []byte, off int) (Value, int, bool) {
	frame, ok := decodeTLV(buf, off)
	if !ok {
		return Value{}, off, false
	}
	tag := Tag(frame.tag)

	if tag.isContainer() {
		v := Value{tag: tag}
		coff := 0
		for coff < len(frame.payload) {
			child, cnext, cok := decodeOne(logger, frame.payload, coff)
			if !cok {
				logger.Debug("snmp: aborting container parse", "tag", tag, "offset", coff)
				break
			}
			v.children = append(v.children, child)
			coff = cnext
		}
		return v, frame.next, true
	}

	switch tag {
	case TagObject:
		oid, decOK := decodeOID(frame.payload)
		if !decOK {
			logger.Debug("snmp: malformed OBJECT payload", "bytes", frame.payload)
			return Value{tag: tag, payload: frame.payload}, frame.next, true
		}
		return Value{tag: tag, payload: []byte(oid.String())}, frame.next, true
	case TagTimeTicks:
		payload := make([]byte, timeTicksStoredLen)
		if len(frame.payload) > timeTicksStoredLen {
			copy(payload, frame.payload[len(frame.payload)-timeTicksStoredLen:])
		} else {
			copy(payload[timeTicksStoredLen-len(frame.payload):], frame.payload)
		}
		return Value{tag: tag, payload: payload}, frame.next, true
	default:
		return Value{tag: tag, payload: append([]byte(nil), frame.payload...)}, frame.next, true
	}
}
