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

// Low-level BER primitives underlying Value's Encode/Decode. Length
// and integer packing follow the teacher's protocol.go; OID packing
// follows original_source/src/QtSnmpData.cpp's packOid, which encodes
// the iso.org prefix (sub-identifiers 1, 3) as the single combined
// byte 0x2B ( = 1*40 + 3 ).

// encodeLength appends the BER length encoding of n to dst. Short form
// (n < 0x80) is a single byte; long form is 0x80|k followed by k
// big-endian bytes holding n, using the minimal number of bytes.
func encodeLength(dst []byte, n int) []byte {
	if n < 0x80 {
		return append(dst, byte(n))
	}
	var buf [4]byte
	k := 0
	for v := n; v > 0; v >>= 8 {
		buf[k] = byte(v)
		k++
	}
	dst = append(dst, 0x80|byte(k))
	for i := k - 1; i >= 0; i-- {
		dst = append(dst, buf[i])
	}
	return dst
}

// decodeLength reads a BER length from buf starting at offset off,
// returning the decoded length and the offset of the first byte past
// the length field. ok is false if buf is too short to contain a
// complete length field.
func decodeLength(buf []byte, off int) (n int, next int, ok bool) {
	if off >= len(buf) {
		return 0, off, false
	}
	first := buf[off]
	off++
	if first < 0x80 {
		return int(first), off, true
	}
	k := int(first &^ 0x80)
	if k == 0 || off+k > len(buf) {
		return 0, off, false
	}
	n = 0
	for i := 0; i < k; i++ {
		n = n<<8 | int(buf[off+i])
	}
	return n, off + k, true
}

// encodeInteger returns the minimal two's-complement big-endian
// encoding of v.
func encodeInteger(v int64) []byte {
	if v >= -128 && v <= 127 {
		return []byte{byte(v)}
	}
	var buf []byte
	neg := v < 0
	for {
		buf = append([]byte{byte(v)}, buf...)
		v >>= 8
		if neg {
			if v == -1 && buf[0]&0x80 != 0 {
				break
			}
		} else {
			if v == 0 && buf[0]&0x80 == 0 {
				break
			}
		}
	}
	return buf
}

// decodeInteger interprets payload as a minimal two's-complement
// signed integer.
func decodeInteger(payload []byte) int64 {
	if len(payload) == 0 {
		return 0
	}
	v := int64(int8(payload[0]))
	for _, b := range payload[1:] {
		v = v<<8 | int64(b)
	}
	return v
}

// encodeUnsignedInteger returns the minimal unsigned big-endian
// encoding of v, prefixed with a zero byte when the top bit of the
// minimal form would otherwise be set (so the value can never be
// mistaken for a negative two's-complement integer).
func encodeUnsignedInteger(v uint64) []byte {
	var buf []byte
	for {
		buf = append([]byte{byte(v)}, buf...)
		v >>= 8
		if v == 0 {
			break
		}
	}
	if buf[0]&0x80 != 0 {
		buf = append([]byte{0x00}, buf...)
	}
	return buf
}

// decodeUnsignedInteger interprets payload as an unsigned big-endian
// integer.
func decodeUnsignedInteger(payload []byte) uint64 {
	var v uint64
	for _, b := range payload {
		v = v<<8 | uint64(b)
	}
	return v
}

// isoOrgPrefixByte is the packed encoding of the OID's mandatory
// sub-identifiers 1 and 3 (1*40 + 3 = 43 = 0x2B), matching
// QtSnmpData.cpp's ISO_ORG_OID handling.
const isoOrgPrefixByte = 0x2B

// encodeOIDComponent appends the base-128 big-endian encoding of n to
// dst, with the continuation bit (0x80) set on every byte but the
// last.
func encodeOIDComponent(dst []byte, n uint32) []byte {
	if n < 0x80 {
		return append(dst, byte(n))
	}
	var buf [5]byte
	k := 0
	for v := n; v > 0; v >>= 7 {
		buf[k] = byte(v & 0x7F)
		k++
	}
	for i := k - 1; i >= 0; i-- {
		b := buf[i]
		if i != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// encodeOID packs oid (including its mandatory 1.3 prefix) into BER
// sub-identifier bytes. oid must be valid (len >= 2, oid[0]==1,
// oid[1]==3) and every component must fit in 31 bits; callers must
// validate before calling.
func encodeOID(oid OID) []byte {
	buf := []byte{isoOrgPrefixByte}
	for _, n := range oid[2:] {
		buf = encodeOIDComponent(buf, n)
	}
	return buf
}

// decodeOID unpacks BER sub-identifier bytes into a dotted OID,
// reversing the 1.3 prefix combination.
func decodeOID(payload []byte) (OID, bool) {
	if len(payload) == 0 {
		return nil, false
	}
	first := payload[0]
	oid := OID{uint32(first) / 40, uint32(first) % 40}

	var cur uint32
	haveByte := false
	for _, b := range payload[1:] {
		cur = cur<<7 | uint32(b&0x7F)
		haveByte = true
		if b&0x80 == 0 {
			oid = append(oid, cur)
			cur = 0
			haveByte = false
		}
	}
	if haveByte {
		return nil, false
	}
	return oid, true
}

// tlv is a single decoded tag-length-value frame plus the offset of
// the byte immediately following it.
type tlv struct {
	tag     byte
	payload []byte
	next    int
}

// decodeTLV reads one BER TLV frame from buf at offset off. ok is
// false when fewer than 2 octets remain or the declared length
// exceeds what's left in buf — the two "stop and log" conditions the
// decoder never treats as hard errors.
func decodeTLV(buf []byte, off int) (frame tlv, ok bool) {
	if len(buf)-off < 2 {
		return tlv{}, false
	}
	tag := buf[off]
	length, valueOff, lenOK := decodeLength(buf, off+1)
	if !lenOK {
		return tlv{}, false
	}
	if valueOff+length > len(buf) {
		return tlv{}, false
	}
	return tlv{tag: tag, payload: buf[valueOff : valueOff+length], next: valueOff + length}, true
}

// encodeTLV appends a full tag-length-value frame for tag/payload to
// dst.
func encodeTLV(dst []byte, tag byte, payload []byte) []byte {
	dst = append(dst, tag)
	dst = encodeLength(dst, len(payload))
	dst = append(dst, payload...)
	return dst
}
