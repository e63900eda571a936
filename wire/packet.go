// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the bit-exact packet and blob codec of
// spec §4.1-§4.2: 128-byte wire packets, the 184-byte expanded signing
// block, dmx/mid derivation and the out-of-log blob sidechain.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire/varint"
)

// Packet type tags (spec §3).
const (
	PlainText48 byte = 0x00
	Chain20     byte = 0x01
	IsChild     byte = 0x02
	IsContn     byte = 0x03
	MkChild     byte = 0x04
	ContDas     byte = 0x05
	Acknldg     byte = 0x06
	UpdFile     byte = 0x07
	ApplyUp     byte = 0x08 // resolves the 0x08-vs-0x09 Open Question in favor of 0x08.
)

// Wire sizes.
const (
	PacketSize    = 128
	PrefixSize    = 8
	DMXSize       = 7
	PayloadSize   = 48
	SignatureSize = crypto.SignatureSize
	blockNameSize = PrefixSize + 32 + 4 + 20 // prefix || fid || seq || prev_mid
	signableSize  = blockNameSize + DMXSize + 1 + PayloadSize
)

// Prefix is the active protocol prefix literal. Exactly one prefix is
// compiled into a given build; LegacyPrefix documents the predecessor
// format for reference, not for simultaneous use.
var (
	Prefix       = [PrefixSize]byte{'t', 'i', 'n', 'y', '-', 'v', '0', '2'}
	LegacyPrefix = [PrefixSize]byte{'t', 'i', 'n', 'y', '-', 'v', '0', '1'}
)

// Packet is a decoded wire packet together with the context
// (fid/seq/prev_mid) it was verified against.
type Packet struct {
	FID       ids.FID
	Seq       uint32
	PrevMID   ids.MID
	DMX       ids.DMX
	Type      byte
	Payload   [PayloadSize]byte
	Signature crypto.Signature
	MID       ids.MID
}

// Wire returns the 128-byte on-the-wire encoding of p.
func (p *Packet) Wire() [PacketSize]byte {
	var w [PacketSize]byte
	copy(w[0:8], Prefix[:])
	copy(w[8:15], p.DMX[:])
	w[15] = p.Type
	copy(w[16:64], p.Payload[:])
	copy(w[64:128], p.Signature[:])
	return w
}

func blockName(fid ids.FID, seq uint32, prevMID ids.MID) [blockNameSize]byte {
	var b [blockNameSize]byte
	copy(b[0:8], Prefix[:])
	copy(b[8:40], fid[:])
	binary.BigEndian.PutUint32(b[40:44], seq)
	copy(b[44:64], prevMID[:])
	return b
}

func computeDMX(fid ids.FID, seq uint32, prevMID ids.MID) ids.DMX {
	bn := blockName(fid, seq, prevMID)
	sum := crypto.Sum256(bn[:])
	var d ids.DMX
	copy(d[:], sum[:DMXSize])
	return d
}

// NextDMX returns the demultiplex tag a peer at (fid, frontSeq,
// frontMID) should advertise as "what I expect next" (spec §4.3).
func NextDMX(fid ids.FID, frontSeq uint32, frontMID ids.MID) ids.DMX {
	return computeDMX(fid, frontSeq+1, frontMID)
}

func signableBlock(bn [blockNameSize]byte, dmx ids.DMX, typ byte, payload [PayloadSize]byte) [signableSize]byte {
	var e [signableSize]byte
	copy(e[0:blockNameSize], bn[:])
	off := blockNameSize
	copy(e[off:off+DMXSize], dmx[:])
	off += DMXSize
	e[off] = typ
	off++
	copy(e[off:off+PayloadSize], payload[:])
	return e
}

// PadPayload zero-pads (or rejects) a payload for use in a plain48
// packet. Payloads longer than 48 bytes are never accepted.
func PadPayload(b []byte) ([PayloadSize]byte, error) {
	var out [PayloadSize]byte
	if len(b) > PayloadSize {
		return out, fmt.Errorf("wire: payload of %d bytes exceeds %d", len(b), PayloadSize)
	}
	copy(out[:], b)
	return out, nil
}

// Encode signs and assembles a new packet for (fid, seq, prev_mid)
// carrying the given type and 48-byte payload, returning the 128-byte
// wire form and its mid.
func Encode(fid ids.FID, seq uint32, prevMID ids.MID, payload [PayloadSize]byte, typ byte, skey ids.SKey) (wire [PacketSize]byte, mid ids.MID) {
	bn := blockName(fid, seq, prevMID)
	dmx := computeDMX(fid, seq, prevMID)

	signable := signableBlock(bn, dmx, typ, payload)
	sig := crypto.Sign(skey, signable[:blockNameSize+DMXSize+1+PayloadSize])

	full := make([]byte, 0, signableSize+SignatureSize)
	full = append(full, signable[:]...)
	full = append(full, sig[:]...)

	sum := crypto.Sum256(full)
	copy(mid[:], sum[:20])

	p := &Packet{FID: fid, Seq: seq, PrevMID: prevMID, DMX: dmx, Type: typ, Payload: payload, Signature: sig, MID: mid}
	wire = p.Wire()
	return wire, mid
}

// DecodeAndVerify recomputes dmx from (fid, seq, prev_mid), verifies
// the embedded signature under fid, and on success returns the
// decoded Packet (with mid filled in).
func DecodeAndVerify(fid ids.FID, seq uint32, prevMID ids.MID, w [PacketSize]byte) (*Packet, error) {
	var dmx ids.DMX
	copy(dmx[:], w[8:15])
	typ := w[15]
	var payload [PayloadSize]byte
	copy(payload[:], w[16:64])
	var sig crypto.Signature
	copy(sig[:], w[64:128])

	expectedDMX := computeDMX(fid, seq, prevMID)
	bn := blockName(fid, seq, prevMID)
	signable := signableBlock(bn, expectedDMX, typ, payload)

	if !crypto.Verify(fid, signable[:blockNameSize+DMXSize+1+PayloadSize], sig) {
		return nil, tinyerr.ErrInvalidSignature
	}

	full := make([]byte, 0, signableSize+SignatureSize)
	full = append(full, signable[:]...)
	full = append(full, sig[:]...)
	sum := crypto.Sum256(full)

	var mid ids.MID
	copy(mid[:], sum[:20])

	return &Packet{
		FID: fid, Seq: seq, PrevMID: prevMID,
		DMX: expectedDMX, Type: typ, Payload: payload,
		Signature: sig, MID: mid,
	}, nil
}

// --- typed payload builders/parsers ---

// GenesisPayload returns a plain48 payload for a root feed's genesis
// packet; content may be empty.
func GenesisPayload(content []byte) ([PayloadSize]byte, error) {
	return PadPayload(content)
}

// ChildPayload builds the ISCHILD payload for a new child feed:
// parent fid || parent seq (4B BE) || sha256(parent wire packet)[0:12].
func ChildPayload(parentFID ids.FID, parentSeq uint32, parentWire [PacketSize]byte) [PayloadSize]byte {
	var p [PayloadSize]byte
	copy(p[0:32], parentFID[:])
	binary.BigEndian.PutUint32(p[32:36], parentSeq)
	sum := crypto.Sum256(parentWire[:])
	copy(p[36:48], sum[:12])
	return p
}

// ParseChildPayload extracts the parent fid from an ISCHILD payload.
func ParseChildPayload(payload [PayloadSize]byte) ids.FID {
	var fid ids.FID
	copy(fid[:], payload[0:32])
	return fid
}

// ContnPayload builds the ISCONTN payload for a continuation feed's
// genesis packet, mirroring ChildPayload's linking fields.
func ContnPayload(predecessorFID ids.FID, predecessorSeq uint32, predecessorWire [PacketSize]byte) [PayloadSize]byte {
	return ChildPayload(predecessorFID, predecessorSeq, predecessorWire)
}

// ParseContnPayload extracts the predecessor fid from an ISCONTN payload.
func ParseContnPayload(payload [PayloadSize]byte) ids.FID {
	return ParseChildPayload(payload)
}

// MkChildPayload builds the MKCHILD payload, appended to the parent
// feed once a child feed has been created.
func MkChildPayload(childFID ids.FID) [PayloadSize]byte {
	var p [PayloadSize]byte
	copy(p[0:32], childFID[:])
	return p
}

// ParseMkChildPayload extracts the child fid from an MKCHILD payload.
func ParseMkChildPayload(payload [PayloadSize]byte) ids.FID {
	var fid ids.FID
	copy(fid[:], payload[0:32])
	return fid
}

// ContDasPayload builds the CONTDAS payload, the last packet of an
// ended feed, naming the feed's continuation.
func ContDasPayload(contnFID ids.FID) [PayloadSize]byte {
	var p [PayloadSize]byte
	copy(p[0:32], contnFID[:])
	return p
}

// ParseContDasPayload extracts the continuation fid from a CONTDAS payload.
func ParseContDasPayload(payload [PayloadSize]byte) ids.FID {
	var fid ids.FID
	copy(fid[:], payload[0:32])
	return fid
}

const maxUpdFileName = 43

// UpdFilePayload builds the UPDFILE payload: varint(len(name)) ||
// name || base_version (4B BE).
func UpdFilePayload(fileName string, baseVersion uint32) ([PayloadSize]byte, error) {
	var p [PayloadSize]byte
	if len(fileName) > maxUpdFileName {
		return p, fmt.Errorf("wire: file name %q too long (max %d)", fileName, maxUpdFileName)
	}
	vi := varint.Encode(uint64(len(fileName)))
	if len(vi)+len(fileName)+4 > PayloadSize {
		return p, fmt.Errorf("wire: file name %q does not fit in payload", fileName)
	}
	off := copy(p[:], vi)
	off += copy(p[off:], fileName)
	binary.BigEndian.PutUint32(p[off:off+4], baseVersion)
	return p, nil
}

// ParseUpdFilePayload decodes a UPDFILE payload's file name and base
// version. The base version is 4 bytes, resolving the Open Question
// about 3-vs-4 byte decoding in favor of 4.
func ParseUpdFilePayload(payload [PayloadSize]byte) (fileName string, baseVersion uint32, err error) {
	fnLen, n, err := varint.Decode(payload[:])
	if err != nil {
		return "", 0, fmt.Errorf("wire: decoding UPDFILE payload: %w", err)
	}
	off := n
	end := off + int(fnLen)
	if end+4 > PayloadSize {
		return "", 0, fmt.Errorf("wire: UPDFILE payload truncated")
	}
	fileName = string(payload[off:end])
	baseVersion = binary.BigEndian.Uint32(payload[end : end+4])
	return fileName, baseVersion, nil
}

// ApplyUpPayload builds the APPLYUP payload: file fid || apply
// version (4B BE).
func ApplyUpPayload(fileFID ids.FID, version uint32) [PayloadSize]byte {
	var p [PayloadSize]byte
	copy(p[0:32], fileFID[:])
	binary.BigEndian.PutUint32(p[32:36], version)
	return p
}

// ParseApplyUpPayload decodes an APPLYUP payload.
func ParseApplyUpPayload(payload [PayloadSize]byte) (fileFID ids.FID, version uint32) {
	copy(fileFID[:], payload[0:32])
	version = binary.BigEndian.Uint32(payload[32:36])
	return fileFID, version
}
