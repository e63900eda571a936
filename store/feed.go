// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/internal/tlog"
	"github.com/luxfi/tinylog/metrics"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire"
)

// Feed is an open, append-only signed log backed by an FS.
type Feed struct {
	fs     FS
	fid    ids.FID
	header Header
	ended  bool

	log     tlog.Logger
	metrics *metrics.Metrics
}

// Option configures a Feed at Create/Open time.
type Option func(*Feed)

// WithLogger attaches a logger to the feed.
func WithLogger(l tlog.Logger) Option {
	return func(f *Feed) { f.log = l }
}

// WithMetrics attaches a metrics sink to the feed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Feed) { f.metrics = m }
}

func newFeed(fs FS, header Header, opts ...Option) *Feed {
	f := &Feed{
		fs:      fs,
		fid:     header.FID,
		header:  header,
		log:     tlog.NewNoOp(),
		metrics: metrics.NoOp(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create initializes a brand-new feed for fid (anchor_seq=0,
// anchor_mid=fid[0:20], parent fields as given; pass ids.Empty/0 for a
// root feed with no parent).
func Create(fs FS, fid ids.FID, parentFID ids.FID, parentSeq uint32, opts ...Option) (*Feed, error) {
	exists, err := fs.HeaderExists(fid)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("store: feed %s already exists", fid)
	}
	var anchorMID ids.MID
	copy(anchorMID[:], fid[:20])
	h := Header{
		FID:       fid,
		ParentFID: parentFID,
		ParentSeq: parentSeq,
		AnchorSeq: 0,
		AnchorMID: anchorMID,
		FrontSeq:  0,
		FrontMID:  anchorMID,
	}
	if err := fs.WriteHeader(fid, h.Encode()); err != nil {
		return nil, err
	}
	f := newFeed(fs, h, opts...)
	if f.metrics != nil {
		f.metrics.OpenFeeds.Inc()
	}
	return f, nil
}

// Open loads an existing feed's header from fs.
func Open(fs FS, fid ids.FID, opts ...Option) (*Feed, error) {
	raw, err := fs.ReadHeader(fid)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", fid, err)
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	f := newFeed(fs, h, opts...)
	if f.header.FrontSeq > f.header.AnchorSeq {
		typ, err := f.GetType(-1)
		if err == nil && typ == wire.ContDas {
			f.ended = true
		}
	}
	if f.metrics != nil {
		f.metrics.OpenFeeds.Inc()
	}
	return f, nil
}

// FID returns the feed's identifier.
func (f *Feed) FID() ids.FID { return f.fid }

// Length returns front_seq - anchor_seq.
func (f *Feed) Length() int64 {
	return int64(f.header.FrontSeq) - int64(f.header.AnchorSeq)
}

// Ended reports whether a CONTDAS packet has been appended.
func (f *Feed) Ended() bool { return f.ended }

func (f *Feed) frontMID() ids.MID {
	if f.header.FrontSeq == f.header.AnchorSeq {
		return f.header.AnchorMID
	}
	return f.header.FrontMID
}

// resolveSeq implements the negative-index convention (-1 == front_seq)
// and the OutOfRange bound check of spec §4.3.
func (f *Feed) resolveSeq(i int64) (uint32, error) {
	seq := i
	if i < 0 {
		seq = int64(f.header.FrontSeq) + i + 1
	}
	if seq <= int64(f.header.AnchorSeq) || seq > int64(f.header.FrontSeq) {
		return 0, tinyerr.ErrOutOfRange
	}
	return uint32(seq), nil
}

func (f *Feed) physicalIndex(seq uint32) int64 {
	return int64(seq) - int64(f.header.AnchorSeq) - 1
}

// GetWire returns the 128-byte wire encoding of the packet at index i
// (negative indices count back from front).
func (f *Feed) GetWire(i int64) ([wire.PacketSize]byte, error) {
	seq, err := f.resolveSeq(i)
	if err != nil {
		return [wire.PacketSize]byte{}, err
	}
	return f.fs.ReadPacket(f.fid, f.physicalIndex(seq))
}

// GetType returns the packet type tag at index i.
func (f *Feed) GetType(i int64) (byte, error) {
	w, err := f.GetWire(i)
	if err != nil {
		return 0, err
	}
	return w[15], nil
}

// GetPayload returns the logical payload at index i: the verbatim
// 48-byte payload for non-chain20 packets, or the reassembled blob
// stream for chain20 packets (ErrIncompleteBlob if a chunk is missing
// locally).
func (f *Feed) GetPayload(i int64) ([]byte, error) {
	w, err := f.GetWire(i)
	if err != nil {
		return nil, err
	}
	typ := w[15]
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	if typ != wire.Chain20 {
		return append([]byte(nil), payload[:]...), nil
	}
	return wire.ReassembleChain(payload, f.lookupBlob)
}

func (f *Feed) lookupBlob(id ids.BlobID) ([wire.BlobSize]byte, bool) {
	b, ok, err := f.fs.ReadBlob(id)
	if err != nil {
		f.log.Warn("store: blob lookup failed", "blob", id.String(), "err", err)
		return [wire.BlobSize]byte{}, false
	}
	return b, ok
}

// commit persists w (already verified for the feed's next seq/prev_mid)
// and advances the header, in that order.
func (f *Feed) commit(w [wire.PacketSize]byte, p *wire.Packet) error {
	if err := f.fs.AppendPacket(f.fid, w); err != nil {
		return fmt.Errorf("store: appending packet to %s: %w", f.fid, err)
	}
	f.header.FrontSeq = p.Seq
	f.header.FrontMID = p.MID
	if err := f.fs.WriteHeader(f.fid, f.header.Encode()); err != nil {
		return fmt.Errorf("store: advancing header for %s: %w", f.fid, err)
	}
	if p.Type == wire.ContDas {
		f.ended = true
	}
	if f.metrics != nil {
		f.metrics.PacketsAppended.Inc()
	}
	f.log.Debug("store: appended packet", "fid", f.fid.String(), "seq", p.Seq, "type", p.Type)
	return nil
}

// AppendPacket appends a fully-formed 128-byte wire packet, which must
// verify for (fid, front_seq+1, front_mid). Fails ErrEnded once a
// CONTDAS packet has been committed.
func (f *Feed) AppendPacket(w [wire.PacketSize]byte) error {
	if f.ended {
		return tinyerr.ErrEnded
	}
	nextSeq := f.header.FrontSeq + 1
	p, err := wire.DecodeAndVerify(f.fid, nextSeq, f.frontMID(), w)
	if err != nil {
		return err
	}
	return f.commit(w, p)
}

func (f *Feed) appendTyped(payload [wire.PayloadSize]byte, typ byte, skey ids.SKey) error {
	if f.ended {
		return tinyerr.ErrEnded
	}
	nextSeq := f.header.FrontSeq + 1
	w, _ := wire.Encode(f.fid, nextSeq, f.frontMID(), payload, typ, skey)
	return f.AppendPacket(w)
}

// AppendPlain48 zero-pads payload to 48 bytes, signs, and appends a
// plain48 packet.
func (f *Feed) AppendPlain48(payload []byte, skey ids.SKey) error {
	padded, err := wire.PadPayload(payload)
	if err != nil {
		return err
	}
	return f.appendTyped(padded, wire.PlainText48, skey)
}

// AppendGenesisChild appends this (newly created, empty) feed's ischild
// genesis packet, referencing parentFID/parentSeq and the parent's
// current front wire (used only for the supplemental 12-byte linking
// hash; the first 32 bytes are the parent fid per spec §3).
func (f *Feed) AppendGenesisChild(parentFID ids.FID, parentSeq uint32, parentFrontWire [wire.PacketSize]byte, skey ids.SKey) error {
	return f.appendTyped(wire.ChildPayload(parentFID, parentSeq, parentFrontWire), wire.IsChild, skey)
}

// AppendGenesisContn appends this feed's iscontn genesis packet.
func (f *Feed) AppendGenesisContn(predecessorFID ids.FID, predecessorSeq uint32, predecessorFrontWire [wire.PacketSize]byte, skey ids.SKey) error {
	return f.appendTyped(wire.ContnPayload(predecessorFID, predecessorSeq, predecessorFrontWire), wire.IsContn, skey)
}

// CreateContinuation creates a brand-new feed for fid as predecessor's
// continuation: it links fid's iscontn genesis packet to predecessor's
// current front, then ends predecessor with a contdas packet naming
// fid, mirroring the genesis/mkchild pairing AppendGenesisChild and
// AppendMkChild establish for ordinary child feeds.
func CreateContinuation(fs FS, fid ids.FID, predecessor *Feed, skey, predecessorSKey ids.SKey, opts ...Option) (*Feed, error) {
	if predecessor.ended {
		return nil, tinyerr.ErrEnded
	}
	predecessorWire, err := predecessor.GetWire(-1)
	if err != nil {
		return nil, err
	}
	predecessorSeq := predecessor.header.FrontSeq

	contn, err := Create(fs, fid, ids.Empty, 0, opts...)
	if err != nil {
		return nil, err
	}
	if err := contn.AppendGenesisContn(predecessor.fid, predecessorSeq, predecessorWire, skey); err != nil {
		return nil, err
	}
	if err := predecessor.AppendContDas(fid, predecessorSKey); err != nil {
		return nil, err
	}
	return contn, nil
}

// AppendMkChild appends an mkchild packet naming childFID.
func (f *Feed) AppendMkChild(childFID ids.FID, skey ids.SKey) error {
	return f.appendTyped(wire.MkChildPayload(childFID), wire.MkChild, skey)
}

// AppendContDas appends the terminal contdas packet naming the feed's
// continuation. No further appends are permitted afterward.
func (f *Feed) AppendContDas(contnFID ids.FID, skey ids.SKey) error {
	return f.appendTyped(wire.ContDasPayload(contnFID), wire.ContDas, skey)
}

// AppendUpdFile appends an updfile packet.
func (f *Feed) AppendUpdFile(fileName string, baseVersion uint32, skey ids.SKey) error {
	payload, err := wire.UpdFilePayload(fileName, baseVersion)
	if err != nil {
		return err
	}
	return f.appendTyped(payload, wire.UpdFile, skey)
}

// AppendApplyUp appends an applyup packet.
func (f *Feed) AppendApplyUp(fileFID ids.FID, version uint32, skey ids.SKey) error {
	return f.appendTyped(wire.ApplyUpPayload(fileFID, version), wire.ApplyUp, skey)
}

// AppendBlob builds a blob sidechain for content, persists the blob
// chunks, then appends the chain20 packet that heads it. Blobs are
// written before the chain20 packet is committed, so a chain20 packet
// is never persisted ahead of its local blobs; a process failure
// between the two leaves only blob records that no packet references.
func (f *Feed) AppendBlob(content []byte, skey ids.SKey) error {
	if f.ended {
		return tinyerr.ErrEnded
	}
	payload, blobs := wire.BuildChain(content)
	for _, b := range blobs {
		id := wire.BlobID(b)
		if err := f.fs.WriteBlob(id, b); err != nil {
			return fmt.Errorf("store: writing blob %s for %s: %w", id, f.fid, err)
		}
		if f.metrics != nil {
			f.metrics.BlobsAppended.Inc()
		}
	}
	return f.appendTyped(payload, wire.Chain20, skey)
}

// VerifyAndAppendWire verifies w for (fid, front_seq+1, front_mid) and
// appends it on success. It never mutates the feed on failure.
func (f *Feed) VerifyAndAppendWire(w [wire.PacketSize]byte) bool {
	if f.ended {
		return false
	}
	nextSeq := f.header.FrontSeq + 1
	p, err := wire.DecodeAndVerify(f.fid, nextSeq, f.frontMID(), w)
	if err != nil {
		if f.metrics != nil {
			f.metrics.VerifyFailures.Inc()
		}
		f.log.Warn("store: rejected packet with invalid signature", "fid", f.fid.String(), "seq", nextSeq)
		return false
	}
	if err := f.commit(w, p); err != nil {
		f.log.Error("store: commit failed after verify", "fid", f.fid.String(), "err", err)
		return false
	}
	return true
}

// VerifyAndAppendBlob accepts blob only if its content address matches
// WaitingForBlob. Per the Open Question resolution, it persists the
// blob record and re-probes WaitingForBlob; it never appends a wire
// packet itself.
func (f *Feed) VerifyAndAppendBlob(blob [wire.BlobSize]byte) bool {
	want, waiting := f.WaitingForBlob()
	if !waiting {
		return false
	}
	id := wire.BlobID(blob)
	if id != want {
		return false
	}
	if err := f.fs.WriteBlob(id, blob); err != nil {
		f.log.Error("store: writing blob failed", "blob", id.String(), "err", err)
		return false
	}
	if f.metrics != nil {
		f.metrics.BlobsAppended.Inc()
	}
	if next, still := f.WaitingForBlob(); still {
		f.log.Debug("store: blob chain still incomplete", "fid", f.fid.String(), "next", next.String())
	}
	return true
}

// NextDMX returns the demultiplex tag a peer should watch for to offer
// this feed's next packet.
func (f *Feed) NextDMX() ids.DMX {
	return wire.NextDMX(f.fid, f.header.FrontSeq, f.frontMID())
}

// WaitingForBlob reports the first missing forward pointer of the
// front packet's blob chain, if the front packet is chain20 and its
// chain is not fully local.
func (f *Feed) WaitingForBlob() (ids.BlobID, bool) {
	if f.header.FrontSeq == f.header.AnchorSeq {
		return ids.BlobID{}, false
	}
	typ, err := f.GetType(-1)
	if err != nil || typ != wire.Chain20 {
		return ids.BlobID{}, false
	}
	w, err := f.GetWire(-1)
	if err != nil {
		return ids.BlobID{}, false
	}
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	return wire.FindMissingBlob(payload, f.lookupBlob)
}

func wantTag(fid ids.FID) [7]byte {
	buf := make([]byte, 0, 32+4)
	buf = append(buf, fid[:]...)
	buf = append(buf, []byte("want")...)
	sum := crypto.Sum256(buf)
	var tag [7]byte
	copy(tag[:], sum[:7])
	return tag
}

// WantRequest builds the "what I'm missing" message of spec §6: a
// 43-byte missing-packet request, or (when the front packet's blob
// chain is incomplete) a 63-byte missing-blob request.
func (f *Feed) WantRequest() []byte {
	tag := wantTag(f.fid)
	if ptr, waiting := f.WaitingForBlob(); waiting {
		out := make([]byte, 0, 63)
		out = append(out, tag[:]...)
		out = append(out, f.fid[:]...)
		var seqB [4]byte
		binary.BigEndian.PutUint32(seqB[:], f.header.FrontSeq)
		out = append(out, seqB[:]...)
		out = append(out, ptr[:]...)
		return out
	}
	out := make([]byte, 0, 43)
	out = append(out, tag[:]...)
	out = append(out, f.fid[:]...)
	var seqB [4]byte
	binary.BigEndian.PutUint32(seqB[:], f.header.FrontSeq+1)
	out = append(out, seqB[:]...)
	return out
}

// Parent returns the feed's parent fid, if any.
func (f *Feed) Parent() (ids.FID, bool) {
	if !f.header.HasParent() {
		return ids.FID{}, false
	}
	return f.header.ParentFID, true
}

// OpenParent reopens the feed's parent via the same FS, if it has one.
func (f *Feed) OpenParent(opts ...Option) (*Feed, bool, error) {
	pfid, ok := f.Parent()
	if !ok {
		return nil, false, nil
	}
	pf, err := Open(f.fs, pfid, opts...)
	if err != nil {
		return nil, true, err
	}
	return pf, true, nil
}

// Children scans the feed's own log for mkchild packets and returns
// the referenced child fids in append order.
func (f *Feed) Children() []ids.FID {
	var out []ids.FID
	for seq := f.header.AnchorSeq + 1; seq <= f.header.FrontSeq; seq++ {
		typ, err := f.GetType(int64(seq))
		if err != nil || typ != wire.MkChild {
			continue
		}
		w, err := f.GetWire(int64(seq))
		if err != nil {
			continue
		}
		var payload [wire.PayloadSize]byte
		copy(payload[:], w[16:64])
		out = append(out, wire.ParseMkChildPayload(payload))
	}
	return out
}

// Continuation returns the feed's continuation fid, if a contdas
// packet has been appended.
func (f *Feed) Continuation() (ids.FID, bool) {
	if !f.ended {
		return ids.FID{}, false
	}
	w, err := f.GetWire(-1)
	if err != nil {
		return ids.FID{}, false
	}
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	return wire.ParseContDasPayload(payload), true
}

// Predecessor returns the feed this one continues, if its genesis
// packet is iscontn.
func (f *Feed) Predecessor() (ids.FID, bool) {
	if f.header.FrontSeq == f.header.AnchorSeq {
		return ids.FID{}, false
	}
	typ, err := f.GetType(int64(f.header.AnchorSeq + 1))
	if err != nil || typ != wire.IsContn {
		return ids.FID{}, false
	}
	w, err := f.GetWire(int64(f.header.AnchorSeq + 1))
	if err != nil {
		return ids.FID{}, false
	}
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	return wire.ParseContnPayload(payload), true
}

// DebugString renders a per-packet-type summary of the feed, adapted
// from the Python source's to_string operator helper.
func (f *Feed) DebugString() string {
	out := fmt.Sprintf("feed %s anchor=%d front=%d ended=%v\n", f.fid, f.header.AnchorSeq, f.header.FrontSeq, f.ended)
	for seq := f.header.AnchorSeq + 1; seq <= f.header.FrontSeq; seq++ {
		typ, err := f.GetType(int64(seq))
		if err != nil {
			out += fmt.Sprintf("  seq=%d <error: %v>\n", seq, err)
			continue
		}
		out += fmt.Sprintf("  seq=%d type=%s\n", seq, typeName(typ))
	}
	return out
}

func typeName(typ byte) string {
	switch typ {
	case wire.PlainText48:
		return "plain48"
	case wire.Chain20:
		return "chain20"
	case wire.IsChild:
		return "ischild"
	case wire.IsContn:
		return "iscontn"
	case wire.MkChild:
		return "mkchild"
	case wire.ContDas:
		return "contdas"
	case wire.Acknldg:
		return "acknldg"
	case wire.UpdFile:
		return "updfile"
	case wire.ApplyUp:
		return "applyup"
	default:
		return fmt.Sprintf("unknown(0x%02x)", typ)
	}
}
