// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package version implements the replicated file-update engine of
// spec §4.5: a state machine coordinating an update feed, a
// version-control feed, per-file update feeds and their emergency
// feeds, an apply queue for pending updates, a version-graph builder
// and a line-level diff/patch engine.
package version

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/diffcodec"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/internal/tlog"
	"github.com/luxfi/tinylog/metrics"
	"github.com/luxfi/tinylog/persist"
	"github.com/luxfi/tinylog/registry"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire"
)

// vcEntry is one vc_dict value: the file's current file feed and the
// emergency feed pre-provisioned as its successor.
type vcEntry struct {
	FileFID      ids.FID
	EmergencyFID ids.FID
}

// Manager holds the version manager's in-memory state of spec §4.5:
// vc_dict, apply_queue, apply_dict, the bound update/vc feeds and
// may_update. It is built with a Builder, in the style of the
// teacher's config.Builder.
type Manager struct {
	mu sync.Mutex

	fs        store.FS
	reg       *registry.Registry
	log       tlog.Logger
	metrics   *metrics.Metrics
	workspace string
	cfgPath   string

	updateFID  ids.FID
	updateFeed *store.Feed
	updateSKey ids.SKey
	mayUpdate  bool

	vcFeed *store.Feed
	vcSKey ids.SKey

	vcDict        map[string]vcEntry
	applyQueue    map[ids.FID]uint32
	applyDict     map[string]uint32
	fileNameByFID map[ids.FID]string
	fileSKeys     map[ids.FID]ids.SKey
}

// Bootstrap opens or creates the update feed for updateFID and
// registers its callback. When skey is non-nil, may_update becomes
// true (the skey for update_feed.fid is locally held, per spec
// §4.5) and the manager provisions the update feed's own genesis and
// its version-control feed (the first child a root author creates)
// if they don't already exist.
func (m *Manager) Bootstrap(updateFID ids.FID, skey *ids.SKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reload the dump/reload snapshot of spec §9 before touching any
	// feed, so the children onUpdateFeed discovers below are recognized
	// as already-known and don't get re-registered.
	if err := m.restoreLocked(); err != nil {
		return err
	}

	feed, err := openOrCreate(m.fs, updateFID, ids.Empty, 0)
	if err != nil {
		return err
	}
	m.updateFID = updateFID
	m.updateFeed = feed
	m.reg.PutFeed(updateFID, feed)

	if skey != nil {
		m.mayUpdate = true
		m.updateSKey = *skey
		if feed.Length() == 0 {
			if err := feed.AppendPlain48(nil, m.updateSKey); err != nil {
				return fmt.Errorf("version: appending update feed genesis: %w", err)
			}
		}
	}

	m.reg.Register(updateFID, m.onUpdateFeed)
	// Pick up any children already on disk (a reopened node).
	m.onUpdateFeedLocked(updateFID)

	if m.mayUpdate && m.vcFeed == nil {
		if err := m.createVCFeed(); err != nil {
			return err
		}
	}

	m.retryApplyQueueLocked()
	return nil
}

// restoreLocked reloads update_cfg.json (if a config path is set and a
// snapshot exists) and reopens every file/emergency feed it names, so a
// restarted node recovers vc_dict/apply_queue/apply_dict without
// waiting for a live Dispatch to rebuild them — Dispatch only fires for
// appends made after the process starts, never for history already on
// disk (spec §9: "persistence is a dump/reload cycle").
func (m *Manager) restoreLocked() error {
	if m.cfgPath == "" {
		return nil
	}
	snap, err := persist.Load(m.cfgPath)
	if err != nil {
		return fmt.Errorf("version: loading %s: %w", m.cfgPath, err)
	}

	for name, entry := range snap.VCDict {
		fileFID, err := ids.FIDFromHex(entry.FileFIDHex)
		if err != nil {
			return fmt.Errorf("version: restoring vc_dict[%q]: %w", name, err)
		}
		emergencyFID, err := ids.FIDFromHex(entry.EmergencyFIDHex)
		if err != nil {
			return fmt.Errorf("version: restoring vc_dict[%q]: %w", name, err)
		}
		m.vcDict[name] = vcEntry{FileFID: fileFID, EmergencyFID: emergencyFID}
		m.fileNameByFID[fileFID] = name
		m.reopenTrackedFeedLocked(fileFID, m.onFileFeed)
		m.reopenTrackedFeedLocked(emergencyFID, m.onEmergencyFeed)
	}
	for fidHex, v := range snap.ApplyQueue {
		fid, err := ids.FIDFromHex(fidHex)
		if err != nil {
			return fmt.Errorf("version: restoring apply_queue: %w", err)
		}
		m.applyQueue[fid] = v
	}
	for name, v := range snap.ApplyDict {
		m.applyDict[name] = v
	}
	return nil
}

// reopenTrackedFeedLocked opens fid via m.fs and registers cb for it,
// unless the registry already knows about it.
func (m *Manager) reopenTrackedFeedLocked(fid ids.FID, cb registry.Callback) {
	if _, known := m.reg.GetFeed(fid); known {
		return
	}
	feed, err := store.Open(m.fs, fid)
	if err != nil {
		m.log.Warn("version: reopening tracked feed failed", "fid", fid.String(), "err", err)
		return
	}
	m.reg.PutFeed(fid, feed)
	m.reg.Register(fid, cb)
}

// retryApplyQueueLocked re-attempts every queued apply now that
// Bootstrap has reopened the feeds named in the persisted snapshot.
func (m *Manager) retryApplyQueueLocked() {
	pending := make(map[ids.FID]uint32, len(m.applyQueue))
	for fid, v := range m.applyQueue {
		pending[fid] = v
	}
	for fid, v := range pending {
		if _, ok := m.reg.GetFeed(fid); !ok {
			continue
		}
		if err := m.applyUpdateLocked(fid, v); err != nil {
			m.log.Warn("version: retrying queued apply failed", "fid", fid.String(), "err", err)
		}
	}
}

func openOrCreate(fs store.FS, fid, parentFID ids.FID, parentSeq uint32) (*store.Feed, error) {
	exists, err := fs.HeaderExists(fid)
	if err != nil {
		return nil, err
	}
	if exists {
		return store.Open(fs, fid)
	}
	return store.Create(fs, fid, parentFID, parentSeq)
}

func (m *Manager) createVCFeed() error {
	vcFID, vcSKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("version: generating vc feed key pair: %w", err)
	}
	mkchildSeq := uint32(m.updateFeed.Length()) + 1
	vcFeed, err := store.Create(m.fs, vcFID, m.updateFID, mkchildSeq)
	if err != nil {
		return err
	}
	var parentWire [wire.PacketSize]byte
	if m.updateFeed.Length() > 0 {
		parentWire, _ = m.updateFeed.GetWire(-1)
	}
	if err := vcFeed.AppendGenesisChild(m.updateFID, mkchildSeq, parentWire, vcSKey); err != nil {
		return err
	}
	if err := m.updateFeed.AppendMkChild(vcFID, m.updateSKey); err != nil {
		return err
	}
	m.vcFeed = vcFeed
	m.vcSKey = vcSKey
	m.reg.PutFeed(vcFID, vcFeed)
	m.reg.Register(vcFID, m.onVCFeed)
	return nil
}

// onUpdateFeed is the update-feed callback of spec §4.5: on append, if
// vc_feed is not yet bound and a first child exists, bind it and
// register its callback; every later child is a file feed, registered
// the same way.
func (m *Manager) onUpdateFeed(fid ids.FID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdateFeedLocked(fid)
}

func (m *Manager) onUpdateFeedLocked(fid ids.FID) {
	feed, ok := m.reg.GetFeed(fid)
	if !ok {
		return
	}
	children := feed.Children()
	for i, childFID := range children {
		if i == 0 {
			if m.vcFeed != nil {
				continue
			}
			vcFeed, err := store.Open(m.fs, childFID)
			if err != nil {
				m.log.Warn("version: opening vc feed failed", "fid", childFID.String(), "err", err)
				continue
			}
			m.vcFeed = vcFeed
			m.reg.PutFeed(childFID, vcFeed)
			m.reg.Register(childFID, m.onVCFeed)
			continue
		}
		if _, known := m.reg.GetFeed(childFID); known {
			continue
		}
		fileFeed, err := store.Open(m.fs, childFID)
		if err != nil {
			m.log.Warn("version: opening file feed failed", "fid", childFID.String(), "err", err)
			continue
		}
		m.reg.PutFeed(childFID, fileFeed)
		m.reg.Register(childFID, m.onFileFeed)
	}
}

// onVCFeed is the vc-feed callback of spec §4.5.
func (m *Manager) onVCFeed(fid ids.FID) {
	m.mu.Lock()
	feed, ok := m.reg.GetFeed(fid)
	m.mu.Unlock()
	if !ok {
		return
	}
	typ, err := feed.GetType(-1)
	if err != nil {
		return
	}
	switch typ {
	case wire.ApplyUp:
		payload, err := feed.GetPayload(-1)
		if err != nil {
			return
		}
		var p [wire.PayloadSize]byte
		copy(p[:], payload)
		fileFID, applyVersion := wire.ParseApplyUpPayload(p)
		m.mu.Lock()
		m.applyUpdateLocked(fileFID, applyVersion)
		m.mu.Unlock()
	case wire.IsChild:
		// genesis, nothing to do
	}
}

// onFileFeed is the file-feed callback of spec §4.5.
func (m *Manager) onFileFeed(fid ids.FID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFileFeedLocked(fid)
}

func (m *Manager) onFileFeedLocked(fid ids.FID) {
	feed, ok := m.reg.GetFeed(fid)
	if !ok {
		return
	}
	if _, waiting := feed.WaitingForBlob(); waiting {
		return
	}
	typ, err := feed.GetType(-1)
	if err != nil {
		return
	}
	switch typ {
	case wire.Chain20:
		if v, pending := m.applyQueue[fid]; pending {
			m.applyUpdateLocked(fid, v)
		}
	case wire.MkChild:
		m.handleEmergencyAnnouncedLocked(feed)
	case wire.UpdFile:
		m.ensureFileExistsLocked(feed)
	}
}

// handleEmergencyAnnouncedLocked handles a file feed's seq-3 mkchild:
// the emergency feed has been announced.
func (m *Manager) handleEmergencyAnnouncedLocked(feed *store.Feed) {
	name, base, err := m.readUpdFile(feed)
	if err != nil {
		m.log.Warn("version: reading updfile failed", "fid", feed.FID().String(), "err", err)
		return
	}
	w, err := feed.GetWire(-1)
	if err != nil {
		return
	}
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	emergencyFID := wire.ParseMkChildPayload(payload)

	m.vcDict[name] = vcEntry{FileFID: feed.FID(), EmergencyFID: emergencyFID}
	m.fileNameByFID[feed.FID()] = name
	if _, ok := m.applyDict[name]; !ok {
		m.applyDict[name] = 0
		_ = base
	}

	if _, known := m.reg.GetFeed(emergencyFID); !known {
		emergencyFeed, err := store.Open(m.fs, emergencyFID)
		if err != nil {
			m.log.Warn("version: opening emergency feed failed", "fid", emergencyFID.String(), "err", err)
			return
		}
		m.reg.PutFeed(emergencyFID, emergencyFeed)
		m.reg.Register(emergencyFID, m.onEmergencyFeed)
	}
	_ = m.persistLocked()
}

func (m *Manager) readUpdFile(feed *store.Feed) (name string, base uint32, err error) {
	payload, err := feed.GetPayload(2)
	if err != nil {
		return "", 0, err
	}
	var p [wire.PayloadSize]byte
	copy(p[:], payload)
	return wire.ParseUpdFilePayload(p)
}

func (m *Manager) ensureFileExistsLocked(feed *store.Feed) {
	name, _, err := m.readUpdFile(feed)
	if err != nil {
		return
	}
	path := filepath.Join(m.workspace, filepath.FromSlash(name))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			m.log.Warn("version: creating workspace directory failed", "path", path, "err", err)
			return
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			m.log.Warn("version: creating tracked file failed", "path", path, "err", err)
		}
	}
}

// onEmergencyFeed is the emergency-feed callback of spec §4.5: on its
// own mkchild (the rotation this feed just activated pre-provisioning
// its own successor), swap roles: this feed becomes the new file
// feed, its child the new emergency feed.
func (m *Manager) onEmergencyFeed(fid ids.FID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.reg.GetFeed(fid)
	if !ok {
		return
	}
	typ, err := feed.GetType(-1)
	if err != nil || typ != wire.MkChild {
		return
	}
	w, err := feed.GetWire(-1)
	if err != nil {
		return
	}
	var payload [wire.PayloadSize]byte
	copy(payload[:], w[16:64])
	newEmergencyFID := wire.ParseMkChildPayload(payload)

	name, ok := m.fileNameByFID[fid]
	if !ok {
		for n, e := range m.vcDict {
			if e.EmergencyFID == fid {
				name, ok = n, true
				break
			}
		}
	}
	if !ok {
		return
	}
	m.fileNameByFID[fid] = name
	if _, known := m.reg.GetFeed(newEmergencyFID); !known {
		newEmergencyFeed, err := store.Open(m.fs, newEmergencyFID)
		if err != nil {
			m.log.Warn("version: opening new emergency feed failed", "fid", newEmergencyFID.String(), "err", err)
			return
		}
		m.reg.PutFeed(newEmergencyFID, newEmergencyFeed)
	}
	m.vcDict[name] = vcEntry{FileFID: fid, EmergencyFID: newEmergencyFID}
	m.reg.Register(fid, m.onFileFeed)
	m.reg.Register(newEmergencyFID, m.onEmergencyFeed)
	_ = m.persistLocked()
}

// applyUpdateLocked implements _apply_update(file_fid, target_version)
// of spec §4.5. Caller must hold m.mu.
func (m *Manager) applyUpdateLocked(fileFID ids.FID, target uint32) error {
	feed, ok := m.reg.GetFeed(fileFID)
	if !ok {
		m.applyQueue[fileFID] = target
		m.metrics.ApplyQueued.Inc()
		return nil
	}

	minv, length, err := fileFeedRange(feed)
	if err != nil {
		return err
	}
	newest := minv + uint32(length) - 1
	if length == 0 {
		newest = minv
		if minv > 0 {
			newest = minv - 1
		}
	}
	if target > newest {
		m.applyQueue[fileFID] = target
		m.metrics.ApplyQueued.Inc()
		return nil
	}
	if target == newest {
		if _, waiting := feed.WaitingForBlob(); waiting {
			m.applyQueue[fileFID] = target
			m.metrics.ApplyQueued.Inc()
			return nil
		}
	}

	name, ok := m.fileNameByFID[fileFID]
	if !ok {
		return fmt.Errorf("version: no tracked file name for feed %s", fileFID)
	}
	current := m.applyDict[name]
	if target == current {
		return nil // idempotent: property 10
	}

	content, err := m.readFile(name)
	if err != nil {
		return err
	}
	changes, err := JumpVersions(current, target, feed)
	if err != nil {
		return err
	}
	newContent := ApplyChanges(content, changes)
	if err := m.writeFile(name, newContent); err != nil {
		return err
	}
	m.applyDict[name] = target
	delete(m.applyQueue, fileFID)
	m.metrics.ApplyPerformed.Inc()
	return m.persistLocked()
}

func (m *Manager) readFile(name string) (string, error) {
	path := filepath.Join(m.workspace, filepath.FromSlash(name))
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("version: reading %s: %w", path, err)
	}
	return string(b), nil
}

func (m *Manager) writeFile(name, content string) error {
	path := filepath.Join(m.workspace, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("version: creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("version: writing %s: %w", path, err)
	}
	return nil
}

// CreateNewFile starts tracking a brand-new file under name, creating
// its file feed (as a child of update_feed) and its pre-provisioned
// emergency feed, and seeding version 1 with initialText if non-empty.
// This authoring path is implied, but not spelled out, by spec §4.5's
// description of the file-feed layout; see SPEC_FULL.md.
func (m *Manager) CreateNewFile(name, initialText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mayUpdate {
		return tinyerr.ErrNoKey
	}
	if _, exists := m.vcDict[name]; exists {
		return fmt.Errorf("version: %q is already tracked", name)
	}

	fileFID, fileSKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	mkchildSeq := uint32(m.updateFeed.Length()) + 1
	fileFeed, err := store.Create(m.fs, fileFID, m.updateFID, mkchildSeq)
	if err != nil {
		return err
	}
	var updateFrontWire [wire.PacketSize]byte
	if m.updateFeed.Length() > 0 {
		updateFrontWire, _ = m.updateFeed.GetWire(-1)
	}
	if err := fileFeed.AppendGenesisChild(m.updateFID, mkchildSeq, updateFrontWire, fileSKey); err != nil {
		return err
	}
	if err := fileFeed.AppendUpdFile(name, 1, fileSKey); err != nil {
		return err
	}
	if err := m.updateFeed.AppendMkChild(fileFID, m.updateSKey); err != nil {
		return err
	}

	emergencyFID, emergencySKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	emergencyFeed, err := store.Create(m.fs, emergencyFID, fileFID, 3)
	if err != nil {
		return err
	}
	fileFrontWire, _ := fileFeed.GetWire(-1)
	if err := emergencyFeed.AppendGenesisChild(fileFID, 3, fileFrontWire, emergencySKey); err != nil {
		return err
	}
	if err := fileFeed.AppendMkChild(emergencyFID, fileSKey); err != nil {
		return err
	}

	m.vcDict[name] = vcEntry{FileFID: fileFID, EmergencyFID: emergencyFID}
	m.fileNameByFID[fileFID] = name
	m.fileSKeys[fileFID] = fileSKey
	m.fileSKeys[emergencyFID] = emergencySKey
	m.applyDict[name] = 0

	m.reg.PutFeed(fileFID, fileFeed)
	m.reg.PutFeed(emergencyFID, emergencyFeed)
	m.reg.Register(fileFID, m.onFileFeed)
	m.reg.Register(emergencyFID, m.onEmergencyFeed)

	if err := m.writeFile(name, ""); err != nil {
		return err
	}

	if initialText != "" {
		if err := m.updateFileLocked(name, initialText, 0); err != nil {
			return err
		}
		if err := m.addApplyLocked(name, 1); err != nil {
			return err
		}
	}
	return m.persistLocked()
}

// UpdateFile reconstructs the file at version dep, diffs it against
// newText, and appends the resulting change list as a new update blob
// (spec §4.5's authoring path).
func (m *Manager) UpdateFile(name, newText string, dep uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateFileLocked(name, newText, dep)
}

func (m *Manager) updateFileLocked(name, newText string, dep uint32) error {
	entry, ok := m.vcDict[name]
	if !ok {
		return fmt.Errorf("version: %q is not tracked", name)
	}
	skey, ok := m.fileSKeys[entry.FileFID]
	if !ok {
		return tinyerr.ErrNoKey
	}
	fileFeed, ok := m.reg.GetFeed(entry.FileFID)
	if !ok {
		return fmt.Errorf("version: file feed %s not open", entry.FileFID)
	}

	current := m.applyDict[name]
	base, err := m.readFile(name)
	if err != nil {
		return err
	}
	var atDep string
	if dep == current {
		atDep = base
	} else {
		changes, err := JumpVersions(current, dep, fileFeed)
		if err != nil {
			return err
		}
		atDep = ApplyChanges(base, changes)
	}

	changes := GetChanges(atDep, newText)
	blob := diffcodec.EncodeBlob(dep, changes)
	return fileFeed.AppendBlob(blob, skey)
}

// EmergencyUpdateFile activates name's pre-provisioned emergency feed,
// which supersedes its current file feed (the key-rotation pathway of
// spec §4.5), then authors newText against it.
func (m *Manager) EmergencyUpdateFile(name, newText string, dep uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.vcDict[name]
	if !ok {
		return fmt.Errorf("version: %q is not tracked", name)
	}
	oldFeed, ok := m.reg.GetFeed(entry.FileFID)
	if !ok {
		return fmt.Errorf("version: file feed %s not open", entry.FileFID)
	}
	emergencyFeed, ok := m.reg.GetFeed(entry.EmergencyFID)
	if !ok {
		return fmt.Errorf("version: emergency feed %s not open", entry.EmergencyFID)
	}
	emergencySKey, ok := m.fileSKeys[entry.EmergencyFID]
	if !ok {
		return tinyerr.ErrNoKey
	}

	minv, length, err := fileFeedRange(oldFeed)
	if err != nil {
		return err
	}
	base := minv + uint32(length)

	if err := emergencyFeed.AppendUpdFile(name, base, emergencySKey); err != nil {
		return err
	}

	newEmergencyFID, newEmergencySKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	newEmergencyFeed, err := store.Create(m.fs, newEmergencyFID, entry.EmergencyFID, 3)
	if err != nil {
		return err
	}
	emergencyFrontWire, _ := emergencyFeed.GetWire(-1)
	if err := newEmergencyFeed.AppendGenesisChild(entry.EmergencyFID, 3, emergencyFrontWire, newEmergencySKey); err != nil {
		return err
	}
	if err := emergencyFeed.AppendMkChild(newEmergencyFID, emergencySKey); err != nil {
		return err
	}

	m.vcDict[name] = vcEntry{FileFID: entry.EmergencyFID, EmergencyFID: newEmergencyFID}
	m.fileNameByFID[entry.EmergencyFID] = name
	m.fileSKeys[newEmergencyFID] = newEmergencySKey
	m.reg.PutFeed(newEmergencyFID, newEmergencyFeed)
	m.reg.Register(entry.EmergencyFID, m.onFileFeed)
	m.reg.Register(newEmergencyFID, m.onEmergencyFeed)

	if err := m.updateFileLocked(name, newText, dep); err != nil {
		return err
	}
	newVersion := base
	if err := m.addApplyLocked(name, newVersion); err != nil {
		return err
	}
	return m.persistLocked()
}

// AddApply announces that version v of name's file feed should now be
// applied, and applies it locally.
func (m *Manager) AddApply(name string, v uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addApplyLocked(name, v)
}

func (m *Manager) addApplyLocked(name string, v uint32) error {
	entry, ok := m.vcDict[name]
	if !ok {
		return fmt.Errorf("version: %q is not tracked", name)
	}
	if !m.mayUpdate {
		return tinyerr.ErrNoKey
	}
	if err := m.vcFeed.AppendApplyUp(entry.FileFID, v, m.vcSKey); err != nil {
		return err
	}
	return m.applyUpdateLocked(entry.FileFID, v)
}

func (m *Manager) persistLocked() error {
	if m.cfgPath == "" {
		return nil
	}
	snap := persist.Snapshot{
		VCDict:       make(map[string]persist.FileEntry, len(m.vcDict)),
		ApplyQueue:   make(map[string]uint32, len(m.applyQueue)),
		ApplyDict:    make(map[string]uint32, len(m.applyDict)),
		UpdateFIDHex: m.updateFID.String(),
	}
	for name, e := range m.vcDict {
		snap.VCDict[name] = persist.FileEntry{
			FileFIDHex:      e.FileFID.String(),
			EmergencyFIDHex: e.EmergencyFID.String(),
		}
	}
	for fid, v := range m.applyQueue {
		snap.ApplyQueue[fid.String()] = v
	}
	for name, v := range m.applyDict {
		snap.ApplyDict[name] = v
	}
	return persist.Save(m.cfgPath, snap)
}

// Persist writes the current state snapshot to the configured
// update_cfg.json path.
func (m *Manager) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

// AppliedVersion returns the version currently applied to name, and
// whether name is tracked at all.
func (m *Manager) AppliedVersion(name string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.applyDict[name]
	return v, ok
}

// VerifyAndAppendWire is the public ingress point for a remotely
// received wire packet (the transport layer's call into the feed
// engine), dispatching the registry on success per spec §4.4.
func (m *Manager) VerifyAndAppendWire(fid ids.FID, w [wire.PacketSize]byte) bool {
	feed, ok := m.reg.GetFeed(fid)
	if !ok {
		return false
	}
	if !feed.VerifyAndAppendWire(w) {
		return false
	}
	m.reg.Dispatch(fid)
	return true
}

// VerifyAndAppendBlob is the public ingress point for a remotely
// received blob record.
func (m *Manager) VerifyAndAppendBlob(fid ids.FID, b [wire.BlobSize]byte) bool {
	feed, ok := m.reg.GetFeed(fid)
	if !ok {
		return false
	}
	if !feed.VerifyAndAppendBlob(b) {
		return false
	}
	m.reg.Dispatch(fid)
	return true
}
