// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"fmt"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/internal/tlog"
	"github.com/luxfi/tinylog/metrics"
	"github.com/luxfi/tinylog/registry"
	"github.com/luxfi/tinylog/store"
)

// Builder provides a fluent interface for constructing a Manager,
// mirroring the teacher's config.Builder (error accumulation across
// chained With* calls, surfaced once at Build).
type Builder struct {
	m   *Manager
	err error
}

// NewBuilder starts building a Manager backed by fs and reg.
func NewBuilder(fs store.FS, reg *registry.Registry) *Builder {
	return &Builder{
		m: &Manager{
			fs:            fs,
			reg:           reg,
			log:           tlog.NewNoOp(),
			metrics:       metrics.NoOp(),
			vcDict:        make(map[string]vcEntry),
			applyQueue:    make(map[ids.FID]uint32),
			applyDict:     make(map[string]uint32),
			fileNameByFID: make(map[ids.FID]string),
			fileSKeys:     make(map[ids.FID]ids.SKey),
		},
	}
}

// WithLogger attaches a logger.
func (b *Builder) WithLogger(l tlog.Logger) *Builder {
	if b.err != nil {
		return b
	}
	b.m.log = l
	return b
}

// WithMetrics attaches a metrics sink. A nil m is ignored, leaving the
// NewBuilder-supplied metrics.NoOp() default in place, since the
// manager's call sites (unlike store.Feed's) don't guard against a nil
// metrics sink.
func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	if b.err != nil {
		return b
	}
	if m != nil {
		b.m.metrics = m
	}
	return b
}

// WithWorkspace sets the directory tracked files are materialized
// under. The process-wide directory layout beyond spec §6 is an
// external collaborator's decision; this is that collaborator's one
// required input.
func (b *Builder) WithWorkspace(dir string) *Builder {
	if b.err != nil {
		return b
	}
	if dir == "" {
		b.err = fmt.Errorf("version: workspace directory must not be empty")
		return b
	}
	b.m.workspace = dir
	return b
}

// WithConfigPath sets the path update_cfg.json is persisted to. If
// unset, Persist is a no-op.
func (b *Builder) WithConfigPath(path string) *Builder {
	if b.err != nil {
		return b
	}
	b.m.cfgPath = path
	return b
}

// Build validates and returns the constructed Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.m.fs == nil {
		return nil, fmt.Errorf("version: FS is required")
	}
	if b.m.reg == nil {
		return nil, fmt.Errorf("version: registry is required")
	}
	if b.m.workspace == "" {
		return nil, fmt.Errorf("version: workspace directory is required")
	}
	return b.m, nil
}
