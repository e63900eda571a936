// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tinyerr defines the error kinds of spec §7 and a small
// multi-error accumulator adapted from the teacher's
// utils/wrappers.Errs.
package tinyerr

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidSignature is returned by decode when a wire packet's
	// signature does not verify under the claimed fid.
	ErrInvalidSignature = errors.New("tinyerr: invalid signature")

	// ErrOutOfRange is returned by GetWire for an index outside
	// (anchor_seq, front_seq].
	ErrOutOfRange = errors.New("tinyerr: index out of range")

	// ErrEnded is returned by any append to a feed whose last packet
	// is CONTDAS.
	ErrEnded = errors.New("tinyerr: feed has ended")

	// ErrIncompleteBlob is returned by GetPayload when a chain20's
	// blob chain is not fully available locally.
	ErrIncompleteBlob = errors.New("tinyerr: blob chain incomplete")

	// ErrNoKey is returned when an append is attempted by a follower
	// that does not hold the feed's signing key.
	ErrNoKey = errors.New("tinyerr: signing key not held")

	// ErrConflict is returned when a version jump request cannot be
	// satisfied from the known version graph.
	ErrConflict = errors.New("tinyerr: conflicting or unavailable version")

	// ErrUnknownVersion is returned when a version number is absent
	// from the version graph.
	ErrUnknownVersion = errors.New("tinyerr: unknown version")
)

// Errs accumulates zero or more errors, mirroring the teacher's
// utils/wrappers.Errs.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

// Add appends err to the collection. A nil err is a no-op.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been added.
func (e *Errs) Errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) > 0
}

// Err collapses the collection into a single error, or nil if empty.
func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		msgs := make([]string, len(e.errs))
		for i, err := range e.errs {
			msgs[i] = err.Error()
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}
