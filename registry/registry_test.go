// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/registry"
)

func TestDispatchOrderIsRegistrationOrder(t *testing.T) {
	r := registry.New()
	var fid ids.FID
	fid[0] = 1

	var order []int
	r.Register(fid, func(ids.FID) { order = append(order, 1) })
	r.Register(fid, func(ids.FID) { order = append(order, 2) })
	r.Register(fid, func(ids.FID) { order = append(order, 3) })

	r.Dispatch(fid)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestReentrantRegisterAppliesNextDispatch(t *testing.T) {
	r := registry.New()
	var fid ids.FID
	fid[0] = 2

	var calls int
	r.Register(fid, func(ids.FID) {
		calls++
		r.Register(fid, func(ids.FID) { calls += 100 })
	})

	r.Dispatch(fid)
	require.Equal(t, 1, calls)

	r.Dispatch(fid)
	require.Equal(t, 102, calls)
}

func TestRemoveTakesEffectNextDispatch(t *testing.T) {
	r := registry.New()
	var fid ids.FID
	fid[0] = 3

	var calls int
	tok := r.Register(fid, func(ids.FID) { calls++ })

	r.Register(fid, func(ids.FID) {
		r.Remove(fid, tok)
	})

	r.Dispatch(fid)
	require.Equal(t, 1, calls) // both callbacks ran this round

	r.Dispatch(fid)
	require.Equal(t, 1, calls) // the removed callback no longer fires
}

func TestGetFeedUnknownFIDNotFound(t *testing.T) {
	r := registry.New()
	var fid ids.FID
	fid[0] = 4

	_, ok := r.GetFeed(fid)
	require.False(t, ok)
}
