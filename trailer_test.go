// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"errors"
	"testing"
)

func TestTrailerDrainsLIFO(t *testing.T) {

	s := newTrailerScheduler()
	var order []int

	err := s.scope(func() error {
		s.pushTrailer(func() error { order = append(order, 1); return nil })
		s.pushTrailer(func() error { order = append(order, 2); return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("drain order = %v, want [2 1]", order)
	}
	if err := s.assertDrained(); err != nil {
		t.Errorf("assertDrained = %v, want nil", err)
	}
}

func TestTrailerClosuresMayPushMore(t *testing.T) {

	s := newTrailerScheduler()
	var order []int

	err := s.scope(func() error {
		s.pushTrailer(func() error {
			order = append(order, 1)
			s.pushTrailer(func() error { order = append(order, 2); return nil })
			return nil
		})
		return nil
	})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("drain order = %v, want [1 2]", order)
	}
}

func TestTrailerNestedScopesDrainAtDepthZero(t *testing.T) {

	s := newTrailerScheduler()

	err := s.scope(func() error {
		return s.scope(func() error {
			s.pushTrailer(func() error { return nil })
			return nil
		})
	})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if s.maxDepth != 2 {
		t.Errorf("maxDepth = %d, want 2", s.maxDepth)
	}
	if err := s.assertDrained(); err != nil {
		t.Errorf("assertDrained = %v, want nil", err)
	}
}

func TestTrailerUndrainedStaticsAreFatal(t *testing.T) {

	s := newTrailerScheduler()
	s.pushStatic(func() error { return nil })

	if err := s.assertDrained(); !errors.Is(err, ErrUnterminatedTrailer) {
		t.Errorf("assertDrained = %v, want ErrUnterminatedTrailer", err)
	}

	if err := s.drainStatics(); err != nil {
		t.Fatalf("drainStatics failed: %v", err)
	}
	if err := s.assertDrained(); err != nil {
		t.Errorf("assertDrained after drain = %v, want nil", err)
	}
}
