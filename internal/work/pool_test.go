// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPoolDrainOrdersByIndex(t *testing.T) {
	p := New(context.Background(), 4)
	const n = 20
	for i := 0; i < n; i++ {
		i := i
		p.Submit(n-1-i, func(ctx context.Context) (interface{}, error) {
			return n - 1 - i, nil
		})
	}
	results := p.Drain()
	if len(results) != n {
		t.Fatalf("Drain() returned %d results, want %d", len(results), n)
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d, want %d", i, r.Index, i)
		}
		if r.Value.(int) != i {
			t.Errorf("results[%d].Value = %v, want %d", i, r.Value, i)
		}
	}
}

func TestPoolRecoversPanic(t *testing.T) {
	p := New(context.Background(), 2)
	p.Submit(0, func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})
	p.Submit(1, func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	results := p.Drain()
	if results[0].Err == nil {
		t.Errorf("panicking job: want recovered error, got nil")
	}
	if results[1].Err != nil || results[1].Value.(int) != 42 {
		t.Errorf("sibling job result = %+v, want (42, nil)", results[1])
	}
}

func TestPoolPropagatesJobError(t *testing.T) {
	p := New(context.Background(), 1)
	wantErr := errors.New("failed")
	p.Submit(0, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	results := p.Drain()
	if !errors.Is(results[0].Err, wantErr) {
		t.Errorf("results[0].Err = %v, want %v", results[0].Err, wantErr)
	}
}

func TestPoolDefaultSizeOnNonPositive(t *testing.T) {
	p := New(context.Background(), 0)
	if p.n <= 0 {
		t.Errorf("New(ctx, 0): n = %d, want > 0 (runtime.NumCPU fallback)", p.n)
	}
	p.Drain()
}

func ExamplePool_usage() {
	p := New(context.Background(), 2)
	p.Submit(0, func(ctx context.Context) (interface{}, error) { return "a", nil })
	for _, r := range p.Drain() {
		fmt.Println(r.Value)
	}
	// Output: a
}
