// Copyright 2025 Google LLC
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

package db

import (
	"context"
	"sync"
	"sync/atomic"

	gxsync "github.com/elp-tools/eqwalizer/base/sync"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
)

// Key identifies the result of a query.
type Key struct {
	Project ast.ProjectID
	Module  ast.ModuleName
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type cell[T any] struct {
	mut sync.Mutex
	// Use an atomic so that the cell can be reset without locking
	// (prevent a deadlock when the cell is being computed while the
	// database is being reset)
	done atomic.Bool
	val  T
	err  error
}

func (c *cell[T]) reset() {
	c.done.Store(false)
}

type resetter interface {
	name() string
	reset(Key)
	clear()
	computed() int
}

// query memoizes the results of a computation per key.
type query[T any] struct {
	stage string
	cells gxsync.Map[Key, *cell[T]]
	count atomic.Int64
}

var _ resetter = (*query[bool])(nil)

func newQuery[T any](stage string) *query[T] {
	return &query[T]{stage: stage}
}

func (q *query[T]) name() string {
	return q.stage
}

func (q *query[T]) computed() int {
	return int(q.count.Load())
}

func (q *query[T]) reset(key Key) {
	c, ok := q.cells.Load(key)
	if !ok {
		return
	}
	c.reset()
}

func (q *query[T]) clear() {
	for _, c := range q.cells.Iter() {
		c.reset()
	}
}

func (q *query[T]) cell(key Key) *cell[T] {
	if c, ok := q.cells.Load(key); ok {
		return c
	}
	c, _ := q.cells.LoadOrStore(key, &cell[T]{})
	return c
}

// get returns the memoized result for a key, computing it if required.
// Results of canceled computations are not memoized.
func (q *query[T]) get(ctx context.Context, key Key, compute func() (T, error)) (T, error) {
	c := q.cell(key)
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.done.Load() {
		return c.val, c.err
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	q.count.Add(1)
	val, err := compute()
	if isCanceled(err) {
		return zero, err
	}
	c.val, c.err = val, err
	c.done.Store(true)
	return val, err
}
