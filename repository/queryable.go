/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"slices"

	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun"
)

// Queryable is a deferred query over the rows of T. Building it runs
// nothing; List, First, Single, Count, Exists and Page execute it. Every
// composing method returns a new Queryable and leaves the receiver unchanged.
type Queryable[T any] struct {
	dc      *database.DataContext
	filters []*types.QueryFilter
	orders  []string
	limit   int
	offset  int
}

func newQueryable[T any](dc *database.DataContext, filter *types.QueryFilter) *Queryable[T] {
	q := &Queryable[T]{dc: dc}
	if !filter.IsEmpty() {
		q.filters = []*types.QueryFilter{filter}
	}
	return q
}

func (q *Queryable[T]) clone() *Queryable[T] {
	c := *q
	c.filters = slices.Clone(q.filters)
	c.orders = slices.Clone(q.orders)
	return &c
}

// Where narrows the query; filters are combined with AND.
func (q *Queryable[T]) Where(filter *types.QueryFilter) *Queryable[T] {
	c := q.clone()
	if !filter.IsEmpty() {
		c.filters = append(c.filters, filter)
	}
	return c
}

// Order appends ORDER BY expressions such as "name" or "id DESC".
func (q *Queryable[T]) Order(orders ...string) *Queryable[T] {
	c := q.clone()
	c.orders = append(c.orders, orders...)
	return c
}

func (q *Queryable[T]) Limit(n int) *Queryable[T] {
	c := q.clone()
	c.limit = n
	return c
}

func (q *Queryable[T]) Offset(n int) *Queryable[T] {
	c := q.clone()
	c.offset = n
	return c
}

// SelectQuery renders the queryable into a Bun select query scanning into
// model, for callers that need Bun features not covered here.
func (q *Queryable[T]) SelectQuery(model interface{}) *bun.SelectQuery {
	sq := q.dc.NewSelect().Model(model)
	for _, f := range q.filters {
		sq = applyFilter(sq, f)
	}
	if len(q.orders) > 0 {
		sq = sq.Order(q.orders...)
	}
	if q.limit > 0 {
		sq = sq.Limit(q.limit)
	}
	if q.offset > 0 {
		sq = sq.Offset(q.offset)
	}
	return sq
}

func (q *Queryable[T]) windowed() bool {
	return q.limit > 0 || q.offset > 0
}

// List executes the query and materializes every row.
func (q *Queryable[T]) List(ctx context.Context) ([]*T, error) {
	if err := q.dc.Err(); err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := q.SelectQuery(&entities).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// First returns the first row, or nil when the query matches nothing.
func (q *Queryable[T]) First(ctx context.Context) (*T, error) {
	limit := 1
	if q.limit > 0 && q.limit < limit {
		limit = q.limit
	}
	entities, err := q.Limit(limit).List(ctx)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return entities[0], nil
}

// Single returns the only matching row, nil when nothing matches, and
// ErrMultipleResults when more than one row matches.
func (q *Queryable[T]) Single(ctx context.Context) (*T, error) {
	probe := q
	if q.limit == 0 || q.limit > 2 {
		probe = q.Limit(2)
	}
	entities, err := probe.List(ctx)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	default:
		return nil, ErrMultipleResults
	}
}

// Count returns the number of rows List would return.
func (q *Queryable[T]) Count(ctx context.Context) (int, error) {
	if err := q.dc.Err(); err != nil {
		return 0, err
	}
	// COUNT(*) drops LIMIT/OFFSET, so windowed queries are counted by size.
	if q.windowed() {
		entities, err := q.List(ctx)
		return len(entities), err
	}
	return q.SelectQuery((*T)(nil)).Count(ctx)
}

// Exists reports whether the query matches at least one row.
func (q *Queryable[T]) Exists(ctx context.Context) (bool, error) {
	if err := q.dc.Err(); err != nil {
		return false, err
	}
	if q.windowed() {
		n, err := q.Count(ctx)
		return n > 0, err
	}
	return q.SelectQuery((*T)(nil)).Exists(ctx)
}

// Page executes a count and one window of the query. Filters and orders of
// the page request are added to the queryable's own.
func (q *Queryable[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	query := q.Where(pageRequest.GetFilter()).Order(pageRequest.GetOrders()...)
	query.limit, query.offset = 0, 0

	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	entities, err := query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		List(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}
