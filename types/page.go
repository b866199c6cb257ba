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

package types

// Condition is a single WHERE fragment of a QueryFilter. When Group is set,
// Query and Args are ignored and the nested filter is rendered in parentheses.
type Condition struct {
	Or    bool
	Query string
	Args  []interface{}
	Group *QueryFilter
}

// QueryFilter describes a WHERE clause built from conditions with "?"
// placeholders and their argument values.
type QueryFilter struct {
	Conditions []Condition
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{Conditions: []Condition{{Query: schema, Args: args}}}
}

// And appends a condition joined with AND.
func (f *QueryFilter) And(schema string, args ...interface{}) *QueryFilter {
	f.Conditions = append(f.Conditions, Condition{Query: schema, Args: args})
	return f
}

// Or appends a condition joined with OR.
func (f *QueryFilter) Or(schema string, args ...interface{}) *QueryFilter {
	f.Conditions = append(f.Conditions, Condition{Or: true, Query: schema, Args: args})
	return f
}

// AndGroup appends a parenthesized sub-filter joined with AND.
func (f *QueryFilter) AndGroup(group *QueryFilter) *QueryFilter {
	if group.IsEmpty() {
		return f
	}
	f.Conditions = append(f.Conditions, Condition{Group: group})
	return f
}

// OrGroup appends a parenthesized sub-filter joined with OR.
func (f *QueryFilter) OrGroup(group *QueryFilter) *QueryFilter {
	if group.IsEmpty() {
		return f
	}
	f.Conditions = append(f.Conditions, Condition{Or: true, Group: group})
	return f
}

// IsEmpty reports whether the filter matches every row. A nil filter is empty.
func (f *QueryFilter) IsEmpty() bool {
	return f == nil || len(f.Conditions) == 0
}

// PageRequest describes pagination, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, make([]string, 0))
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// Pages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
