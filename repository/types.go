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

	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/types"
)

// QueryRepository reads entities. A nil filter matches every row.
type QueryRepository[T any] interface {
	// GetList returns every row of T.
	GetList(ctx context.Context) ([]*T, error)

	// GetListBy returns the rows matching filter.
	GetListBy(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// GetQueryable returns a deferred query over every row of T.
	GetQueryable() *Queryable[T]

	// GetQueryableBy returns a deferred query over the rows matching filter.
	GetQueryableBy(filter *types.QueryFilter) *Queryable[T]

	// Get returns the row with the given primary key, nil when id is nil or
	// no row matches.
	Get(ctx context.Context, id any) (*T, error)

	// GetBy returns the only row matching filter, nil when none matches and
	// ErrMultipleResults when several do.
	GetBy(ctx context.Context, filter *types.QueryFilter) (*T, error)
}

// StagingRepository stages changes in the data context. Nothing reaches the
// store until the context is saved.
type StagingRepository[T any] interface {
	Add(entity *T) error
	Update(entity *T) error
	Delete(entity *T) error
	DeleteByID(ctx context.Context, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines reads, staging and pagination for one entity type
// bound to one data context.
type Repository[T any] interface {
	QueryRepository[T]
	StagingRepository[T]
	PageQueryRepository[T]
	Context() *database.DataContext
	SoftDelete() bool
}
