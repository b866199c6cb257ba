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

package entitycore

import (
	"context"

	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/repository"
	"github.com/tomoncle/entitycore/types"
	"github.com/tomoncle/entitycore/unitofwork"
)

type Manager[T any] interface {
	// Save commits every change staged in the data context and returns the
	// number of affected rows.
	Save(ctx context.Context) (int, error)

	// GetQueryable returns a deferred query over every entity.
	GetQueryable() *repository.Queryable[T]

	// GetQueryableBy returns a deferred query over the entities matching filter.
	GetQueryableBy(filter *types.QueryFilter) *repository.Queryable[T]

	// GetList returns all entities.
	GetList(ctx context.Context) ([]*T, error)

	// GetListBy returns the entities matching filter.
	GetListBy(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Find returns the entity with the given primary key, nil if there is none.
	Find(ctx context.Context, id any) (*T, error)

	// FindBy returns the only entity matching filter.
	FindBy(ctx context.Context, filter *types.QueryFilter) (*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Add stages an insert and, unless WithoutSave is given, saves.
	Add(ctx context.Context, entity *T, opts ...MutationOption) error

	// Update stages a full update and, unless WithoutSave is given, saves.
	Update(ctx context.Context, entity *T, opts ...MutationOption) error

	// Delete stages a delete (a flag update for soft-deletable entities) and,
	// unless WithoutSave is given, saves.
	Delete(ctx context.Context, entity *T, opts ...MutationOption) error

	// DeleteByID resolves the entity by primary key and deletes it.
	DeleteByID(ctx context.Context, id any, opts ...MutationOption) error

	// Exists reports whether at least one entity matches filter.
	Exists(ctx context.Context, filter *types.QueryFilter) (bool, error)

	// Count returns the number of entities.
	Count(ctx context.Context) (int, error)

	// CountBy returns the number of entities matching filter.
	CountBy(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Repository returns the underlying repository.
	Repository() repository.Repository[T]

	// UnitOfWork returns the underlying unit of work.
	UnitOfWork() unitofwork.UnitOfWork
}

type mutationOptions struct {
	save bool
}

// MutationOption tunes Add, Update, Delete and DeleteByID.
type MutationOption func(*mutationOptions)

// WithoutSave only stages the change; it becomes durable on the next Save.
func WithoutSave() MutationOption {
	return WithSave(false)
}

// WithSave sets whether the change is saved right after staging.
func WithSave(save bool) MutationOption {
	return func(o *mutationOptions) { o.save = save }
}

func applyMutationOptions(opts []MutationOption) mutationOptions {
	o := mutationOptions{save: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type baseManagerImpl[T any] struct {
	repo repository.Repository[T]
	uow  unitofwork.UnitOfWork
}

// NewManager composes a repository and a unit of work over dc. The manager
// never closes dc; its creator does.
func NewManager[T any](dc *database.DataContext) (Manager[T], error) {
	repo, err := repository.NewRepository[T](dc)
	if err != nil {
		return nil, err
	}
	uow, err := unitofwork.New(dc)
	if err != nil {
		return nil, err
	}
	return &baseManagerImpl[T]{repo: repo, uow: uow}, nil
}

// NewDefaultManager returns a manager over a fresh data context bound to the
// global database initialized by database.InitDB.
func NewDefaultManager[T any]() (Manager[T], error) {
	db := database.GetDB()
	if db == nil {
		return nil, database.ErrNilDB
	}
	dc, err := database.NewDataContext(db)
	if err != nil {
		return nil, err
	}
	return NewManager[T](dc)
}

func (m *baseManagerImpl[T]) Repository() repository.Repository[T] { return m.repo }

func (m *baseManagerImpl[T]) UnitOfWork() unitofwork.UnitOfWork { return m.uow }

func (m *baseManagerImpl[T]) Save(ctx context.Context) (int, error) {
	return m.uow.Save(ctx)
}

func (m *baseManagerImpl[T]) GetQueryable() *repository.Queryable[T] {
	return m.repo.GetQueryable()
}

func (m *baseManagerImpl[T]) GetQueryableBy(filter *types.QueryFilter) *repository.Queryable[T] {
	return m.repo.GetQueryableBy(filter)
}

func (m *baseManagerImpl[T]) GetList(ctx context.Context) ([]*T, error) {
	return m.repo.GetList(ctx)
}

func (m *baseManagerImpl[T]) GetListBy(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return m.repo.GetListBy(ctx, filter)
}

func (m *baseManagerImpl[T]) Find(ctx context.Context, id any) (*T, error) {
	return m.repo.Get(ctx, id)
}

func (m *baseManagerImpl[T]) FindBy(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	return m.repo.GetBy(ctx, filter)
}

func (m *baseManagerImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return m.repo.Page(ctx, page)
}

func (m *baseManagerImpl[T]) Add(ctx context.Context, entity *T, opts ...MutationOption) error {
	return m.stageThenSave(ctx, opts, func() error { return m.repo.Add(entity) })
}

func (m *baseManagerImpl[T]) Update(ctx context.Context, entity *T, opts ...MutationOption) error {
	return m.stageThenSave(ctx, opts, func() error { return m.repo.Update(entity) })
}

func (m *baseManagerImpl[T]) Delete(ctx context.Context, entity *T, opts ...MutationOption) error {
	return m.stageThenSave(ctx, opts, func() error { return m.repo.Delete(entity) })
}

func (m *baseManagerImpl[T]) DeleteByID(ctx context.Context, id any, opts ...MutationOption) error {
	return m.stageThenSave(ctx, opts, func() error { return m.repo.DeleteByID(ctx, id) })
}

func (m *baseManagerImpl[T]) stageThenSave(ctx context.Context, opts []MutationOption, stage func() error) error {
	if err := stage(); err != nil {
		return err
	}
	if applyMutationOptions(opts).save {
		_, err := m.uow.Save(ctx)
		return err
	}
	return nil
}

func (m *baseManagerImpl[T]) Exists(ctx context.Context, filter *types.QueryFilter) (bool, error) {
	return m.repo.GetQueryableBy(filter).Exists(ctx)
}

func (m *baseManagerImpl[T]) Count(ctx context.Context) (int, error) {
	return m.repo.GetQueryable().Count(ctx)
}

func (m *baseManagerImpl[T]) CountBy(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return m.repo.GetQueryableBy(filter).Count(ctx)
}
