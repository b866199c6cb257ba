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
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	dc         *database.DataContext
	softDelete bool
	typeName   string
}

// NewRepository returns a generic repository bound to dc. Whether T is
// soft-deletable is decided here, once, from types.SoftDeletable.
func NewRepository[T any](dc *database.DataContext) (Repository[T], error) {
	if dc == nil {
		return nil, database.ErrNilContext
	}
	return &baseRepositoryImpl[T]{
		dc:         dc,
		softDelete: types.IsSoftDeletable[T](),
		typeName:   reflect.TypeFor[T]().String(),
	}, nil
}

func (r *baseRepositoryImpl[T]) Context() *database.DataContext { return r.dc }

func (r *baseRepositoryImpl[T]) SoftDelete() bool { return r.softDelete }

func (r *baseRepositoryImpl[T]) GetList(ctx context.Context) ([]*T, error) {
	return r.GetQueryable().List(ctx)
}

func (r *baseRepositoryImpl[T]) GetListBy(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return r.GetQueryableBy(filter).List(ctx)
}

func (r *baseRepositoryImpl[T]) GetQueryable() *Queryable[T] {
	return newQueryable[T](r.dc, nil)
}

func (r *baseRepositoryImpl[T]) GetQueryableBy(filter *types.QueryFilter) *Queryable[T] {
	return newQueryable[T](r.dc, filter)
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	id, ok := derefID(id)
	if !ok {
		return nil, nil
	}
	if err := r.dc.Err(); err != nil {
		return nil, err
	}
	pk, err := r.primaryKey()
	if err != nil {
		return nil, err
	}
	entity := new(T)
	err = r.dc.NewSelect().
		Model(entity).
		Where("?TableAlias.? = ?", pk.SQLName, id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// derefID unwraps pointer ids; ok is false for nil and nil pointers.
func derefID(id any) (any, bool) {
	if id == nil {
		return nil, false
	}
	v := reflect.ValueOf(id)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	return v.Interface(), true
}

func (r *baseRepositoryImpl[T]) primaryKey() (*schema.Field, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrNoPrimaryKey, r.typeName)
	}
	table := r.dc.Dialect().Tables().Get(typ)
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrNoPrimaryKey, r.typeName, len(table.PKs))
	}
	return table.PKs[0], nil
}

func (r *baseRepositoryImpl[T]) GetBy(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	entity, err := r.GetQueryableBy(filter).Single(ctx)
	if errors.Is(err, ErrMultipleResults) {
		return nil, fmt.Errorf("%w: %s", err, r.typeName)
	}
	return entity, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	return r.GetQueryable().Page(ctx, pageRequest)
}

func (r *baseRepositoryImpl[T]) Add(entity *T) error {
	if entity == nil {
		return database.ErrNilEntity
	}
	return r.dc.Entry(entity, types.Added)
}

func (r *baseRepositoryImpl[T]) Update(entity *T) error {
	if entity == nil {
		return database.ErrNilEntity
	}
	return r.dc.Entry(entity, types.Modified)
}

// Delete flags soft-deletable entities and stages them as modified; any
// other entity is staged for physical removal.
func (r *baseRepositoryImpl[T]) Delete(entity *T) error {
	if entity == nil {
		return database.ErrNilEntity
	}
	if err := r.dc.Err(); err != nil {
		return err
	}
	if r.softDelete {
		any(entity).(types.SoftDeletable).MarkDeleted()
		return r.dc.Entry(entity, types.Modified)
	}
	return r.dc.Entry(entity, types.Deleted)
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	entity, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("%w: %s with id %v", ErrNotFound, r.typeName, id)
	}
	return r.Delete(entity)
}
