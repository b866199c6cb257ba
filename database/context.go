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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type change struct {
	entity interface{}
	state  types.EntityState
}

// DataContext is one logical unit of storage change. It borrows a bun.IDB,
// tracks staged entities and writes them in a single transaction on
// SaveChanges. A DataContext is not safe for concurrent use.
//
// The creator of a DataContext owns it and is the only one that should call
// Close. Repositories, units of work and managers built on it never close it.
type DataContext struct {
	db      bun.IDB
	logger  Logger
	changes []*change
	index   map[interface{}]*change
	owner   AbstractDatabaseManager

	closed    bool
	closeOnce sync.Once
}

// NewDataContext binds a data context to db, which may be a *bun.DB or a
// bun.Tx. The caller keeps ownership of db.
func NewDataContext(db bun.IDB) (*DataContext, error) {
	if isNilIDB(db) {
		return nil, ErrNilDB
	}
	return &DataContext{
		db:     db,
		logger: GetLogger(),
		index:  make(map[interface{}]*change),
	}, nil
}

// OpenDataContext connects a new database manager from cfg and returns a
// data context that owns it: closing the context disconnects the manager.
func OpenDataContext(ctx context.Context, cfg *ConnectionConfig) (*DataContext, error) {
	manager, err := NewDatabaseFactory().CreateFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := manager.Connect(ctx); err != nil {
		return nil, err
	}
	dc, err := NewDataContext(manager.GetDB())
	if err != nil {
		_ = manager.Disconnect()
		return nil, err
	}
	dc.owner = manager
	return dc, nil
}

func isNilIDB(db bun.IDB) bool {
	if db == nil {
		return true
	}
	d, ok := db.(*bun.DB)
	return ok && d == nil
}

// SetLogger replaces the logger used for staging and commit messages.
func (dc *DataContext) SetLogger(logger Logger) {
	if logger != nil {
		dc.logger = logger
	}
}

// DB returns the bound database handle.
func (dc *DataContext) DB() bun.IDB { return dc.db }

// Dialect returns the dialect of the bound database handle.
func (dc *DataContext) Dialect() schema.Dialect { return dc.db.Dialect() }

// NewSelect starts a select query on the bound database handle.
func (dc *DataContext) NewSelect() *bun.SelectQuery { return dc.db.NewSelect() }

// Err returns ErrContextClosed once the context is closed, nil otherwise.
func (dc *DataContext) Err() error {
	if dc.closed {
		return ErrContextClosed
	}
	return nil
}

// Entry stages entity, a non-nil struct pointer, with the given state.
// Staging an already tracked entity merges the states:
//
//	Added    + Modified  -> Added
//	Added    + Deleted   -> detached (nothing reaches the store)
//	any      + Unchanged -> detached
//	otherwise            -> the new state
func (dc *DataContext) Entry(entity interface{}, state types.EntityState) error {
	if err := dc.Err(); err != nil {
		return err
	}
	if err := checkEntity(entity); err != nil {
		return err
	}
	if !state.IsValid() {
		return fmt.Errorf("database: invalid entity state %d", state)
	}

	existing, tracked := dc.index[entity]
	switch {
	case !tracked && state == types.Unchanged:
		return nil
	case !tracked:
		c := &change{entity: entity, state: state}
		dc.changes = append(dc.changes, c)
		dc.index[entity] = c
	case state == types.Unchanged,
		existing.state == types.Added && state == types.Deleted:
		dc.detach(entity)
	case existing.state == types.Added && state == types.Modified:
		// stays Added, the insert writes the current field values
	default:
		existing.state = state
	}

	dc.logger.Debug("Entity staged", "entity", fmt.Sprintf("%T", entity), "state", dc.State(entity), "pending", len(dc.changes))
	return nil
}

func checkEntity(entity interface{}) error {
	v := reflect.ValueOf(entity)
	if !v.IsValid() {
		return ErrNilEntity
	}
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("database: entity must be a pointer to struct, got %T", entity)
	}
	if v.IsNil() {
		return ErrNilEntity
	}
	if v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("database: entity must be a pointer to struct, got %T", entity)
	}
	return nil
}

func (dc *DataContext) detach(entity interface{}) {
	delete(dc.index, entity)
	kept := dc.changes[:0]
	for _, c := range dc.changes {
		if c.entity != entity {
			kept = append(kept, c)
		}
	}
	dc.changes = kept
}

// State returns the staged state of entity, Unchanged if it is not tracked.
func (dc *DataContext) State(entity interface{}) types.EntityState {
	if c, ok := dc.index[entity]; ok {
		return c.state
	}
	return types.Unchanged
}

// Pending returns the number of staged entities.
func (dc *DataContext) Pending() int { return len(dc.changes) }

// Discard drops every staged change without touching the store.
func (dc *DataContext) Discard() {
	dc.changes = nil
	dc.index = make(map[interface{}]*change)
}

// SaveChanges writes every staged change, in staging order, inside one
// transaction and returns the number of affected rows. On failure the
// transaction is rolled back, the store error is returned unchanged and the
// staged changes are kept.
func (dc *DataContext) SaveChanges(ctx context.Context) (int, error) {
	if err := dc.Err(); err != nil {
		return 0, err
	}
	if len(dc.changes) == 0 {
		return 0, nil
	}

	var affected int64
	err := dc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		affected = 0
		for _, c := range dc.changes {
			n, err := applyChange(ctx, tx, c)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		dc.logger.Warn("Save changes failed, transaction rolled back", "pending", len(dc.changes), "error", err)
		return 0, err
	}

	dc.logger.Debug("Changes saved", "entities", len(dc.changes), "rows", affected)
	dc.Discard()
	return int(affected), nil
}

func applyChange(ctx context.Context, tx bun.Tx, c *change) (int64, error) {
	var res sql.Result
	var err error
	switch c.state {
	case types.Added:
		res, err = tx.NewInsert().Model(c.entity).Exec(ctx)
	case types.Modified:
		res, err = tx.NewUpdate().Model(c.entity).WherePK().Exec(ctx)
	case types.Deleted:
		res, err = tx.NewDelete().Model(c.entity).WherePK().Exec(ctx)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Closed reports whether Close has been called.
func (dc *DataContext) Closed() bool { return dc.closed }

// Close discards staged changes and marks the context closed. A context
// returned by OpenDataContext also disconnects its database manager. Close is
// safe to call more than once; only the first call has an effect.
func (dc *DataContext) Close() error {
	var err error
	dc.closeOnce.Do(func() {
		dc.Discard()
		dc.closed = true
		if dc.owner != nil {
			err = dc.owner.Disconnect()
		}
	})
	return err
}
