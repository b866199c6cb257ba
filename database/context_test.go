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
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun"
)

func TestNewDataContext_NilDB(t *testing.T) {
	dc, err := NewDataContext(nil)
	assert.Nil(t, dc)
	assert.ErrorIs(t, err, ErrNilDB)

	var db *bun.DB
	dc, err = NewDataContext(db)
	assert.Nil(t, dc)
	assert.ErrorIs(t, err, ErrNilDB)
}

func TestDataContext_EntryRejectsBadEntities(t *testing.T) {
	dc := openTestContext(t)

	assert.ErrorIs(t, dc.Entry(nil, types.Added), ErrNilEntity)
	assert.ErrorIs(t, dc.Entry((*testItem)(nil), types.Added), ErrNilEntity)
	assert.Error(t, dc.Entry(testItem{Name: "a"}, types.Added))
	n := 1
	assert.Error(t, dc.Entry(&n, types.Added))
	assert.Error(t, dc.Entry(&testItem{}, types.EntityState(42)))
	assert.Zero(t, dc.Pending())
}

func TestDataContext_EntryMergesStates(t *testing.T) {
	tests := []struct {
		name   string
		states []types.EntityState
		want   types.EntityState
		staged int
	}{
		{"added", []types.EntityState{types.Added}, types.Added, 1},
		{"added then modified", []types.EntityState{types.Added, types.Modified}, types.Added, 1},
		{"added then deleted", []types.EntityState{types.Added, types.Deleted}, types.Unchanged, 0},
		{"modified then deleted", []types.EntityState{types.Modified, types.Deleted}, types.Deleted, 1},
		{"deleted then modified", []types.EntityState{types.Deleted, types.Modified}, types.Modified, 1},
		{"modified then unchanged", []types.EntityState{types.Modified, types.Unchanged}, types.Unchanged, 0},
		{"unchanged", []types.EntityState{types.Unchanged}, types.Unchanged, 0},
	}
	dc := openTestContext(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc.Discard()
			item := &testItem{Name: "a"}
			for _, s := range tt.states {
				require.NoError(t, dc.Entry(item, s))
			}
			assert.Equal(t, tt.want, dc.State(item))
			assert.Equal(t, tt.staged, dc.Pending())
		})
	}
}

func TestDataContext_SaveChanges(t *testing.T) {
	dc := openTestContext(t)
	ctx := context.Background()

	n, err := dc.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	a, b := &testItem{Name: "a"}, &testItem{Name: "b"}
	require.NoError(t, dc.Entry(a, types.Added))
	require.NoError(t, dc.Entry(b, types.Added))
	n, err = dc.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, dc.Pending())
	assert.NotZero(t, a.ID)
	assert.Equal(t, types.Unchanged, dc.State(a))

	a.Name = "a2"
	require.NoError(t, dc.Entry(a, types.Modified))
	require.NoError(t, dc.Entry(b, types.Deleted))
	n, err = dc.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var items []testItem
	require.NoError(t, dc.NewSelect().Model(&items).Scan(ctx))
	require.Len(t, items, 1)
	assert.Equal(t, "a2", items[0].Name)
}

func TestDataContext_SaveChangesInStagingOrder(t *testing.T) {
	dc := openTestContext(t)
	ctx := context.Background()

	first := &testItem{Name: "x"}
	require.NoError(t, dc.Entry(first, types.Added))
	_, err := dc.SaveChanges(ctx)
	require.NoError(t, err)

	// The delete frees the unique name before the insert reuses it.
	require.NoError(t, dc.Entry(first, types.Deleted))
	require.NoError(t, dc.Entry(&testItem{Name: "x"}, types.Added))
	n, err := dc.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDataContext_SaveChangesRollsBack(t *testing.T) {
	dc := openTestContext(t)
	ctx := context.Background()

	require.NoError(t, dc.Entry(&testItem{Name: "a"}, types.Added))
	require.NoError(t, dc.Entry(&testItem{Name: "a"}, types.Added))
	n, err := dc.SaveChanges(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, dc.Pending())

	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	count, err := dc.NewSelect().Model((*testItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDataContext_SaveChangesReturnsStoreErrorUnchanged(t *testing.T) {
	db, mock := openMockDB(t)
	dc, err := NewDataContext(db)
	require.NoError(t, err)

	storeErr := errors.New("connection reset by peer")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "tags"`)).WillReturnError(storeErr)
	mock.ExpectRollback()

	require.NoError(t, dc.Entry(&testTag{ID: "go", Name: "Go"}, types.Added))
	_, err = dc.SaveChanges(context.Background())
	assert.Equal(t, storeErr, err)
	assert.Equal(t, 1, dc.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataContext_Close(t *testing.T) {
	dc := openTestContext(t)
	ctx := context.Background()

	require.NoError(t, dc.Entry(&testItem{Name: "a"}, types.Added))
	require.NoError(t, dc.Close())
	require.NoError(t, dc.Close())
	assert.True(t, dc.Closed())
	assert.Zero(t, dc.Pending())

	assert.ErrorIs(t, dc.Err(), ErrContextClosed)
	assert.ErrorIs(t, dc.Entry(&testItem{Name: "b"}, types.Added), ErrContextClosed)
	_, err := dc.SaveChanges(ctx)
	assert.ErrorIs(t, err, ErrContextClosed)
}

func TestDataContext_CloseLeavesBorrowedDBOpen(t *testing.T) {
	manager := openTestManager(t)
	dc, err := NewDataContext(manager.GetDB())
	require.NoError(t, err)

	require.NoError(t, dc.Close())
	assert.NoError(t, manager.Ping(context.Background()))
}

func TestOpenDataContext_OwnsManager(t *testing.T) {
	ctx := context.Background()
	dc, err := OpenDataContext(ctx, memoryConfig())
	require.NoError(t, err)
	owner := dc.owner
	require.NotNil(t, owner)
	assert.NoError(t, owner.Ping(ctx))

	require.NoError(t, dc.Close())
	require.NoError(t, dc.Close())
	assert.Nil(t, owner.GetDB())
	assert.Error(t, owner.Ping(ctx))
}

func TestOpenDataContext_UnsupportedType(t *testing.T) {
	dc, err := OpenDataContext(context.Background(), &ConnectionConfig{Type: "oracle"})
	assert.Nil(t, dc)
	assert.Error(t, err)
}

func TestDataContext_LogsChanges(t *testing.T) {
	dc := openTestContext(t)
	log := &recordLogger{}
	dc.SetLogger(log)
	dc.SetLogger(nil)

	require.NoError(t, dc.Entry(&testItem{Name: "a"}, types.Added))
	_, err := dc.SaveChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Entity staged", "Changes saved"}, log.messages(LogLevelDebug))
}

func TestDataContext_BoundToTx(t *testing.T) {
	manager := openTestManager(t)
	ctx := context.Background()

	tx, err := manager.GetDB().BeginTx(ctx, nil)
	require.NoError(t, err)
	dc, err := NewDataContext(tx)
	require.NoError(t, err)

	require.NoError(t, dc.Entry(&testItem{Name: "a"}, types.Added))
	_, err = dc.SaveChanges(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	count, err := manager.GetDB().NewSelect().Model((*testItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
