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

package unitofwork_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/internal/dbtest"
	"github.com/tomoncle/entitycore/types"
	"github.com/tomoncle/entitycore/unitofwork"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type tag struct {
	bun.BaseModel `bun:"table:tags"`

	ID string `bun:"id,pk"`
}

func TestNew_NilContext(t *testing.T) {
	uow, err := unitofwork.New(nil)
	assert.Nil(t, uow)
	assert.ErrorIs(t, err, database.ErrNilContext)
}

func TestUnitOfWork_Save(t *testing.T) {
	dc := dbtest.Open(t)
	uow, err := unitofwork.New(dc)
	require.NoError(t, err)
	assert.Same(t, dc, uow.Context())
	ctx := context.Background()

	n, err := uow.Save(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, dc.Entry(&dbtest.User{Name: "A"}, types.Added))
	require.NoError(t, dc.Entry(&dbtest.Article{Title: "T"}, types.Added))
	n, err = uow.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, dc.Pending())
}

func TestUnitOfWork_SaveReturnsStoreError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dc, err := database.NewDataContext(bun.NewDB(sqlDB, pgdialect.New()))
	require.NoError(t, err)
	uow, err := unitofwork.New(dc)
	require.NoError(t, err)

	storeErr := errors.New("deadlock detected")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "tags"`)).WillReturnError(storeErr)
	mock.ExpectRollback()

	require.NoError(t, dc.Entry(&tag{ID: "go"}, types.Added))
	n, err := uow.Save(context.Background())
	assert.Zero(t, n)
	assert.Equal(t, storeErr, err)
	assert.Equal(t, 1, dc.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_SaveOnClosedContext(t *testing.T) {
	dc := dbtest.Open(t)
	uow, err := unitofwork.New(dc)
	require.NoError(t, err)
	require.NoError(t, dc.Close())

	_, err = uow.Save(context.Background())
	assert.ErrorIs(t, err, database.ErrContextClosed)
}
