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

// Package dbtest opens throwaway in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/entitycore/database"
	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun"
)

// User is a hard-deletable entity.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	Email string `bun:"email,nullzero,unique"`
	Age   int    `bun:"age,notnull,default:0"`
}

// Article is a soft-deletable entity.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title,notnull"`
	types.SoftDelete
}

// Open connects a private in-memory SQLite database through the database
// manager, creates the tables of models (User and Article when none are
// given) and returns a data context bound to it. Everything is closed when
// the test ends.
func Open(t testing.TB, models ...interface{}) *database.DataContext {
	t.Helper()
	dc, _ := OpenWithManager(t, models...)
	return dc
}

// OpenWithManager is Open that also returns the connection manager.
func OpenWithManager(t testing.TB, models ...interface{}) (*database.DataContext, database.AbstractDatabaseManager) {
	t.Helper()
	ctx := context.Background()

	manager := database.NewDatabaseManager(&database.ConnectionConfig{
		Type:         "sqlite",
		DBName:       fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	if len(models) == 0 {
		models = []interface{}{(*User)(nil), (*Article)(nil)}
	}
	registry := database.NewModelRegistry()
	for i, model := range models {
		registry.Register(database.NewModelAdapter(model, i))
	}
	require.NoError(t, database.CreateTables(ctx, manager.GetDB(), registry))

	dc, err := database.NewDataContext(manager.GetDB())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dc.Close() })
	return dc, manager
}

// Fresh returns a second data context over the same database as dc, so tests
// can observe what actually reached the store.
func Fresh(t testing.TB, dc *database.DataContext) *database.DataContext {
	t.Helper()
	other, err := database.NewDataContext(dc.DB())
	require.NoError(t, err)
	return other
}
