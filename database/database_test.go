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
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type testItem struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type testTag struct {
	bun.BaseModel `bun:"table:tags"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name"`
}

type logRecord struct {
	level  LogLevel
	msg    string
	fields []interface{}
}

// recordLogger keeps every message in memory.
type recordLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *recordLogger) add(level LogLevel, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{level: level, msg: msg, fields: fields})
}

func (l *recordLogger) SetLevel(LogLevel) {}

func (l *recordLogger) Debug(msg string, fields ...interface{}) { l.add(LogLevelDebug, msg, fields) }
func (l *recordLogger) Info(msg string, fields ...interface{})  { l.add(LogLevelInfo, msg, fields) }
func (l *recordLogger) Warn(msg string, fields ...interface{})  { l.add(LogLevelWarn, msg, fields) }
func (l *recordLogger) Error(msg string, fields ...interface{}) { l.add(LogLevelError, msg, fields) }

func (l *recordLogger) messages(level LogLevel) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, r := range l.records {
		if r.level == level {
			out = append(out, r.msg)
		}
	}
	return out
}

func memoryConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:         "sqlite",
		DBName:       fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// openTestManager connects an in-memory SQLite manager with the items table.
func openTestManager(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	ctx := context.Background()
	manager := NewDatabaseManager(memoryConfig())
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*testItem)(nil), 0))
	require.NoError(t, CreateTables(ctx, manager.GetDB(), registry))
	return manager
}

func openTestContext(t *testing.T) *DataContext {
	t.Helper()
	dc, err := NewDataContext(openTestManager(t).GetDB())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

// openMockDB returns a Postgres-flavoured bun.DB over sqlmock. Inserts of
// models without database defaults go through Exec, so they can be matched
// with ExpectExec.
func openMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, mock
}
