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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestSqliteDSN(t *testing.T) {
	tests := map[string]string{
		"":                      "file::memory:?cache=shared",
		":memory:":              "file::memory:?cache=shared",
		"file:test?mode=memory": "file:test?mode=memory",
		"/var/lib/app/data.db":  "/var/lib/app/data.db",
		"data":                  "data.db",
	}
	for name, want := range tests {
		assert.Equal(t, want, sqliteDSN(name), name)
	}
}

func TestDatabaseManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	log := &recordLogger{}
	manager := NewDatabaseManager(memoryConfig())
	manager.SetLogger(log)
	manager.SetLogger(nil)

	assert.Error(t, manager.Ping(ctx))
	assert.Nil(t, manager.GetDB())
	status := manager.HealthCheck(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)

	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.Connect(ctx))
	assert.NotNil(t, manager.GetDB())
	assert.NotNil(t, manager.GetSQLDB())
	assert.NoError(t, manager.Ping(ctx))

	status = manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.MaxOpenConns)
	assert.Equal(t, 1, manager.GetStats().MaxOpenConns)

	require.NoError(t, manager.Reconnect(ctx))
	assert.NoError(t, manager.Ping(ctx))

	require.NoError(t, manager.Disconnect())
	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	assert.Equal(t, &DBStats{}, manager.GetStats())
	assert.Contains(t, log.messages(LogLevelInfo), "Database connected successfully")
	assert.Contains(t, log.messages(LogLevelInfo), "Database connection closed")
}

func TestDatabaseManager_ConnectUnsupported(t *testing.T) {
	manager := NewDatabaseManager(&ConnectionConfig{Type: "oracle"})
	assert.ErrorContains(t, manager.Connect(context.Background()), "unsupported database type")
	assert.Nil(t, manager.GetDB())
}

func TestDatabaseManager_HealthLoopStopsOnDisconnect(t *testing.T) {
	cfg := memoryConfig()
	cfg.HealthCheckInterval = 10 * time.Millisecond
	manager := NewDatabaseManager(cfg).(*defaultDatabaseManager)
	require.NoError(t, manager.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		manager.mu.RLock()
		defer manager.mu.RUnlock()
		return !manager.lastHealthCheck.IsZero()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, manager.Disconnect())
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	assert.Nil(t, manager.stopHealthCheck)
}

func TestDatabaseManager_HandleReconnect(t *testing.T) {
	log := &recordLogger{}
	cfg := memoryConfig()
	cfg.ReconnectInterval = time.Millisecond
	cfg.MaxReconnectTries = 2
	manager := NewDatabaseManager(cfg).(*defaultDatabaseManager)
	manager.SetLogger(log)
	t.Cleanup(func() { _ = manager.Disconnect() })

	manager.handleReconnect(context.Background())
	assert.NoError(t, manager.Ping(context.Background()))
	assert.Contains(t, log.messages(LogLevelInfo), "Reconnect succeeded")
}

func TestDatabaseManager_HandleReconnectGivesUp(t *testing.T) {
	log := &recordLogger{}
	manager := NewDatabaseManager(&ConnectionConfig{
		Type:              "oracle",
		ReconnectInterval: time.Millisecond,
		MaxReconnectTries: 2,
	}).(*defaultDatabaseManager)
	manager.SetLogger(log)

	manager.handleReconnect(context.Background())
	assert.Len(t, log.messages(LogLevelWarn), 2)
	assert.Equal(t, []string{"Max reconnect attempts reached, stopping"}, log.messages(LogLevelError))
}

type registeredWidget struct {
	bun.BaseModel `bun:"table:registered_widgets"`

	ID int64 `bun:"id,pk,autoincrement"`
}

func TestDatabaseManager_CreateTablesFromDefaultRegistry(t *testing.T) {
	ctx := context.Background()
	RegisterEntity[registeredWidget](100)
	assert.Contains(t, RegisteredModelInstances(), interface{}((*registeredWidget)(nil)))

	manager := NewDatabaseManager(memoryConfig())
	assert.Error(t, manager.CreateTables(ctx))
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	require.NoError(t, manager.CreateTables(ctx))
	require.NoError(t, manager.CreateTables(ctx))
	_, err := manager.GetDB().NewInsert().Model(&registeredWidget{}).Exec(ctx)
	assert.NoError(t, err)
}

func TestModelRegistry_OrdersByPriority(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(NewModelAdapter("c", 3))
	registry.Register(NewModelAdapter("a", 1))
	registry.Register(NewModelAdapter("b", 1))

	assert.Equal(t, []interface{}{"a", "b", "c"}, modelInstances(registry.Models()))
}

func TestInitDB(t *testing.T) {
	ctx := context.Background()
	_, err := InitDB(ctx, nil)
	assert.Error(t, err)

	cfg := &Config{ConnectionConfig: *memoryConfig()}
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
}
