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
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes every QueryHook and SlowQueryHook while b is true.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

var otherOperationColor = color.New(color.FgRed)

func formatOperation(event *bun.QueryEvent) string {
	c, ok := operationColors[event.Operation()]
	if !ok {
		c = otherOperationColor
	}
	return c.Sprint(event.Query)
}

// QueryHook prints executed queries to a writer. Unless Verbose is set only
// failed queries are printed; sql.ErrNoRows and sql.ErrTxDone are not
// considered failures. The environment variable named by EnvName overrides
// the flags: "0" or "" disables, "1" enables, "2" enables verbose.
type QueryHook struct {
	EnvName string
	Enabled bool
	Verbose bool
	Writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns an enabled hook writing to os.Stderr.
func NewQueryHook(verbose bool) *QueryHook {
	return &QueryHook{EnvName: "BUNDEBUG", Enabled: true, Verbose: verbose, Writer: os.Stderr}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.Enabled, h.Verbose
	if h.EnvName != "" {
		if env, ok := os.LookupEnv(h.EnvName); ok {
			enabled = env != "" && env != "0"
			verbose = env == "2"
		}
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		color.New(color.FgCyan).Sprintf("%8s", "[BUN]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		formatOperation(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, color.New(color.BgRed).Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer(), args...)
}

func (h *QueryHook) writer() io.Writer {
	if h.Writer == nil {
		return os.Stderr
	}
	return h.Writer
}

// SlowQueryHook warns through a Logger about successful queries slower than
// SlowTime.
type SlowQueryHook struct {
	SlowTime time.Duration
	Logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil || h.Logger == nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.SlowTime {
		h.Logger.Warn(color.YellowString("Database slow query detected"),
			"duration", duration,
			"slow_threshold", h.SlowTime,
			"query", event.Query,
		)
	}
}
