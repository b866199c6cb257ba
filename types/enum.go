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

package types

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// EntityState is the change-tracking state of an entity inside a data context.
type EntityState int

const (
	Unchanged EntityState = iota
	Added
	Modified
	Deleted
)

var _ BaseEnum = Unchanged

var entityStateNames = [...]string{"unchanged", "added", "modified", "deleted"}

var entityStateDescs = [...]string{
	"not tracked for the next commit",
	"inserted on the next commit",
	"fully updated on the next commit",
	"removed on the next commit",
}

func (s EntityState) IsValid() bool {
	return s >= Unchanged && s <= Deleted
}

func (s EntityState) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s EntityState) Name() string {
	if !s.IsValid() {
		return IllegalName
	}
	return entityStateNames[s]
}

func (s EntityState) String() string { return s.Name() }

func (s EntityState) Desc() string {
	if !s.IsValid() {
		return IllegalDesc
	}
	return entityStateDescs[s]
}
