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

import "errors"

var (
	// ErrMultipleResults is returned by single-row lookups matching more than one row.
	ErrMultipleResults = errors.New("repository: more than one row matches")
	// ErrNotFound is returned by DeleteByID when the id does not resolve to a row.
	ErrNotFound = errors.New("repository: entity not found")
	// ErrNoPrimaryKey is returned when the entity type does not map to exactly
	// one primary key column.
	ErrNoPrimaryKey = errors.New("repository: entity must have exactly one primary key")
)
