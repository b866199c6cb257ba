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

// SoftDeletable is implemented by entities whose rows are flagged instead of
// physically removed when deleted.
type SoftDeletable interface {
	MarkDeleted()
	Deleted() bool
}

// SoftDelete is embedded into an entity to make it soft-deletable.
//
//	type Article struct {
//		bun.BaseModel `bun:"table:articles"`
//		ID    int64  `bun:"id,pk,autoincrement"`
//		Title string `bun:"title"`
//		types.SoftDelete
//	}
type SoftDelete struct {
	IsDeleted bool `bun:"is_deleted,notnull,default:false" json:"is_deleted"`
}

// MarkDeleted sets the deleted flag.
func (s *SoftDelete) MarkDeleted() { s.IsDeleted = true }

// Deleted reports whether the deleted flag is set.
func (s *SoftDelete) Deleted() bool { return s.IsDeleted }

// IsSoftDeletable reports whether values of type *T carry the soft-delete
// capability.
func IsSoftDeletable[T any]() bool {
	_, ok := any(new(T)).(SoftDeletable)
	return ok
}
