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

import (
	"github.com/tomoncle/entitycore/types"
	"github.com/uptrace/bun"
)

// applyFilter ANDs the filter, as one parenthesized group, onto q.
func applyFilter(q *bun.SelectQuery, filter *types.QueryFilter) *bun.SelectQuery {
	if filter.IsEmpty() {
		return q
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		return appendConditions(q, filter.Conditions)
	})
}

func appendConditions(q *bun.SelectQuery, conditions []types.Condition) *bun.SelectQuery {
	for _, c := range conditions {
		switch {
		case c.Group != nil:
			if c.Group.IsEmpty() {
				continue
			}
			sep := " AND "
			if c.Or {
				sep = " OR "
			}
			group := c.Group.Conditions
			q = q.WhereGroup(sep, func(q *bun.SelectQuery) *bun.SelectQuery {
				return appendConditions(q, group)
			})
		case c.Or:
			q = q.WhereOr(c.Query, c.Args...)
		default:
			q = q.Where(c.Query, c.Args...)
		}
	}
	return q
}
