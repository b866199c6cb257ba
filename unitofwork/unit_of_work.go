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

package unitofwork

import (
	"context"

	"github.com/tomoncle/entitycore/database"
)

// UnitOfWork commits every change staged in its data context.
type UnitOfWork interface {
	// Save writes the staged changes in one transaction and returns the
	// number of affected rows. Store errors are returned unchanged.
	Save(ctx context.Context) (int, error)

	// Context returns the bound data context.
	Context() *database.DataContext
}

type baseUnitOfWorkImpl struct {
	dc *database.DataContext
}

// New returns a unit of work bound to dc.
func New(dc *database.DataContext) (UnitOfWork, error) {
	if dc == nil {
		return nil, database.ErrNilContext
	}
	return &baseUnitOfWorkImpl{dc: dc}, nil
}

func (u *baseUnitOfWorkImpl) Save(ctx context.Context) (int, error) {
	return u.dc.SaveChanges(ctx)
}

func (u *baseUnitOfWorkImpl) Context() *database.DataContext { return u.dc }
