// Package entitycore is a generic data-access layer over Bun: a Manager
// composes a repository and a unit of work bound to one database.DataContext
// so application code can query, stage and commit any entity type without
// per-entity data-access code.
//
//	dc, err := database.NewDataContext(db)
//	users, err := entitycore.NewManager[User](dc)
//	err = users.Add(ctx, &User{Name: "A"})                          // saved
//	err = users.Add(ctx, &User{Name: "B"}, entitycore.WithoutSave()) // staged
//	n, err := users.Save(ctx)
package entitycore
