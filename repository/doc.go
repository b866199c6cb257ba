// Package repository provides a generic repository built on a
// database.DataContext: materialized and lazy queries, strict single-row
// lookups, pagination, and staging of inserts, updates and (soft) deletes
// that are written when the context is saved.
package repository
