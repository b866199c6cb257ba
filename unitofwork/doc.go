// Package unitofwork commits the changes staged in a database.DataContext.
package unitofwork
