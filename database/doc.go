// Package database provides the data context that stages entity changes and
// commits them in one transaction, plus connection management, configuration,
// logging, query hooks, SQL error classification and table bootstrap built on
// top of Bun.
package database
