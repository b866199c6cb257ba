// Package types holds the entity capability contract, change-tracking states,
// query filters and pagination containers shared by the data-access packages.
package types
