// Package inventory implements the inventory and item CRUD surface.
//
// Every operation is scoped to the calling principal: reads outside the
// caller's scope degrade to absence (empty lists, not found), writes
// outside it are rejected as forbidden. Item ownership is always
// derived through the inventory relation. Batched item creation is
// all-or-nothing inside a single database transaction.
package inventory
