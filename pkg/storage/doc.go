// Package storage manages the PostgreSQL connection pool and schema.
package storage
