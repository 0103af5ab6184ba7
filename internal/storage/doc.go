// Package storage holds the persistence glue that field types plug into:
// a select builder passed through load hooks, the raw row handed to hydrate
// hooks, the write queue filled by persist hooks, and deferred entity handles.
package storage
