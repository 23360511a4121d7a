// Package store persists workflow context snapshots.
//
// A snapshot is the opaque byte slice produced by workflow.Context.Snapshot.
// Stores only move bytes around; encoding stays with the workflow package.
// Three implementations are provided:
//
//   - Memory: process-local map, for tests and single-process programs
//   - SQLite: database/sql over any SQLite driver (e.g. modernc.org/sqlite)
//   - Redis: github.com/redis/go-redis/v9 with key prefix and optional TTL
//
// All implementations are safe for concurrent use.
package store
