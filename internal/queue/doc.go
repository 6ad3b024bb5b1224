// Package queue persists submission records in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats queries,
// priority ordering, and the status transitions shared by the intake handler,
// the upload worker, and the status reconciler. Records capture the submitter,
// the ordered attachment set, accumulated errors, and acknowledgment state so
// the three loops can coordinate without additional shared state.
//
// The database is the single source of truth for queue semantics; when you add
// new statuses or columns, update schema.sql and bump schemaVersion.
package queue
