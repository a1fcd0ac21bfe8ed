// Package internal documents the event API internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, cache metadata, problem responses and routing
// - domain: date range resolution, record queries and normalization
// - storage: record stores (Postgres via pgx and squirrel, in-memory)
// - cache: response cache stores (in-memory, Redis)
// - config, i18n, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
