// Package driving provides interfaces consumed by user-facing adapters
// (primary/inbound ports): ingestion and query. The CLI drives the core
// through these interfaces only.
package driving
