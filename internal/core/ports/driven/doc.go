// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the record store, the vector index, the
// embedding provider and the document loader. Core services depend on
// these interfaces; adapters implement them.
package driven
