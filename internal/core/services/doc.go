// Package services contains the application core: the ingestion
// orchestrator, the retrieval service and the filesystem watcher. The
// services depend only on the driven ports; adapters are wired in by the
// composition root.
package services
