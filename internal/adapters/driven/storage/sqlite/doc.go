// Package sqlite provides the durable record and manifest stores backed
// by a single SQLite database in the store directory.
//
// The database runs in WAL mode: every mutation is committed before the
// call returns, each record write is atomic, and concurrent readers are
// never blocked by the single ingestion writer. Vectors are stored as
// little-endian float32 blobs with a per-record checksum; rows failing the
// checksum on read are skipped and logged rather than failing the scan.
package sqlite
