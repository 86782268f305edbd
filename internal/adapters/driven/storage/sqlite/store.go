package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// dimensionKey is the store_meta key holding the fixed vector dimension.
const dimensionKey = "dimension"

// Store is the SQLite-backed storage providing the record and manifest
// store interfaces through wrapper types. The store directory is
// self-contained and re-openable; a missing directory is created, which
// makes its absence equivalent to an empty store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates or reopens the store at the specified data directory.
// If dataDir is empty, defaults to ~/.recall/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "records.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// ManifestStore returns a ManifestStore interface backed by this store.
func (s *Store) ManifestStore() driven.ManifestStore {
	return &manifestStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Put inserts or overwrites a record by ID. The store dimension is fixed
// by the first insert; later writes with a different vector length fail
// with domain.ErrDimensionMismatch.
func (s *recordStore) Put(ctx context.Context, record domain.VectorRecord) error {
	if record.ID == "" || len(record.Vector) == 0 {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	vectorBlob := float32SliceToBytes(record.Vector)

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dimension, err := readDimension(ctx, tx)
	if err != nil {
		return err
	}

	switch {
	case dimension == 0:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO store_meta (key, value) VALUES (?, ?)",
			dimensionKey, strconv.Itoa(len(record.Vector)))
		if err != nil {
			return fmt.Errorf("fixing store dimension: %w", err)
		}
	case dimension != len(record.Vector):
		return fmt.Errorf("%w: store dimension %d, vector dimension %d",
			domain.ErrDimensionMismatch, dimension, len(record.Vector))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, source_id, chunk_index, start_offset, end_offset, content, vector, metadata, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			chunk_index = excluded.chunk_index,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			content = excluded.content,
			vector = excluded.vector,
			metadata = excluded.metadata,
			checksum = excluded.checksum
	`, record.ID, record.SourceID, record.ChunkIndex, record.Start, record.End,
		record.Text, vectorBlob, string(metadataJSON), recordChecksum(vectorBlob, record.Text))

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *recordStore) Get(ctx context.Context, id string) (*domain.VectorRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, chunk_index, start_offset, end_offset, content, vector, metadata, checksum
		FROM records WHERE id = ?
	`, id)

	record, err := scanRecordRow(row)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes one record by ID. Absent IDs are a no-op.
func (s *recordStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// DeleteBySource removes all records owned by the source.
func (s *recordStore) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	result, err := s.store.db.ExecContext(ctx,
		"DELETE FROM records WHERE source_id = ?", sourceID)
	if err != nil {
		return 0, fmt.Errorf("deleting records for source: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed records: %w", err)
	}
	return int(removed), nil
}

// Scan iterates records matching the optional predicate in storage order.
// Corrupt rows are skipped and logged; they never abort the scan.
func (s *recordStore) Scan(
	ctx context.Context, p domain.Predicate, fn func(domain.VectorRecord) error,
) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, chunk_index, start_offset, end_offset, content, vector, metadata, checksum
		FROM records ORDER BY rowid
	`)
	if err != nil {
		return fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			if errors.Is(err, domain.ErrCorruptRecord) {
				logger.Warn("Skipping corrupt record: %v", err)
				continue
			}
			return err
		}

		if !p.Matches(record.Metadata) {
			continue
		}

		if err := fn(*record); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *recordStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// Dimension returns the fixed vector dimension, or 0 for an empty store.
func (s *recordStore) Dimension(ctx context.Context) (int, error) {
	return readDimension(ctx, s.store.db)
}

// Close closes the underlying store.
func (s *recordStore) Close() error {
	return s.store.Close()
}

// ==================== Manifest Store ====================

// manifestStore implements driven.ManifestStore.
type manifestStore struct {
	store *Store
}

var _ driven.ManifestStore = (*manifestStore)(nil)

// SaveManifest stores or updates a source manifest.
func (s *manifestStore) SaveManifest(ctx context.Context, m domain.SourceManifest) error {
	if m.SourceID == "" {
		return domain.ErrInvalidInput
	}

	if m.LastIngestedAt.IsZero() {
		m.LastIngestedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO manifests (source_id, content_hash, chunk_count, last_ingested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			last_ingested_at = excluded.last_ingested_at
	`, m.SourceID, m.ContentHash, m.ChunkCount, m.LastIngestedAt)

	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// GetManifest retrieves the manifest for a source.
func (s *manifestStore) GetManifest(ctx context.Context, sourceID string) (*domain.SourceManifest, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, content_hash, chunk_count, last_ingested_at
		FROM manifests WHERE source_id = ?
	`, sourceID)

	var m domain.SourceManifest
	var lastIngested sql.NullTime
	if err := row.Scan(&m.SourceID, &m.ContentHash, &m.ChunkCount, &lastIngested); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	if lastIngested.Valid {
		m.LastIngestedAt = lastIngested.Time
	}

	return &m, nil
}

// ListManifests returns all manifests ordered by source ID.
func (s *manifestStore) ListManifests(ctx context.Context) ([]domain.SourceManifest, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, content_hash, chunk_count, last_ingested_at
		FROM manifests ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer rows.Close()

	var manifests []domain.SourceManifest //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.SourceManifest
		var lastIngested sql.NullTime
		if err := rows.Scan(&m.SourceID, &m.ContentHash, &m.ChunkCount, &lastIngested); err != nil {
			return nil, fmt.Errorf("scanning manifest: %w", err)
		}
		if lastIngested.Valid {
			m.LastIngestedAt = lastIngested.Time
		}
		manifests = append(manifests, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifests: %w", err)
	}

	return manifests, nil
}

// DeleteManifest removes the manifest for a source.
func (s *manifestStore) DeleteManifest(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM manifests WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting manifest: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readDimension reads the fixed store dimension, 0 when not yet set.
func readDimension(ctx context.Context, q querier) (int, error) {
	var value string
	err := q.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE key = ?", dimensionKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading store dimension: %w", err)
	}

	dimension, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing store dimension: %w", err)
	}
	return dimension, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// recordChecksum is the integrity digest stored with each record.
func recordChecksum(vectorBlob []byte, content string) string {
	h := sha256.New()
	h.Write(vectorBlob)
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one record and verifies its checksum.
func scanRecord(scanner rowScanner) (*domain.VectorRecord, error) {
	var record domain.VectorRecord
	var vectorBlob []byte
	var metadataJSON, checksum string

	if err := scanner.Scan(&record.ID, &record.SourceID, &record.ChunkIndex,
		&record.Start, &record.End, &record.Text, &vectorBlob, &metadataJSON, &checksum); err != nil {
		return nil, err
	}

	if recordChecksum(vectorBlob, record.Text) != checksum {
		return nil, fmt.Errorf("%w: record %s", domain.ErrCorruptRecord, record.ID)
	}

	record.Vector = bytesToFloat32Slice(vectorBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &record, nil
}

// scanRecordRow scans a record from *sql.Row.
func scanRecordRow(row *sql.Row) (*domain.VectorRecord, error) {
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrCorruptRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return record, nil
}

// scanRecordRows scans a record from *sql.Rows.
func scanRecordRows(rows *sql.Rows) (*domain.VectorRecord, error) {
	record, err := scanRecord(rows)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return record, nil
}
