package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "askdoc.db"

// Store is a SQLite database that backs both the document and chunk stores.
type Store struct {
	db           *sql.DB
	path         string
	writeTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithWriteTimeout bounds a chunk replacement once it has started.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.askdoc/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".askdoc", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, domain.NewStorageError("open", err)
	}

	// One connection serialises writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, domain.NewStorageError("enable foreign keys", err)
	}

	s := &Store{
		db:           db,
		path:         dbPath,
		writeTimeout: domain.DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, domain.NewStorageError("migrate", err)
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

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
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
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document. CreatedAt is kept on update.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.NewInvalidInput("document.id", "missing document id")
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner, uri, title, mime_type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			uri = excluded.uri,
			title = excluded.title,
			mime_type = excluded.mime_type,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Owner, doc.URI, doc.Title, doc.MIMEType, doc.Content,
		doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return domain.NewStorageError("save document", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner, uri, title, mime_type, content, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get document", err)
	}
	return doc, nil
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return domain.NewStorageError("delete document", err)
	}
	return nil
}

// ListDocuments returns documents for an owner, or all documents when
// owner is empty, oldest first.
func (s *documentStore) ListDocuments(ctx context.Context, owner string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner, uri, title, mime_type, content, created_at, updated_at
		FROM documents
		WHERE ? = '' OR owner = ?
		ORDER BY created_at, id
	`, owner, owner)
	if err != nil {
		return nil, domain.NewStorageError("list documents", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.NewStorageError("list documents", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list documents", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Owner, &doc.URI, &doc.Title, &doc.MIMEType,
		&doc.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// ReplaceChunks deletes the document's rows and inserts the new set in one
// transaction. Once the transaction has begun it runs to completion even
// if ctx is cancelled, bounded by the store's write timeout.
func (s *chunkStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error {
	if documentID == "" {
		return domain.NewInvalidInput("document_id", "missing document id")
	}
	dims, err := vector.ValidateInputs(chunks)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.store.writeTimeout)
	defer cancel()

	tx, err := s.store.db.BeginTx(wctx, nil)
	if err != nil {
		return domain.NewStorageError("replace chunks", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(wctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return domain.NewStorageError("replace chunks", err)
	}

	stmt, err := tx.PrepareContext(wctx, `
		INSERT INTO chunks (id, document_id, idx, content, embedding, dims)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return domain.NewStorageError("replace chunks", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(wctx, uuid.New().String(), documentID, i, c.Content,
			float32SliceToBytes(c.Embedding), dims); err != nil {
			return domain.NewStorageError("replace chunks", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("replace chunks", err)
	}
	return nil
}

// Query ranks the document's chunks by exact cosine similarity to vec.
func (s *chunkStore) Query(
	ctx context.Context,
	documentID string,
	vec []float32,
	threshold float64,
	topK int,
) ([]domain.Match, error) {
	var stored int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT dims FROM chunks WHERE document_id = ? LIMIT 1", documentID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("query", err)
	}
	if err := vector.CheckDimensions(stored, vec); err != nil {
		return nil, err
	}

	chunks, err := s.GetChunks(ctx, documentID)
	if err != nil {
		return nil, domain.NewStorageError("query", err)
	}
	threshold, topK = vector.Params(threshold, topK)
	return vector.Rank(chunks, vec, threshold, topK), nil
}

// GetChunks returns the document's chunks ordered by index.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, idx, content, embedding
		FROM chunks WHERE document_id = ?
		ORDER BY idx
	`, documentID)
	if err != nil {
		return nil, domain.NewStorageError("get chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c := domain.Chunk{DocumentID: documentID}
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Index, &c.Content, &blob); err != nil {
			return nil, domain.NewStorageError("get chunks", err)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("get chunks", err)
	}
	return chunks, nil
}

// CountChunks returns the number of stored chunks for documentID.
func (s *chunkStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID).Scan(&n)
	if err != nil {
		return 0, domain.NewStorageError("count chunks", err)
	}
	return n, nil
}

// DeleteChunks removes all chunks of documentID.
func (s *chunkStore) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return domain.NewStorageError("delete chunks", err)
	}
	return nil
}

// float32SliceToBytes packs a vector as little-endian float32s.
func float32SliceToBytes(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32Slice unpacks a little-endian float32 blob.
func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
