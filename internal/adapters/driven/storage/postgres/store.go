package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// Store is a Postgres database that backs both the document and chunk stores.
type Store struct {
	pool         *pgxpool.Pool
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

// New connects to databaseURL, runs pending migrations and returns the store.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	if databaseURL == "" {
		return nil, domain.NewInvalidInput("storage.database_url", "postgres backend needs a database URL")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, domain.NewStorageError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.NewStorageError("connect", err)
	}

	s := &Store{pool: pool, writeTimeout: domain.DefaultWriteTimeout}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, domain.NewStorageError("migrate", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
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
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").
		Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	names, err := upMigrations(fsys)
	if err != nil {
		return err
	}

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("executing migration %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
				return fmt.Errorf("recording migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// upMigrations lists the .up.sql files of fsys in version order.
func upMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ==================== Document Store ====================

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

	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO documents (id, owner, uri, title, mime_type, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			uri = EXCLUDED.uri,
			title = EXCLUDED.title,
			mime_type = EXCLUDED.mime_type,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
	`, doc.ID, doc.Owner, doc.URI, doc.Title, doc.MIMEType, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return domain.NewStorageError("save document", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.pool.QueryRow(ctx, `
		SELECT id, owner, uri, title, mime_type, content, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get document", err)
	}
	return doc, nil
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id); err != nil {
		return domain.NewStorageError("delete document", err)
	}
	return nil
}

// ListDocuments returns documents for an owner, or all when owner is empty.
func (s *documentStore) ListDocuments(ctx context.Context, owner string) ([]domain.Document, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT id, owner, uri, title, mime_type, content, created_at, updated_at
		FROM documents
		WHERE $1 = '' OR owner = $1
		ORDER BY created_at, id
	`, owner)
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

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Owner, &doc.URI, &doc.Title, &doc.MIMEType,
		&doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ==================== Chunk Store ====================

type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// ReplaceChunks deletes and reinserts the document's rows in one
// transaction that is not cancelled with ctx once it has begun.
func (s *chunkStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error {
	if documentID == "" {
		return domain.NewInvalidInput("document_id", "missing document id")
	}
	if _, err := vector.ValidateInputs(chunks); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.store.writeTimeout)
	defer cancel()

	err := pgx.BeginFunc(wctx, s.store.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(wctx, "DELETE FROM document_chunks WHERE document_id = $1", documentID); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(`
				INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding)
				VALUES ($1, $2, $3, $4, $5::vector)
			`, uuid.New().String(), documentID, i, c.Content, pgvector.NewVector(c.Embedding))
		}
		return tx.SendBatch(wctx, batch).Close()
	})
	if err != nil {
		return domain.NewStorageError("replace chunks", err)
	}
	return nil
}

// Query checks the stored dimension and ranks through match_document_chunks.
func (s *chunkStore) Query(
	ctx context.Context,
	documentID string,
	vec []float32,
	threshold float64,
	topK int,
) ([]domain.Match, error) {
	var stored int
	err := s.store.pool.QueryRow(ctx,
		"SELECT vector_dims(embedding) FROM document_chunks WHERE document_id = $1 LIMIT 1",
		documentID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("query", err)
	}
	if err := vector.CheckDimensions(stored, vec); err != nil {
		return nil, err
	}

	threshold, topK = vector.Params(threshold, topK)
	rows, err := s.store.pool.Query(ctx,
		"SELECT id, chunk_index, content, similarity FROM match_document_chunks($1::vector, $2, $3, $4)",
		pgvector.NewVector(vec), documentID, threshold, topK)
	if err != nil {
		return nil, domain.NewStorageError("query", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m := domain.Match{Chunk: domain.Chunk{DocumentID: documentID}}
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.Index, &m.Chunk.Content, &m.Similarity); err != nil {
			return nil, domain.NewStorageError("query", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("query", err)
	}
	return matches, nil
}

// GetChunks returns the document's chunks ordered by index.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT id, chunk_index, content, embedding::text
		FROM document_chunks WHERE document_id = $1
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, domain.NewStorageError("get chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c := domain.Chunk{DocumentID: documentID}
		var text string
		if err := rows.Scan(&c.ID, &c.Index, &c.Content, &text); err != nil {
			return nil, domain.NewStorageError("get chunks", err)
		}
		var v pgvector.Vector
		if err := v.Scan(text); err != nil {
			return nil, domain.NewStorageError("get chunks", err)
		}
		c.Embedding = v.Slice()
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
	if err := s.store.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM document_chunks WHERE document_id = $1", documentID).Scan(&n); err != nil {
		return 0, domain.NewStorageError("count chunks", err)
	}
	return n, nil
}

// DeleteChunks removes all chunks of documentID.
func (s *chunkStore) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", documentID); err != nil {
		return domain.NewStorageError("delete chunks", err)
	}
	return nil
}
