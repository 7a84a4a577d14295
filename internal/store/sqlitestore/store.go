// Package sqlitestore is the relational Store: documents and their
// chunks, persisted in a single SQLite database file. It is the
// source of truth; the optional Qdrant ANN mirror in qdrantindex only
// ever rebuilds from what is written here.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/internal/store/sqlitestore/migrations"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Store struct {
	db     *sql.DB
	logger *logger_i.Logger

	docLocksMu sync.Mutex
	docLocks   map[string]*sync.Mutex
}

// NewStore opens (creating if absent) the SQLite database file under
// dataDir and runs any pending migrations. WAL mode plus a busy_timeout
// let the ingest worker pool and the query path share one file without
// SQLITE_BUSY errors under light concurrency; foreign_keys is required
// per-connection for the chunk cascade delete to take effect.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		filepath.Join(dataDir, "onboardrag.db"),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:       db,
		logger:   logger_i.NewLogger("sqlitestore"),
		docLocks: make(map[string]*sync.Mutex),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return fmt.Errorf("parse migration version from %s: %w", name, err)
		}
		if version <= current {
			continue
		}
		sqlBytes, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		s.logger.Info("applied migration", "file", name)
	}
	return nil
}

// lockFor returns the in-process mutex guarding a single document's
// chunk rows. SQLite has no advisory lock; this substitutes for one so
// a reprocess and a concurrent delete of the same document can never
// interleave their writes.
func (s *Store) lockFor(documentID string) *sync.Mutex {
	s.docLocksMu.Lock()
	defer s.docLocksMu.Unlock()
	m, ok := s.docLocks[documentID]
	if !ok {
		m = &sync.Mutex{}
		s.docLocks[documentID] = m
	}
	return m
}

func (s *Store) InsertDocument(ctx context.Context, doc ragModel.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return ragerr.New(ragerr.Internal, "marshal document metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, document_title, document_content, tag_id, author, page_count, word_count, metadata, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Text, nullable(doc.TagID), nullable(doc.Author), doc.PageCount, doc.WordCount, string(metadataJSON), doc.UploadedAt,
	)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "insert document", err)
	}
	return nil
}

// BulkInsertChunks inserts every chunk for a document in one
// transaction: a partially-embedded chunk set must never become
// partially visible.
func (s *Store) BulkInsertChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()
	return s.insertChunksTx(ctx, chunks)
}

func (s *Store) insertChunksTx(ctx context.Context, chunks []ragModel.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (chunk_id, document_id, chunk_text, chunk_index, token_count, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "prepare chunk insert", err)
	}
	defer stmt.Close()

	now := chunkTimestamp()
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return ragerr.New(ragerr.Internal, "marshal chunk metadata", err)
		}
		var embeddingBytes []byte
		if c.Embedding != nil {
			embeddingBytes = float32SliceToBytes(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Text, c.Index, c.TokenCount, embeddingBytes, string(metadataJSON), now); err != nil {
			return ragerr.New(ragerr.StoreError, "insert chunk", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ragerr.New(ragerr.StoreError, "commit chunk insert", err)
	}
	return nil
}

// ReplaceChunks atomically swaps a document's chunk set: delete then
// insert inside one transaction, guarded by the document's lock so a
// concurrent delete of the same document cannot observe a half state.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return ragerr.New(ragerr.StoreError, "delete existing chunks", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (chunk_id, document_id, chunk_text, chunk_index, token_count, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "prepare chunk insert", err)
	}
	defer stmt.Close()

	now := chunkTimestamp()
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return ragerr.New(ragerr.Internal, "marshal chunk metadata", err)
		}
		var embeddingBytes []byte
		if c.Embedding != nil {
			embeddingBytes = float32SliceToBytes(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, documentID, c.Text, c.Index, c.TokenCount, embeddingBytes, string(metadataJSON), now); err != nil {
			return ragerr.New(ragerr.StoreError, "insert chunk", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ragerr.New(ragerr.StoreError, "commit chunk replace", err)
	}
	return nil
}

// DeleteDocument removes the document row; document_chunks cascades
// via the foreign key. The explicit chunk delete runs first anyway so
// the behavior does not depend on foreign_keys having been enabled on
// every connection in the pool.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return ragerr.New(ragerr.StoreError, "delete chunks", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE document_id = ?`, documentID)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "delete document", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ragerr.New(ragerr.NotFound, "document not found", nil)
	}
	if err := tx.Commit(); err != nil {
		return ragerr.New(ragerr.StoreError, "commit delete", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (ragModel.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, document_title, document_content, tag_id, author, page_count, word_count, metadata, uploaded_at
		FROM documents WHERE document_id = ?`, documentID)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return ragModel.Document{}, ragerr.New(ragerr.NotFound, "document not found", nil)
		}
		return ragModel.Document{}, ragerr.New(ragerr.StoreError, "get document", err)
	}
	return doc, nil
}

// DocumentStats pairs a Document with its chunk count, for listing.
type DocumentStats struct {
	Document            ragModel.Document
	ChunkCount          int
	ChunksWithEmbedding int
}

func (s *Store) ListDocumentsWithStats(ctx context.Context) ([]DocumentStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.document_id, d.document_title, d.document_content, d.tag_id, d.author, d.page_count, d.word_count, d.metadata, d.uploaded_at,
		       COUNT(c.chunk_id) AS chunk_count,
		       COUNT(c.embedding) AS chunks_with_embedding
		FROM documents d
		LEFT JOIN document_chunks c ON c.document_id = d.document_id
		GROUP BY d.document_id
		ORDER BY d.uploaded_at DESC`)
	if err != nil {
		return nil, ragerr.New(ragerr.StoreError, "list documents", err)
	}
	defer rows.Close()

	var out []DocumentStats
	for rows.Next() {
		var (
			doc                 ragModel.Document
			tagID, author       sql.NullString
			metadataJSON        string
			chunkCount          int
			chunksWithEmbedding int
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text, &tagID, &author, &doc.PageCount, &doc.WordCount, &metadataJSON, &doc.UploadedAt, &chunkCount, &chunksWithEmbedding); err != nil {
			return nil, ragerr.New(ragerr.StoreError, "scan document row", err)
		}
		doc.TagID = tagID.String
		doc.Author = author.String
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, ragerr.New(ragerr.Internal, "unmarshal document metadata", err)
		}
		out = append(out, DocumentStats{Document: doc, ChunkCount: chunkCount, ChunksWithEmbedding: chunksWithEmbedding})
	}
	if err := rows.Err(); err != nil {
		return nil, ragerr.New(ragerr.StoreError, "list documents", err)
	}
	return out, nil
}

// GetAllChunksWithEmbeddings scans every embedded chunk and calls
// visit once per row as it is read, at any corpus size, so no slice of
// the whole embedded chunk set is built. streamThreshold only decides
// when the scan is logged as a streaming scan.
func (s *Store) GetAllChunksWithEmbeddings(ctx context.Context, streamThreshold int, visit func(ragModel.Chunk) error) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE embedding IS NOT NULL`).Scan(&count); err != nil {
		return ragerr.New(ragerr.StoreError, "count embedded chunks", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.document_id, c.chunk_text, c.chunk_index, c.token_count, c.embedding, c.metadata
		FROM document_chunks c
		WHERE c.embedding IS NOT NULL`)
	if err != nil {
		return ragerr.New(ragerr.StoreError, "scan embedded chunks", err)
	}
	defer rows.Close()

	if count > streamThreshold {
		s.logger.Info("streaming chunk scan", "count", count, "threshold", streamThreshold)
	}

	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return ragerr.New(ragerr.StoreError, "scan chunk row", err)
		}
		if err := visit(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return ragerr.New(ragerr.StoreError, "scan embedded chunks", err)
	}
	return nil
}

func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]ragModel.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, chunk_text, chunk_index, token_count, embedding, metadata
		FROM document_chunks WHERE document_id = ? ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, ragerr.New(ragerr.StoreError, "get chunks by document", err)
	}
	defer rows.Close()

	var out []ragModel.Chunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, ragerr.New(ragerr.StoreError, "scan chunk row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (ragModel.Document, error) {
	var (
		doc           ragModel.Document
		tagID, author sql.NullString
		metadataJSON  string
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Text, &tagID, &author, &doc.PageCount, &doc.WordCount, &metadataJSON, &doc.UploadedAt); err != nil {
		return ragModel.Document{}, err
	}
	doc.TagID = tagID.String
	doc.Author = author.String
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return ragModel.Document{}, err
	}
	return doc, nil
}

func scanChunkRow(row rowScanner) (ragModel.Chunk, error) {
	var (
		c            ragModel.Chunk
		embeddingRaw []byte
		metadataJSON string
	)
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &c.TokenCount, &embeddingRaw, &metadataJSON); err != nil {
		return ragModel.Chunk{}, err
	}
	if embeddingRaw != nil {
		c.Embedding = bytesToFloat32Slice(embeddingRaw)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
		return ragModel.Chunk{}, err
	}
	return c, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func float32SliceToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func chunkTimestamp() time.Time { return time.Now() }
