package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

const (
	currentFile = "CURRENT"
	dbPrefix    = "corpus-"
	dbSuffix    = ".db"
)

// Store persists index generations under one directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// generationRow maps the generation table.
type generationRow struct {
	ID         string `db:"id"`
	Model      string `db:"model"`
	Dimensions int    `db:"dimensions"`
	Documents  int    `db:"documents"`
	Chunks     int    `db:"chunks"`
	Degraded   bool   `db:"degraded"`
	BuiltAt    string `db:"built_at"`
}

// documentRow maps the documents table.
type documentRow struct {
	ID           string `db:"id"`
	SourcePath   string `db:"source_path"`
	Format       string `db:"format"`
	MarkdownPath string `db:"markdown_path"`
	Size         int64  `db:"size"`
	ChunkCount   int    `db:"chunk_count"`
	ImageCount   int    `db:"image_count"`
}

// chunkRow maps the chunks table.
type chunkRow struct {
	ID          string `db:"id"`
	DocumentID  string `db:"document_id"`
	Index       int    `db:"chunk_index"`
	SourcePath  string `db:"source_path"`
	HeadingPath string `db:"heading_path"`
	Content     string `db:"content"`
	ContentHash string `db:"content_hash"`
	Overlap     int    `db:"overlap"`
	HasImages   bool   `db:"has_images"`
	ImageRefs   string `db:"image_refs"`
	Embedding   []byte `db:"embedding"`
}

// NewStore creates a store rooted at dir. If dir is empty, defaults to
// ~/.corpus/index.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".corpus", "index")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the index directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases resources. Databases are opened per call, so this is a no-op.
func (s *Store) Close() error {
	return nil
}

// Save writes gen into a new database file and then makes it current.
func (s *Store) Save(ctx context.Context, gen *driven.IndexGeneration) error {
	if gen == nil || gen.Info.Generation == "" {
		return fmt.Errorf("%w: generation id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := dbPrefix + gen.Info.Generation + dbSuffix
	path := filepath.Join(s.dir, name)
	_ = os.Remove(path)

	if err := writeGeneration(ctx, path, gen); err != nil {
		_ = os.Remove(path)
		return err
	}

	if err := writeCurrent(s.dir, name); err != nil {
		_ = os.Remove(path)
		return err
	}

	s.prune(name)
	return nil
}

// Load reads the current generation.
func (s *Store) Load(ctx context.Context) (*driven.IndexGeneration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrIndexNotBuilt
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", currentFile, err)
	}

	name := strings.TrimSpace(string(content))
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("corrupt %s pointer %q", currentFile, name)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("current generation missing: %w", err)
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return readGeneration(ctx, db)
}

func open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func writeGeneration(ctx context.Context, path string, gen *driven.IndexGeneration) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(ctx, db, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	info := gen.Info
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO generation (id, model, dimensions, documents, chunks, degraded, built_at)
		VALUES (:id, :model, :dimensions, :documents, :chunks, :degraded, :built_at)`,
		generationRow{
			ID:         info.Generation,
			Model:      info.Model,
			Dimensions: info.Dimensions,
			Documents:  info.Documents,
			Chunks:     info.Chunks,
			Degraded:   info.Degraded,
			BuiltAt:    info.BuiltAt.UTC().Format(time.RFC3339Nano),
		})
	if err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}

	for _, doc := range gen.Documents {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO documents (id, source_path, format, markdown_path, size, chunk_count, image_count)
			VALUES (:id, :source_path, :format, :markdown_path, :size, :chunk_count, :image_count)`,
			documentRow{
				ID:           doc.ID,
				SourcePath:   doc.SourcePath,
				Format:       string(doc.Format),
				MarkdownPath: doc.MarkdownPath,
				Size:         doc.Size,
				ChunkCount:   doc.ChunkCount,
				ImageCount:   doc.ImageCount,
			})
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	for _, rec := range gen.Records {
		row, err := toChunkRow(rec)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, source_path, heading_path, content,
				content_hash, overlap, has_images, image_refs, embedding)
			VALUES (:id, :document_id, :chunk_index, :source_path, :heading_path, :content,
				:content_hash, :overlap, :has_images, :image_refs, :embedding)`, row)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", rec.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing generation: %w", err)
	}
	return nil
}

func readGeneration(ctx context.Context, db *sqlx.DB) (*driven.IndexGeneration, error) {
	var genRow generationRow
	if err := db.GetContext(ctx, &genRow, `SELECT * FROM generation LIMIT 1`); err != nil {
		return nil, fmt.Errorf("reading generation: %w", err)
	}
	builtAt, err := time.Parse(time.RFC3339Nano, genRow.BuiltAt)
	if err != nil {
		return nil, fmt.Errorf("parsing built_at: %w", err)
	}

	var docRows []documentRow
	if err := db.SelectContext(ctx, &docRows, `SELECT * FROM documents ORDER BY source_path`); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	var chunkRows []chunkRow
	if err := db.SelectContext(ctx, &chunkRows,
		`SELECT * FROM chunks ORDER BY source_path, chunk_index`); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}

	gen := &driven.IndexGeneration{
		Info: domain.IndexInfo{
			Generation: genRow.ID,
			Model:      genRow.Model,
			Dimensions: genRow.Dimensions,
			Documents:  genRow.Documents,
			Chunks:     genRow.Chunks,
			Degraded:   genRow.Degraded,
			BuiltAt:    builtAt,
		},
		Documents: make([]domain.DocumentInfo, 0, len(docRows)),
		Records:   make([]driven.IndexRecord, 0, len(chunkRows)),
	}
	for _, d := range docRows {
		gen.Documents = append(gen.Documents, domain.DocumentInfo{
			ID:           d.ID,
			SourcePath:   d.SourcePath,
			Format:       domain.Format(d.Format),
			MarkdownPath: d.MarkdownPath,
			Size:         d.Size,
			ChunkCount:   d.ChunkCount,
			ImageCount:   d.ImageCount,
		})
	}
	for _, c := range chunkRows {
		rec, err := fromChunkRow(c)
		if err != nil {
			return nil, err
		}
		gen.Records = append(gen.Records, rec)
	}

	return gen, nil
}

func toChunkRow(rec driven.IndexRecord) (chunkRow, error) {
	c := rec.Chunk
	headingPath := c.HeadingPath
	if headingPath == nil {
		headingPath = []string{}
	}
	headingJSON, err := json.Marshal(headingPath)
	if err != nil {
		return chunkRow{}, fmt.Errorf("marshalling heading path: %w", err)
	}
	refs := c.ImageRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return chunkRow{}, fmt.Errorf("marshalling image refs: %w", err)
	}

	return chunkRow{
		ID:          c.ID,
		DocumentID:  c.DocumentID,
		Index:       c.Index,
		SourcePath:  c.SourcePath,
		HeadingPath: string(headingJSON),
		Content:     c.Content,
		ContentHash: c.ContentHash,
		Overlap:     c.Overlap,
		HasImages:   c.HasImages,
		ImageRefs:   string(refsJSON),
		Embedding:   float32SliceToBytes(rec.Vector),
	}, nil
}

func fromChunkRow(r chunkRow) (driven.IndexRecord, error) {
	chunk := domain.Chunk{
		ID:          r.ID,
		DocumentID:  r.DocumentID,
		Index:       r.Index,
		SourcePath:  r.SourcePath,
		Content:     r.Content,
		ContentHash: r.ContentHash,
		Overlap:     r.Overlap,
		HasImages:   r.HasImages,
	}
	if err := json.Unmarshal([]byte(r.HeadingPath), &chunk.HeadingPath); err != nil {
		return driven.IndexRecord{}, fmt.Errorf("unmarshaling heading path of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ImageRefs), &chunk.ImageRefs); err != nil {
		return driven.IndexRecord{}, fmt.Errorf("unmarshaling image refs of %s: %w", r.ID, err)
	}
	if len(chunk.ImageRefs) == 0 {
		chunk.ImageRefs = nil
	}
	return driven.IndexRecord{Chunk: chunk, Vector: bytesToFloat32Slice(r.Embedding)}, nil
}

// migrate runs all pending migrations.
func migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := db.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
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
		// "001_corpus_index.up.sql" -> 1
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
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// writeCurrent replaces the CURRENT pointer atomically.
func writeCurrent(dir, name string) error {
	tmp, err := os.CreateTemp(dir, currentFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating pointer: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(name + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing pointer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing pointer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing pointer: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, currentFile)); err != nil {
		return fmt.Errorf("committing pointer: %w", err)
	}
	return nil
}

// prune removes database files other than keep.
func (s *Store) prune(keep string) {
	matches, err := filepath.Glob(filepath.Join(s.dir, dbPrefix+"*"+dbSuffix))
	if err != nil {
		return
	}
	for _, m := range matches {
		if filepath.Base(m) == keep {
			continue
		}
		if err := os.Remove(m); err != nil {
			logger.Debug("Could not remove old generation %s: %v", m, err)
		}
	}
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
