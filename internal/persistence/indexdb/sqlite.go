package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex remembers which structure files were compiled with which
// options, so unchanged inputs can be skipped on the next run.
//
// Reads are synchronous; writes go through a single writer goroutine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan BuildRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// BuildRow is one compiled source file.
type BuildRow struct {
	Source       string
	SourceSHA256 string
	ConfigDigest string
	Output       string
	DataVersion  int32
	Lines        int
	Skipped      int
	CompiledAt   string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan BuildRow, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			source_path TEXT PRIMARY KEY,
			source_sha256 TEXT NOT NULL,
			config_digest TEXT NOT NULL,
			output_path TEXT NOT NULL,
			data_version INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			compiled_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_sha ON builds(source_sha256);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Lookup returns the last recorded build of source, if any. Rows still
// queued in the writer are not visible yet.
func (s *SQLiteIndex) Lookup(ctx context.Context, source string) (BuildRow, bool, error) {
	if s == nil || s.closed.Load() {
		return BuildRow{}, false, nil
	}
	var r BuildRow
	row := s.db.QueryRowContext(ctx, `SELECT source_path,source_sha256,config_digest,output_path,data_version,lines,skipped,compiled_at
		FROM builds WHERE source_path=?`, source)
	err := row.Scan(&r.Source, &r.SourceSHA256, &r.ConfigDigest, &r.Output, &r.DataVersion, &r.Lines, &r.Skipped, &r.CompiledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRow{}, false, nil
	}
	if err != nil {
		return BuildRow{}, false, err
	}
	return r, true, nil
}

// RecordBuild queues r for the writer. It never blocks; rows are dropped if
// the writer falls behind, which only costs a recompile next run.
func (s *SQLiteIndex) RecordBuild(r BuildRow) {
	if s == nil || s.closed.Load() || r.Source == "" {
		return
	}
	if r.CompiledAt == "" {
		r.CompiledAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- r:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertBuild, _ := s.db.Prepare(`INSERT OR REPLACE INTO builds(source_path,source_sha256,config_digest,output_path,data_version,lines,skipped,compiled_at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertBuild != nil {
			_ = insertBuild.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if insertBuild == nil {
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		if _, err := tx.Stmt(insertBuild).Exec(
			r.Source,
			r.SourceSHA256,
			r.ConfigDigest,
			r.Output,
			r.DataVersion,
			r.Lines,
			r.Skipped,
			r.CompiledAt,
		); err != nil {
			rollback()
			continue
		}
		opCount++
		// Commit once the queue drains: Lookup shares the single connection.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
