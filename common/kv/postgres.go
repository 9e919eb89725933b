package kv

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/john-rice/gitbutler/common/logger"
)

// PostgresStore keeps each record as a set of rows in the branch_kv table.
// A store replaces the record's rows inside one transaction.
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
	log       *logger.Logger
}

// NewPostgresStore creates a Postgres-backed store scoped to namespace
func NewPostgresStore(pool *pgxpool.Pool, namespace string, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		pool:      pool,
		namespace: namespace,
		log:       log,
	}
}

// InitSchema creates the backing table if it does not exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS branch_kv (
			namespace TEXT NOT NULL,
			record    TEXT NOT NULL,
			key       TEXT NOT NULL,
			value     BYTEA NOT NULL,
			utf8      BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (namespace, record, key)
		)
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create branch_kv table: %w", err)
	}

	s.log.Info("branch_kv schema ready", "namespace", s.namespace)
	return nil
}

// Reader opens a snapshot of the record at root
func (s *PostgresStore) Reader(ctx context.Context, root string) (Reader, error) {
	query := `
		SELECT key, value, utf8
		FROM branch_kv
		WHERE namespace = $1 AND record = $2
	`

	rows, err := s.pool.Query(ctx, query, s.namespace, root)
	if err != nil {
		s.log.Error("record query failed", "record", root, "error", err)
		return nil, fmt.Errorf("failed to read record %s: %w", root, err)
	}
	defer rows.Close()

	snapshot := make(map[string]Content)
	for rows.Next() {
		var (
			key    string
			value  []byte
			isUTF8 bool
		)
		if err := rows.Scan(&key, &value, &isUTF8); err != nil {
			return nil, fmt.Errorf("failed to scan record %s: %w", root, err)
		}
		if isUTF8 {
			snapshot[key] = UTF8(string(value))
		} else {
			snapshot[key] = Binary(value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", root, err)
	}

	if len(snapshot) == 0 {
		s.log.Debug("record not found", "record", root)
		return nil, ErrNotFound
	}

	s.log.Debug("record read", "record", root, "field_count", len(snapshot))
	return NewSnapshotReader(snapshot), nil
}

// Writer returns a writer for the record at root
func (s *PostgresStore) Writer(root string) Writer {
	return &postgresWriter{store: s, root: root}
}

// Delete removes the record at root
func (s *PostgresStore) Delete(ctx context.Context, root string) error {
	query := `DELETE FROM branch_kv WHERE namespace = $1 AND record = $2`

	if _, err := s.pool.Exec(ctx, query, s.namespace, root); err != nil {
		s.log.Error("record delete failed", "record", root, "error", err)
		return fmt.Errorf("failed to delete record %s: %w", root, err)
	}

	s.log.Debug("record deleted", "record", root)
	return nil
}

// List returns the roots of all records in the namespace
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT record
		FROM branch_kv
		WHERE namespace = $1
		ORDER BY record
	`

	rows, err := s.pool.Query(ctx, query, s.namespace)
	if err != nil {
		s.log.Error("record list failed", "namespace", s.namespace, "error", err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan record root: %w", err)
		}
		roots = append(roots, root)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return roots, nil
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type postgresWriter struct {
	store *PostgresStore
	root  string
}

func (w *postgresWriter) Write(ctx context.Context, fields map[string]Content) error {
	tx, err := w.store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin record write %s: %w", w.root, err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := `DELETE FROM branch_kv WHERE namespace = $1 AND record = $2`
	if _, err := tx.Exec(ctx, deleteQuery, w.store.namespace, w.root); err != nil {
		return fmt.Errorf("failed to clear record %s: %w", w.root, err)
	}

	insertQuery := `
		INSERT INTO branch_kv (namespace, record, key, value, utf8)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for key, content := range fields {
		batch.Queue(insertQuery, w.store.namespace, w.root, key, content.Bytes(), content.IsUTF8())
	}

	results := tx.SendBatch(ctx, batch)
	for range fields {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to write record %s: %w", w.root, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to write record %s: %w", w.root, err)
	}

	if err := tx.Commit(ctx); err != nil {
		w.store.log.Error("record write commit failed", "record", w.root, "error", err)
		return fmt.Errorf("failed to commit record %s: %w", w.root, err)
	}

	w.store.log.Debug("record written", "record", w.root, "field_count", len(fields))
	return nil
}
