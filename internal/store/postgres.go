package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store on a Postgres documents table with a unique
// index on doc_hash.
type PostgresStore struct {
	db    *sqlx.DB
	table string
}

// NewPostgresStore opens a connection and verifies it.
func NewPostgresStore(ctx context.Context, dsn, schema, table string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	qualified := table
	if schema != "" {
		qualified = schema + "." + table
	}

	return &PostgresStore{db: db, table: qualified}, nil
}

// NewPostgresStoreFromDB wraps an existing connection, used by tests.
func NewPostgresStoreFromDB(db *sqlx.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *Document) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s
		(doc_hash, subfolder, message_id, message_category, control_category, doc_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`, s.table)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		doc.DocHash, doc.Subfolder, doc.MessageID,
		doc.MessageCategory, doc.ControlCategory, doc.Status, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create document: %w", err)
	}

	return id, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (*Document, error) {
	docs, err := s.GetDocumentsBy(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	return docs[0], nil
}

func (s *PostgresStore) GetDocumentsBy(ctx context.Context, column string, values ...any) ([]*Document, error) {
	if column != "id" && !updatableColumns[column] && column != "doc_hash" {
		return nil, fmt.Errorf("store: column %q is not selectable", column)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("store: no selection values")
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT * FROM %s WHERE %s IN (?) ORDER BY id", s.table, column), values)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	query = s.db.Rebind(query)

	var docs []*Document
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}

	return docs, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, id int64, fields Fields) error {
	if err := validateFields(fields); err != nil {
		return err
	}

	set, args := buildSet(fields)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", s.table, set, len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}

	return nil
}

func (s *PostgresStore) UpdateDocuments(ctx context.Context, rows []BulkRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk update: %w", err)
	}

	var updated int64
	for _, row := range rows {
		if err := validateFields(row.Fields); err != nil {
			_ = tx.Rollback()
			return 0, err
		}

		set, args := buildSet(row.Fields)
		args = append(args, row.ID)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", s.table, set, len(args))

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("bulk update id %d: %w", row.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk update: %w", err)
	}

	return updated, nil
}

func (s *PostgresStore) DeleteByHash(ctx context.Context, hash string) ([]int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE doc_hash = $1 RETURNING id", s.table)

	rows, err := s.db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("delete by hash: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// buildSet renders a deterministic SET clause and always stamps last_update.
func buildSet(fields Fields) (string, []any) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		parts = append(parts, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fields[col])
	}
	parts = append(parts, fmt.Sprintf("last_update = $%d", len(cols)+1))
	args = append(args, time.Now())

	return strings.Join(parts, ", "), args
}
