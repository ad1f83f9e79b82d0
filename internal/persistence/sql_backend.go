package persistence

import (
	"context"
	"database/sql"
	"starfront-server/internal/shared/database"
	"starfront-server/internal/shared/errors"
)

// SQLBackend stores documents in the documents table. It works with both the
// postgres and sqlite dialects.
type SQLBackend struct {
	db *database.DB
}

func NewSQLBackend(db *database.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	query := `
		SELECT body
		FROM documents
		WHERE collection = ` + b.db.Placeholder(1) + ` AND id = ` + b.db.Placeholder(2)

	var body []byte
	err := b.db.QueryRowContext(ctx, query, collection, id).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, errors.WrapInternal("failed to load document", err)
	}
	return body, true, nil
}

func (b *SQLBackend) Put(ctx context.Context, collection, id string, body []byte) error {
	query := `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES (` + b.db.Placeholder(1) + `, ` + b.db.Placeholder(2) + `, ` + b.db.Placeholder(3) + `, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id) DO UPDATE
		SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := b.db.ExecContext(ctx, query, collection, id, body); err != nil {
		return errors.WrapInternal("failed to save document", err)
	}
	return nil
}

func (b *SQLBackend) List(ctx context.Context, collection string) ([]Document, error) {
	query := `
		SELECT id, body
		FROM documents
		WHERE collection = ` + b.db.Placeholder(1) + `
		ORDER BY id
	`

	rows, err := b.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, errors.WrapInternal("failed to list documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Body); err != nil {
			return nil, errors.WrapInternal("failed to scan document", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapInternal("failed to iterate documents", err)
	}
	return docs, nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
