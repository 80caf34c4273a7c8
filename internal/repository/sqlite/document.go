package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/repository"
)

// encodeDoc renders v as relaxed Extended JSON using its bson tags.
// Nil slices are written as [] so json_each and API responses never see null.
func encodeDoc(v any) (string, error) {
	var buf bytes.Buffer
	vw, err := bsonrw.NewExtJSONValueWriter(&buf, false, false)
	if err != nil {
		return "", fmt.Errorf("creating extjson writer: %w", err)
	}
	enc, err := bson.NewEncoder(vw)
	if err != nil {
		return "", fmt.Errorf("creating bson encoder: %w", err)
	}
	enc.NilSliceAsEmpty()
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	return buf.String(), nil
}

func decodeDoc(doc string, v any) error {
	if err := bson.UnmarshalExtJSON([]byte(doc), false, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

// collection is one document table holding aggregates of type T.
type collection[T any] struct {
	conn     *sql.DB
	table    string
	resource string            // used in NotFound messages
	uniques  map[string]string // unique index name → repository key
}

// translate maps driver errors onto the repository error contract.
func (c collection[T]) translate(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	for index, key := range c.uniques {
		if strings.Contains(msg, index) {
			return repository.Duplicate(key)
		}
	}
	return repository.Duplicate("id")
}

func (c collection[T]) insert(ctx context.Context, id string, createdAt time.Time, v *T) error {
	doc, err := encodeDoc(v)
	if err != nil {
		return fmt.Errorf("sqlite: %s %s: %w", c.resource, id, err)
	}
	_, err = c.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc, version, created_at) VALUES (?, ?, 1, ?)`, c.table),
		id, doc, createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting %s %s: %w", c.resource, id, c.translate(err))
	}
	return nil
}

// update replaces the document only if the stored version is still expected.
// v must already carry expected+1 in its own version field.
//
// Zero rows affected means either the row is gone (NotFound) or someone
// else saved first (ErrStale); a second lookup tells the two apart.
func (c collection[T]) update(ctx context.Context, id string, expected int64, v *T) error {
	doc, err := encodeDoc(v)
	if err != nil {
		return fmt.Errorf("sqlite: %s %s: %w", c.resource, id, err)
	}
	res, err := c.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = ?, version = version + 1 WHERE id = ? AND version = ?`, c.table),
		doc, id, expected,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating %s %s: %w", c.resource, id, c.translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating %s %s: %w", c.resource, id, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = c.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, c.table), id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking %s %s: %w", c.resource, id, err)
	}
	if exists == 0 {
		return apperror.NotFound(c.resource, id)
	}
	return repository.ErrStale
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	res, err := c.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.table), id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %s: %w", c.resource, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound(c.resource, id)
	}
	return nil
}

// byID loads one document by primary key.
func (c collection[T]) byID(ctx context.Context, id string) (*T, error) {
	v, err := c.one(ctx, `id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(c.resource, id)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", c.resource, id, err)
	}
	return v, nil
}

// one loads the first document matching where. It returns sql.ErrNoRows
// untranslated so callers can choose their own not-found message.
func (c collection[T]) one(ctx context.Context, where string, args ...any) (*T, error) {
	var doc string
	err := c.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE %s LIMIT 1`, c.table, where), args...,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}
	var v T
	if err := decodeDoc(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// list runs a full "SELECT doc FROM table ..." tail (WHERE/ORDER/LIMIT).
// All rows are read before returning so the single connection used for
// in-memory databases is free again.
func (c collection[T]) list(ctx context.Context, tail string, args ...any) ([]T, error) {
	rows, err := c.conn.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %s %s`, c.table, tail), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", c.table, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s: %w", c.resource, err)
		}
		var v T
		if err := decodeDoc(doc, &v); err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", c.resource, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", c.table, err)
	}
	return result, nil
}

func (c collection[T]) count(ctx context.Context, where string, args ...any) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)
	if where != "" {
		query += " WHERE " + where
	}
	if err := c.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", c.table, err)
	}
	return n, nil
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// bare is String without the WHERE keyword, for count.
func (w *where) bare() string {
	return strings.Join(w.conds, " AND ")
}
