package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BaseSQLStore provides common database/sql functionality for store backends.
// Embed this struct in concrete backends to get the standard object CRUD over
// the shared objects/object_fields/object_refs schema. Queries are written
// with ? placeholders and rewritten through Bind for backends that need
// positional placeholders.
type BaseSQLStore struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger

	// Bind rewrites ? placeholders into the backend's native form.
	// Nil leaves queries unchanged.
	Bind func(query string) string
}

func (b *BaseSQLStore) bind(query string) string {
	if b.Bind == nil {
		return query
	}
	return b.Bind(query)
}

// RebindDollar rewrites ? placeholders to $1..$N for postgres-style drivers.
func RebindDollar(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Close closes the database connection.
func (b *BaseSQLStore) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing store connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLStore) IsConnected() bool {
	return b.DB != nil
}

// Create returns a new unsaved object with a fresh UUID.
func (b *BaseSQLStore) Create(class string) *Object {
	return NewObject(class, uuid.New().String())
}

// FindByField returns the object of the given class whose scalar field holds
// value, or nil when no such object exists.
func (b *BaseSQLStore) FindByField(ctx context.Context, class, field, value string) (*Object, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("store not connected")
	}

	var id string
	err := b.DB.QueryRowContext(ctx, b.bind(`
		SELECT o.id FROM objects o
		JOIN object_fields f ON f.object_id = o.id
		WHERE o.class = ? AND f.field = ? AND f.value = ?
		ORDER BY o.created_at
		LIMIT 1`), class, field, value).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s by %s: %w", class, field, err)
	}

	return b.loadObject(ctx, id)
}

// loadObject reads one object with all its fields and relations.
func (b *BaseSQLStore) loadObject(ctx context.Context, id string) (*Object, error) {
	obj := NewObject("", id)

	var parent sql.NullString
	err := b.DB.QueryRowContext(ctx, b.bind(
		`SELECT class, parent_id FROM objects WHERE id = ?`), id).Scan(&obj.Class, &parent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load object %s: %w", id, err)
	}
	obj.ParentID = parent.String

	rows, err := b.DB.QueryContext(ctx, b.bind(
		`SELECT field, value FROM object_fields WHERE object_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields for %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		obj.Fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}

	refRows, err := b.DB.QueryContext(ctx, b.bind(`
		SELECT field, related_id, kind FROM object_refs
		WHERE object_id = ? ORDER BY field, position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load relations for %s: %w", id, err)
	}
	defer func() { _ = refRows.Close() }()
	for refRows.Next() {
		var field, related, kind string
		if err := refRows.Scan(&field, &related, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		if kind == refKindSingle {
			obj.SingleRefs[field] = related
		} else {
			obj.MultiRefs[field] = append(obj.MultiRefs[field], related)
		}
	}
	if err := refRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}

	return obj, nil
}

const (
	refKindSingle = "single"
	refKindMulti  = "multi"
)

// Write persists the object's draft state, replacing stored fields and
// relations.
func (b *BaseSQLStore) Write(ctx context.Context, obj *Object) error {
	if b.DB == nil {
		return fmt.Errorf("store not connected")
	}

	now := time.Now().UTC()

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var parent any
	if obj.ParentID != "" {
		parent = obj.ParentID
	}
	_, err = tx.ExecContext(ctx, b.bind(`
		INSERT INTO objects (id, class, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET parent_id = excluded.parent_id, updated_at = excluded.updated_at`),
		obj.ID, obj.Class, parent, now, now)
	if err != nil {
		return fmt.Errorf("failed to write object %s: %w", obj.ID, err)
	}

	if _, err = tx.ExecContext(ctx, b.bind(
		`DELETE FROM object_fields WHERE object_id = ?`), obj.ID); err != nil {
		return fmt.Errorf("failed to clear fields for %s: %w", obj.ID, err)
	}
	for field, value := range obj.Fields {
		if _, err = tx.ExecContext(ctx, b.bind(
			`INSERT INTO object_fields (object_id, field, value) VALUES (?, ?, ?)`),
			obj.ID, field, value); err != nil {
			return fmt.Errorf("failed to write field %s.%s: %w", obj.Class, field, err)
		}
	}

	if _, err = tx.ExecContext(ctx, b.bind(
		`DELETE FROM object_refs WHERE object_id = ?`), obj.ID); err != nil {
		return fmt.Errorf("failed to clear relations for %s: %w", obj.ID, err)
	}
	for field, related := range obj.SingleRefs {
		if _, err = tx.ExecContext(ctx, b.bind(
			`INSERT INTO object_refs (object_id, field, related_id, kind, position) VALUES (?, ?, ?, ?, 0)`),
			obj.ID, field, related, refKindSingle); err != nil {
			return fmt.Errorf("failed to write relation %s.%s: %w", obj.Class, field, err)
		}
	}
	for field, ids := range obj.MultiRefs {
		for pos, related := range ids {
			if _, err = tx.ExecContext(ctx, b.bind(
				`INSERT INTO object_refs (object_id, field, related_id, kind, position) VALUES (?, ?, ?, ?, ?)`),
				obj.ID, field, related, refKindMulti, pos); err != nil {
				return fmt.Errorf("failed to write relation %s.%s: %w", obj.Class, field, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write for %s: %w", obj.ID, err)
	}
	return nil
}

// Publish copies the object's stored draft state into the published tables.
func (b *BaseSQLStore) Publish(ctx context.Context, obj *Object) error {
	if b.DB == nil {
		return fmt.Errorf("store not connected")
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM published_fields WHERE object_id = ?`,
		`DELETE FROM published_refs WHERE object_id = ?`,
		`DELETE FROM published_objects WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, b.bind(q), obj.ID); err != nil {
			return fmt.Errorf("failed to clear published copy of %s: %w", obj.ID, err)
		}
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, b.bind(`
		INSERT INTO published_objects (id, class, parent_id, published_at)
		SELECT id, class, parent_id, ? FROM objects WHERE id = ?`), now, obj.ID); err != nil {
		return fmt.Errorf("failed to publish object %s: %w", obj.ID, err)
	}
	if _, err = tx.ExecContext(ctx, b.bind(`
		INSERT INTO published_fields (object_id, field, value)
		SELECT object_id, field, value FROM object_fields WHERE object_id = ?`), obj.ID); err != nil {
		return fmt.Errorf("failed to publish fields of %s: %w", obj.ID, err)
	}
	if _, err = tx.ExecContext(ctx, b.bind(`
		INSERT INTO published_refs (object_id, field, related_id, kind, position)
		SELECT object_id, field, related_id, kind, position FROM object_refs WHERE object_id = ?`), obj.ID); err != nil {
		return fmt.Errorf("failed to publish relations of %s: %w", obj.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit publish for %s: %w", obj.ID, err)
	}
	return nil
}

// Delete removes the object, draft and live.
func (b *BaseSQLStore) Delete(ctx context.Context, obj *Object) error {
	if b.DB == nil {
		return fmt.Errorf("store not connected")
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM object_fields WHERE object_id = ?`,
		`DELETE FROM object_refs WHERE object_id = ?`,
		`DELETE FROM objects WHERE id = ?`,
		`DELETE FROM published_fields WHERE object_id = ?`,
		`DELETE FROM published_refs WHERE object_id = ?`,
		`DELETE FROM published_objects WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, b.bind(q), obj.ID); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", obj.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete for %s: %w", obj.ID, err)
	}
	return nil
}
