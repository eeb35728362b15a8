package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/repository/builder"
)

const sessionTable = "wage_session"

type sessionRepository struct {
	db          *sql.DB
	placeholder builder.Placeholder
}

// NewSessionRepository creates a SQL backed SessionRepository. Use
// builder.Dollar for PostgreSQL and builder.Question for SQLite.
func NewSessionRepository(db *sql.DB, placeholder builder.Placeholder) domain.SessionRepository {
	return &sessionRepository{db: db, placeholder: placeholder}
}

func (r *sessionRepository) newBuilder() *builder.SQLBuilder {
	return builder.NewSQLBuilderFor(r.placeholder)
}

// Save replaces every stored key of the session with values.
func (r *sessionRepository) Save(ctx context.Context, sessionID string, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save session: %w", err)
	}
	defer tx.Rollback()

	query, args := r.newBuilder().Delete(sessionTable).Where("session_id = ?", sessionID).Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if len(values) > 0 {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		now := time.Now().UTC()
		b := r.newBuilder().Insert(sessionTable, "session_id", "snapshot_key", "snapshot_value", "updated_at")
		for _, k := range keys {
			b.Values(sessionID, k, values[k], now)
		}
		query, args = b.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert session values: %w", err)
		}
	}

	return tx.Commit()
}

func (r *sessionRepository) Load(ctx context.Context, sessionID string) (map[string]string, error) {
	query, args := r.newBuilder().Select("snapshot_key", "snapshot_value").
		From(sessionTable).
		Where("session_id = ?", sessionID).
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return values, nil
}

func (r *sessionRepository) SetValue(ctx context.Context, sessionID, key, value string) error {
	query, args := r.newBuilder().Insert(sessionTable, "session_id", "snapshot_key", "snapshot_value", "updated_at").
		Values(sessionID, key, value, time.Now().UTC()).
		OnConflict("session_id", "snapshot_key").
		DoUpdate("snapshot_value", "updated_at").
		Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session value: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	query, args := r.newBuilder().Delete(sessionTable).Where("session_id = ?", sessionID).Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]string, error) {
	b := r.newBuilder().Select("DISTINCT session_id").
		From(sessionTable).
		OrderBy("session_id ASC")

	if filter.Prefix != "" {
		b.Where(`session_id LIKE ? ESCAPE '\'`, likePrefix(filter.Prefix))
	}
	if filter.Limit > 0 {
		b.Limit(filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after LIMIT
		b.Limit(math.MaxInt32)
	}
	if filter.Offset > 0 {
		b.Offset(filter.Offset)
	}

	query, args := b.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
