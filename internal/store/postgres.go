// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"nutritrack/internal/common/database"
	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
	"nutritrack/internal/store/queries"
)

const (
	queryUserProfile = "user_profile"
	queryMenuItems   = "menu_items"
)

// PostgresStore serves both readers from one pool. Each call checks out its
// own connection and returns it before the call completes.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres_store"}),
	}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, bool, error) {
	var profile *models.Profile

	err := s.withConn(ctx, queryUserProfile, func(conn *sql.Conn) error {
		var err error
		profile, err = queries.UserProfile(ctx, conn, userID)
		return err
	})
	if stderrors.Is(err, queries.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return profile, true, nil
}

func (s *PostgresStore) ListMenuItems(ctx context.Context, criteria *models.FilterCriteria) ([]models.MenuItem, error) {
	var items []models.MenuItem

	err := s.withConn(ctx, queryMenuItems, func(conn *sql.Conn) error {
		var err error
		items, err = queries.MenuItems(ctx, conn, criteria)
		return err
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (s *PostgresStore) withConn(ctx context.Context, queryType string, fn func(conn *sql.Conn) error) error {
	start := time.Now()
	err := database.WithConn(ctx, s.db, fn)

	s.logger.Debug("query finished", map[string]interface{}{
		"queryType":  queryType,
		"durationMs": time.Since(start).Milliseconds(),
		"ok":         err == nil || stderrors.Is(err, queries.ErrNoRows),
	})

	switch {
	case err == nil, stderrors.Is(err, queries.ErrNoRows):
		return err
	case stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		return errors.NewQueryTimeoutError(queryType, err)
	case stderrors.Is(err, database.ErrAcquireConn):
		return errors.NewStoreUnavailableError(err)
	default:
		return errors.NewQueryExecutionFailedError(queryType, err)
	}
}
