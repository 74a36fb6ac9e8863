package astrologer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context) ([]Astrologer, error)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type repository struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewRepository reads astrologer metadata from a Postgres table with id, name and type columns.
func NewRepository(db *sqlx.DB, table string, logger *zap.Logger) (Repository, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid astrologer table name %q", table)
	}
	return &repository{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

func (r *repository) List(ctx context.Context) ([]Astrologer, error) {
	query := fmt.Sprintf(`
		SELECT id::text AS id, name, type
		FROM %s
		ORDER BY id
	`, r.table)

	var astrologers []Astrologer
	if err := r.db.SelectContext(ctx, &astrologers, query); err != nil {
		r.logger.Error("Failed to list astrologers", zap.Error(err), zap.String("table", r.table))
		return nil, fmt.Errorf("failed to list astrologers: %w", err)
	}

	r.logger.Debug("Astrologers loaded",
		zap.String("table", r.table),
		zap.Int("count", len(astrologers)),
	)

	return astrologers, nil
}
