package internal

import (
	"context"
	"database/sql"

	"github.com/firodj/n64sora/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// MemoryDSN keeps the history in memory for the lifetime of the process.
const MemoryDSN = "file::memory:?cache=shared"

// SQLRepository stores analysis history in SQLite.
type SQLRepository struct {
	db *bun.DB
}

func NewSQLRepository(dsn string, debug bool) (*SQLRepository, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqldb.SetMaxOpenConns(1)

	repo := &SQLRepository{
		db: bun.NewDB(sqldb, sqlitedialect.New()),
	}

	repo.db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.WithEnabled(debug),
	))

	return repo, nil
}

// Init creates the tables when missing.
func (repo *SQLRepository) Init(ctx context.Context) error {
	_, err := repo.db.NewCreateTable().
		Model((*models.RomAnalysis)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (repo *SQLRepository) Save(ctx context.Context, rec *models.RomAnalysis) error {
	_, err := repo.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

// List returns the newest analyses first. A limit of zero lists everything.
func (repo *SQLRepository) List(ctx context.Context, limit int) ([]models.RomAnalysis, error) {
	var recs []models.RomAnalysis
	q := repo.db.NewSelect().Model(&recs).OrderExpr("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListRun returns the analyses of one batch run in insertion order.
func (repo *SQLRepository) ListRun(ctx context.Context, runID string) ([]models.RomAnalysis, error) {
	var recs []models.RomAnalysis
	err := repo.db.NewSelect().Model(&recs).
		Where("run_id = ?", runID).
		OrderExpr("id ASC").
		Scan(ctx)
	return recs, err
}

func (repo *SQLRepository) Close() error {
	return repo.db.Close()
}
