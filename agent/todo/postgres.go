package todo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type taskRow struct {
	bun.BaseModel `bun:"table:todos,alias:t"`

	ID    int    `bun:"id,pk"`
	Title string `bun:"title,notnull"`
	Date  string `bun:"date,notnull"`
	Done  bool   `bun:"done,notnull,default:false"`
}

// PostgresSnapshot keeps the collection in a single Postgres table while
// preserving the snapshot contract: Read selects everything in id order,
// Write replaces the table contents in one transaction.
type PostgresSnapshot struct {
	db           *bun.DB
	log          zerolog.Logger
	readFailures atomic.Int64
}

// PostgresSnapshotOption customizes a PostgresSnapshot.
type PostgresSnapshotOption func(*PostgresSnapshot)

func WithPostgresLogger(log zerolog.Logger) PostgresSnapshotOption {
	return func(p *PostgresSnapshot) {
		p.log = log
	}
}

func NewPostgresSnapshot(ctx context.Context, dsn string, opts ...PostgresSnapshotOption) (*PostgresSnapshot, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	p := &PostgresSnapshot{
		db:  db,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if _, err := db.NewCreateTable().
		Model((*taskRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return p, nil
}

func (p *PostgresSnapshot) Read(ctx context.Context) []Task {
	var rows []taskRow
	if err := p.db.NewSelect().
		Model(&rows).
		Order("id ASC").
		Scan(ctx); err != nil {
		p.readFailures.Add(1)
		p.log.Warn().Err(err).Msg("snapshot read failed, treating as empty")
		return []Task{}
	}

	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, Task{ID: r.ID, Title: r.Title, Date: r.Date, Done: r.Done})
	}
	return tasks
}

func (p *PostgresSnapshot) Write(ctx context.Context, tasks []Task) error {
	rows := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, taskRow{ID: t.ID, Title: t.Title, Date: t.Date, Done: t.Done})
	}

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*taskRow)(nil)).
			Where("TRUE").
			Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

// ReadFailures reports how many reads were swallowed into an empty
// collection since this snapshot was created.
func (p *PostgresSnapshot) ReadFailures() int64 {
	return p.readFailures.Load()
}

func (p *PostgresSnapshot) Close() error {
	return p.db.Close()
}
