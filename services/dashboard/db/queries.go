package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ScrapeResult struct {
	ID                          int64
	Time                        int64
	Success                     int64
	Method                      string
	TotalCalls                  string
	TeleManasCells              string
	MentoringInstitutes         string
	RegionalCoordinatingCenters string
}

const createScrapeResult = `
INSERT INTO scrape_results (
    time, success, method,
    total_calls, tele_manas_cells, mentoring_institutes, regional_coordinating_centers
)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateScrapeResultParams struct {
	Time                        int64
	Success                     int64
	Method                      string
	TotalCalls                  string
	TeleManasCells              string
	MentoringInstitutes         string
	RegionalCoordinatingCenters string
}

func (q *Queries) CreateScrapeResult(ctx context.Context, arg CreateScrapeResultParams) error {
	_, err := q.db.ExecContext(ctx, createScrapeResult,
		arg.Time,
		arg.Success,
		arg.Method,
		arg.TotalCalls,
		arg.TeleManasCells,
		arg.MentoringInstitutes,
		arg.RegionalCoordinatingCenters,
	)
	return err
}

const getLatestScrapeResult = `
SELECT id, time, success, method,
       total_calls, tele_manas_cells, mentoring_institutes, regional_coordinating_centers
FROM scrape_results
ORDER BY time DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestScrapeResult(ctx context.Context) (ScrapeResult, error) {
	row := q.db.QueryRowContext(ctx, getLatestScrapeResult)
	var i ScrapeResult
	err := row.Scan(
		&i.ID,
		&i.Time,
		&i.Success,
		&i.Method,
		&i.TotalCalls,
		&i.TeleManasCells,
		&i.MentoringInstitutes,
		&i.RegionalCoordinatingCenters,
	)
	return i, err
}

const getScrapeResultsSince = `
SELECT id, time, success, method,
       total_calls, tele_manas_cells, mentoring_institutes, regional_coordinating_centers
FROM scrape_results
WHERE time >= ?
ORDER BY time ASC, id ASC
`

func (q *Queries) GetScrapeResultsSince(ctx context.Context, after int64) ([]ScrapeResult, error) {
	rows, err := q.db.QueryContext(ctx, getScrapeResultsSince, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScrapeResult
	for rows.Next() {
		var i ScrapeResult
		err := rows.Scan(
			&i.ID,
			&i.Time,
			&i.Success,
			&i.Method,
			&i.TotalCalls,
			&i.TeleManasCells,
			&i.MentoringInstitutes,
			&i.RegionalCoordinatingCenters,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteScrapeResultsBefore = `
DELETE FROM scrape_results
WHERE time < ?
`

func (q *Queries) DeleteScrapeResultsBefore(ctx context.Context, before int64) error {
	_, err := q.db.ExecContext(ctx, deleteScrapeResultsBefore, before)
	return err
}
