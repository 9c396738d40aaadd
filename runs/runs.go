// Package runs keeps a SQLite history of scrape runs and the outcome of
// every article each run produced.
package runs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/pevans/newsgrab/article"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = eris.New("run not found")

// Store manages run history using SQLite.
type Store struct {
	db *sql.DB
}

// Run is one invocation of the scraper: a search followed by extraction of
// every URL it returned.
type Run struct {
	RunID      uuid.UUID  `json:"run_id"`
	Site       string     `json:"site"`
	Keyword    string     `json:"keyword"`
	Requested  int        `json:"requested"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Articles   int        `json:"articles"`
	Failed     int        `json:"failed"`
	Entries    []Entry    `json:"entries,omitempty"`
}

// IsFinished returns true once the run's results have been recorded.
func (r *Run) IsFinished() bool {
	return r.FinishedAt != nil
}

// Entry is the outcome of one article within a run.
type Entry struct {
	ArticleID uuid.UUID     `json:"article_id"`
	URL       string        `json:"url"`
	State     article.State `json:"state"`
}

// RunFilter holds pagination options for listing runs.
type RunFilter struct {
	Limit  int
	Offset int
}

// NewStore opens (or creates) the run database at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runs: open database")
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "runs: initialize schema")
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		keyword TEXT NOT NULL,
		requested INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		articles INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS run_articles (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		article_id TEXT NOT NULL,
		url TEXT NOT NULL,
		state TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(site, keyword string, requested int) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		Site:      site,
		Keyword:   keyword,
		Requested: requested,
		StartedAt: time.Now().Truncate(0),
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, site, keyword, requested, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.Site,
		run.Keyword,
		run.Requested,
		formatTime(&run.StartedAt),
	)
	if err != nil {
		return nil, eris.Wrap(err, "runs: insert run")
	}
	return run, nil
}

// FinishRun stores the records a run produced and marks it finished. The
// records are kept in the order given.
func (s *Store) FinishRun(runID uuid.UUID, recs []article.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return eris.Wrap(err, "runs: begin transaction")
	}
	defer tx.Rollback()

	failed := 0
	for i, rec := range recs {
		if rec.Failed() {
			failed++
		}
		_, err := tx.Exec(`
			INSERT INTO run_articles (run_id, position, article_id, url, state)
			VALUES (?, ?, ?, ?, ?)
		`, runID.String(), i, rec.ID().String(), rec.SourceURL(), string(rec.State()))
		if err != nil {
			return eris.Wrap(err, "runs: insert run article")
		}
	}

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE runs SET finished_at = ?, articles = ?, failed = ?
		WHERE run_id = ?
	`, formatTime(&now), len(recs), failed, runID.String())
	if err != nil {
		return eris.Wrap(err, "runs: update run")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runs: get rows affected")
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "runs: commit")
	}
	return nil
}

// GetRun retrieves a run and its article entries.
func (s *Store) GetRun(runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, site, keyword, requested, started_at, finished_at, articles, failed
		FROM runs
		WHERE run_id = ?
	`, runID.String())

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT article_id, url, state
		FROM run_articles
		WHERE run_id = ?
		ORDER BY position
	`, runID.String())
	if err != nil {
		return nil, eris.Wrap(err, "runs: query run articles")
	}
	defer rows.Close()

	for rows.Next() {
		var idStr, url, state string
		if err := rows.Scan(&idStr, &url, &state); err != nil {
			return nil, eris.Wrap(err, "runs: scan run article")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, eris.Wrap(err, "runs: parse article ID")
		}
		run.Entries = append(run.Entries, Entry{ArticleID: id, URL: url, State: article.State(state)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "runs: iterate run articles")
	}
	return run, nil
}

// ListRuns lists runs, newest first. Entries are not loaded.
func (s *Store) ListRuns(filter RunFilter) ([]Run, error) {
	query := `
		SELECT run_id, site, keyword, requested, started_at, finished_at, articles, failed
		FROM runs
		ORDER BY started_at DESC, rowid DESC
	`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, eris.Wrap(err, "runs: query runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "runs: iterate runs")
	}
	return runs, nil
}

// DeleteRun deletes a run and its entries.
func (s *Store) DeleteRun(runID uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return eris.Wrap(err, "runs: begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_articles WHERE run_id = ?", runID.String()); err != nil {
		return eris.Wrap(err, "runs: delete run articles")
	}
	result, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID.String())
	if err != nil {
		return eris.Wrap(err, "runs: delete run")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runs: get rows affected")
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return eris.Wrap(tx.Commit(), "runs: commit")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun parses one runs row. sql.ErrNoRows is returned unwrapped.
func scanRun(row scanner) (*Run, error) {
	var idStr, site, keyword, startedAt string
	var finishedAt sql.NullString
	var requested, articles, failed int

	err := row.Scan(&idStr, &site, &keyword, &requested, &startedAt, &finishedAt, &articles, &failed)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "runs: scan run")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, eris.Wrap(err, "runs: parse run ID")
	}

	started, err := parseTime(startedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "runs: parse started_at of run %s", idStr)
	}

	run := &Run{
		RunID:     id,
		Site:      site,
		Keyword:   keyword,
		Requested: requested,
		StartedAt: started,
		Articles:  articles,
		Failed:    failed,
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, eris.Wrapf(err, "runs: parse finished_at of run %s", idStr)
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}, err
		}
	}
	return t.Truncate(0), nil
}
