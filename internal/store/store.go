// Package store persists extracted jobs and their application status in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/job-board/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    url              TEXT NOT NULL UNIQUE,
    job_title        TEXT NOT NULL,
    company          TEXT NOT NULL,
    location         TEXT,
    employment_type  TEXT,
    remote           BOOLEAN,
    salary_min       TEXT,
    salary_max       TEXT,
    description      TEXT,
    requirements     TEXT,
    responsibilities TEXT,
    post_date        TEXT,
    keyword_score    INTEGER,
    matched_keywords TEXT,
    resume_score     INTEGER,
    notes            TEXT
);
CREATE TABLE IF NOT EXISTS job_applications (
    url              TEXT PRIMARY KEY,
    application_date DATETIME DEFAULT CURRENT_TIMESTAMP,
    status           TEXT NOT NULL DEFAULT 'NOT_APPLIED',
    notes            TEXT,
    resume_path      TEXT
);
`

const jobColumns = `id, url, job_title, company, location, employment_type, remote,
    salary_min, salary_max, description, requirements, responsibilities, post_date,
    keyword_score, matched_keywords, resume_score, notes`

// ErrDuplicate is returned when a job with the same URL is already stored.
var ErrDuplicate = errors.New("job already stored")

// Store is the jobs database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath, creating the file and schema if needed.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether a job with url is stored.
func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE url = ?)`, url).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// Insert stores rec together with a NOT_APPLIED application entry. rec.ID is
// set on success.
func (s *Store) Insert(ctx context.Context, rec *jobs.Record) (err error) {
	if rec == nil {
		return errors.New("nil job record")
	}

	exists, err := s.Exists(ctx, rec.URL)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.URL)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (url, job_title, company, location, employment_type, remote,
		    salary_min, salary_max, description, requirements, responsibilities, post_date,
		    keyword_score, matched_keywords, resume_score, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.JobTitle, rec.Company, rec.Location, rec.EmploymentType, rec.Remote,
		rec.SalaryMin, rec.SalaryMax, rec.Description, rec.Requirements, rec.Responsibilities, rec.PostDate,
		rec.KeywordScore, rec.MatchedKeywords, rec.ResumeScore, rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO job_applications (url, application_date, status) VALUES (?, ?, ?)`,
		rec.URL, s.now().UTC(), jobs.StatusNotApplied,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	rec.ID = id
	return nil
}

// Jobs returns every stored job ordered by insertion.
func (s *Store) Jobs(ctx context.Context) ([]*jobs.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*jobs.Record
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Applications returns every application entry ordered by date.
func (s *Store) Applications(ctx context.Context) ([]*jobs.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, application_date, status, notes, resume_path
		 FROM job_applications ORDER BY application_date, url`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*jobs.Application
	for rows.Next() {
		var (
			app    jobs.Application
			status string
			date   sql.NullTime
			notes  sql.NullString
			resume sql.NullString
		)
		if err := rows.Scan(&app.URL, &date, &status, &notes, &resume); err != nil {
			return nil, err
		}
		app.ApplicationDate = date.Time
		app.Status = jobs.ApplicationStatus(status)
		app.Notes = nullString(notes)
		app.ResumePath = nullString(resume)
		result = append(result, &app)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*jobs.Record, error) {
	var (
		rec         jobs.Record
		description sql.NullString
		location    sql.NullString
		employment  sql.NullString
		remote      sql.NullBool
		salaryMin   sql.NullString
		salaryMax   sql.NullString
		reqs        sql.NullString
		resps       sql.NullString
		postDate    sql.NullString
		kwScore     sql.NullInt64
		matched     sql.NullString
		resumeScore sql.NullInt64
		notes       sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.URL, &rec.JobTitle, &rec.Company, &location, &employment, &remote,
		&salaryMin, &salaryMax, &description, &reqs, &resps, &postDate,
		&kwScore, &matched, &resumeScore, &notes)
	if err != nil {
		return nil, err
	}

	rec.Description = description.String
	rec.Location = nullString(location)
	rec.EmploymentType = nullString(employment)
	if remote.Valid {
		rec.Remote = &remote.Bool
	}
	rec.SalaryMin = nullString(salaryMin)
	rec.SalaryMax = nullString(salaryMax)
	rec.Requirements = nullString(reqs)
	rec.Responsibilities = nullString(resps)
	rec.PostDate = nullString(postDate)
	rec.KeywordScore = nullInt(kwScore)
	rec.MatchedKeywords = nullString(matched)
	rec.ResumeScore = nullInt(resumeScore)
	rec.Notes = nullString(notes)

	return &rec, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
