package store

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var (
	jobsHeader = []string{
		"id", "url", "job_title", "company", "location", "employment_type", "remote",
		"salary_min", "salary_max", "description", "requirements", "responsibilities", "post_date",
		"keyword_score", "matched_keywords", "resume_score", "notes",
	}
	applicationsHeader = []string{"url", "application_date", "status", "notes", "resume_path"}
)

// WriteJobsCSV writes the jobs table to w. Null columns are empty cells.
func (s *Store) WriteJobsCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.Jobs(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(jobsHeader); err != nil {
		return 0, err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10), r.URL, r.JobTitle, r.Company,
			str(r.Location), str(r.EmploymentType), boolStr(r.Remote),
			str(r.SalaryMin), str(r.SalaryMax), r.Description,
			str(r.Requirements), str(r.Responsibilities), str(r.PostDate),
			intStr(r.KeywordScore), str(r.MatchedKeywords), intStr(r.ResumeScore), str(r.Notes),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(records), cw.Error()
}

// WriteApplicationsCSV writes the job_applications table to w.
func (s *Store) WriteApplicationsCSV(ctx context.Context, w io.Writer) (int, error) {
	apps, err := s.Applications(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(applicationsHeader); err != nil {
		return 0, err
	}
	for _, a := range apps {
		date := ""
		if !a.ApplicationDate.IsZero() {
			date = a.ApplicationDate.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{a.URL, date, string(a.Status), str(a.Notes), str(a.ResumePath)}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(apps), cw.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intStr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func boolStr(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
