package jobs

import (
	"strings"
	"time"
)

// ListSeparator joins list-valued fields into a single column.
const ListSeparator = ", "

// Record is a posting in its stored form: lists are flattened to strings or null.
type Record struct {
	ID               int64   `json:"id"`
	URL              string  `json:"url"`
	JobTitle         string  `json:"job_title"`
	Company          string  `json:"company"`
	Location         *string `json:"location"`
	EmploymentType   *string `json:"employment_type"`
	Remote           *bool   `json:"remote"`
	SalaryMin        *string `json:"salary_min"`
	SalaryMax        *string `json:"salary_max"`
	Description      string  `json:"description"`
	Requirements     *string `json:"requirements"`
	Responsibilities *string `json:"responsibilities"`
	PostDate         *string `json:"post_date"`
	KeywordScore     *int    `json:"keyword_score"`
	MatchedKeywords  *string `json:"matched_keywords"`
	ResumeScore      *int    `json:"resume_score"`
	Notes            *string `json:"notes"`
}

// Application tracks what happened with a stored job.
type Application struct {
	URL             string
	ApplicationDate time.Time
	Status          ApplicationStatus
	Notes           *string
	ResumePath      *string
}

type ApplicationStatus string

const (
	StatusNotApplied           ApplicationStatus = "NOT_APPLIED"
	StatusApplicationSubmitted ApplicationStatus = "APPLICATION_SUBMITTED"
	StatusInterviewed          ApplicationStatus = "INTERVIEWED"
)

// Postprocess flattens a posting into a Record.
func Postprocess(p *Posting) *Record {
	if p == nil {
		return nil
	}

	return &Record{
		URL:              p.URL,
		JobTitle:         p.JobTitle,
		Company:          p.Company,
		Location:         blankToNil(p.Location),
		EmploymentType:   blankToNil(p.EmploymentType),
		Remote:           p.Remote,
		SalaryMin:        salaryToNil(p.SalaryMin),
		SalaryMax:        salaryToNil(p.SalaryMax),
		Description:      p.Description,
		Requirements:     Flatten(p.Requirements),
		Responsibilities: Flatten(p.Responsibilities),
		PostDate:         blankToNil(p.PostDate),
		KeywordScore:     p.KeywordScore,
		MatchedKeywords:  Flatten(p.MatchedKeywords),
		ResumeScore:      p.ResumeScore,
	}
}

// Flatten joins the non-blank list entries with ListSeparator. Empty lists and
// lists holding only blank placeholders become nil.
func Flatten(list []string) *string {
	kept := make([]string, 0, len(list))
	for _, item := range list {
		if strings.TrimSpace(item) == "" {
			continue
		}
		kept = append(kept, item)
	}

	if len(kept) == 0 {
		return nil
	}

	joined := strings.Join(kept, ListSeparator)
	return &joined
}

// EmbeddingText is the document embedded for similarity ranking.
func (r *Record) EmbeddingText() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{r.JobTitle, r.Company, r.Description} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func salaryToNil(s *Salary) *string {
	if s == nil {
		return nil
	}
	v := s.String()
	return blankToNil(&v)
}
