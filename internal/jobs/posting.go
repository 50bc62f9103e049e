package jobs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Posting is a job posting as extracted from a single page.
type Posting struct {
	URL              string   `json:"-"`
	JobTitle         string   `json:"job_title" validate:"required"`
	Company          string   `json:"company" validate:"required"`
	Location         *string  `json:"location"`
	EmploymentType   *string  `json:"employment_type"`
	Remote           *bool    `json:"remote"`
	SalaryMin        *Salary  `json:"salary_min"`
	SalaryMax        *Salary  `json:"salary_max"`
	Description      string   `json:"description" validate:"required"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	PostDate         *string  `json:"post_date"`

	// Set by the pipeline, never decoded from model output.
	KeywordScore    *int     `json:"-"`
	MatchedKeywords []string `json:"-"`
	ResumeScore     *int     `json:"-"`
}

// Salary is kept as text. Models return it either as a string or as a bare
// number, both are accepted.
type Salary string

func (s *Salary) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Salary(strings.TrimSpace(text))
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("salary must be a string or a number, got %s", data)
	}

	*s = Salary(strconv.FormatFloat(number, 'f', -1, 64))
	return nil
}

func (s *Salary) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Trim removes surrounding whitespace from the required text fields.
func (p *Posting) Trim() {
	p.JobTitle = strings.TrimSpace(p.JobTitle)
	p.Company = strings.TrimSpace(p.Company)
	p.Description = strings.TrimSpace(p.Description)
}
