package jobs

import (
	"fmt"
	"strconv"
)

// ReportByCompany groups stored jobs by company for the interactive report.
func ReportByCompany(records []*Record) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, r := range records {
		entry := map[string]string{
			"title":    r.JobTitle,
			"url":      r.URL,
			"location": deref(r.Location),
			"salary":   fmt.Sprintf("%s-%s", deref(r.SalaryMin), deref(r.SalaryMax)),
		}

		if r.KeywordScore != nil {
			entry["keyword_score"] = strconv.Itoa(*r.KeywordScore)
		}
		if r.ResumeScore != nil {
			entry["resume_score"] = strconv.Itoa(*r.ResumeScore)
		}
		if r.MatchedKeywords != nil {
			entry["matched_keywords"] = *r.MatchedKeywords
		}

		report[r.Company] = append(report[r.Company], entry)
	}
	return report
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
