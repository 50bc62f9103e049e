package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/jobs"
)

type fakeGenerator struct {
	reply   string
	err     error
	system  string
	message string
	calls   int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	f.calls++
	f.system = system
	f.message = message
	return f.reply, f.err
}

func (f *fakeGenerator) Model() string { return "fake" }

const validReply = "```json\n" + `{
  "job_title": "Senior Backend Engineer",
  "company": "Acme",
  "location": "Berlin",
  "employment_type": "full-time",
  "remote": true,
  "salary_min": "120000",
  "salary_max": 150000,
  "description": "Build distributed systems.",
  "requirements": ["Go", "PostgreSQL"],
  "responsibilities": null,
  "post_date": null
}` + "\n```"

func TestExtractReturnsValidatedPosting(t *testing.T) {
	gen := &fakeGenerator{reply: validReply}
	e := New(gen, zap.NewNop(), 0)

	posting, err := e.Extract(context.Background(), "Senior Backend Engineer at Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if posting.JobTitle != "Senior Backend Engineer" || posting.Company != "Acme" {
		t.Fatalf("unexpected posting: %+v", posting)
	}
	if posting.Remote == nil || !*posting.Remote {
		t.Fatalf("expected remote to be true")
	}
	if posting.SalaryMax.String() != "150000" {
		t.Fatalf("unexpected salary_max: %q", posting.SalaryMax.String())
	}
	if len(posting.Requirements) != 2 || posting.Responsibilities != nil {
		t.Fatalf("unexpected lists: %v / %v", posting.Requirements, posting.Responsibilities)
	}

	if !strings.Contains(gen.system, "Do NOT invent missing fields") {
		t.Fatalf("expected extraction rules in system prompt")
	}
	if !strings.HasPrefix(gen.message, "Extract job posting information") || !strings.HasSuffix(gen.message, "END HTML") {
		t.Fatalf("unexpected message framing: %q", gen.message)
	}
}

func TestExtractTruncatesInput(t *testing.T) {
	gen := &fakeGenerator{reply: validReply}
	e := New(gen, zap.NewNop(), 0)

	long := strings.Repeat("ж", MaxInputChars+500)
	if _, err := e.Extract(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := strings.TrimSuffix(strings.SplitN(gen.message, "BEGIN HTML\n", 2)[1], "\nEND HTML")
	if got := utf8.RuneCountInString(body); got != MaxInputChars {
		t.Fatalf("expected %d characters, got %d", MaxInputChars, got)
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		reason string
	}{
		{name: "not json", reply: "Sorry, I cannot help with that.", reason: "not a JSON object"},
		{name: "broken json", reply: `{"job_title": "x", `, reason: "invalid JSON"},
		{name: "missing company", reply: `{"job_title": "x", "description": "d"}`, reason: "company is required"},
		{name: "blank title", reply: `{"job_title": "  ", "company": "c", "description": "d"}`, reason: "job_title is required"},
		{name: "missing description", reply: `{"job_title": "x", "company": "c"}`, reason: "description is required"},
		{name: "wrong type", reply: `{"job_title": "x", "company": "c", "description": "d", "remote": "yes"}`, reason: "invalid JSON"},
		{name: "list of objects", reply: `{"job_title": "x", "company": "c", "description": "d", "requirements": [{"a": 1}]}`, reason: "invalid JSON"},
		{name: "array", reply: `[{"job_title": "x"}]`, reason: "not a JSON object"},
		{name: "trailing data", reply: `{"job_title": "x", "company": "c", "description": "d"} {}`, reason: "trailing data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tt.reply}
			_, err := New(gen, zap.NewNop(), 0).Extract(context.Background(), "text")
			if !errors.Is(err, jobs.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Fatalf("expected %q in %q", tt.reason, err.Error())
			}
			if gen.calls != 1 {
				t.Fatalf("expected a single model call, got %d", gen.calls)
			}
		})
	}
}

func TestExtractPropagatesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota")}
	_, err := New(gen, zap.NewNop(), 0).Extract(context.Background(), "text")
	if err == nil || errors.Is(err, jobs.ErrExtraction) {
		t.Fatalf("expected plain generator error, got %v", err)
	}
}

func TestParseResult(t *testing.T) {
	ok := Parse(`{"job_title": "x", "company": "c", "description": "d", "extra": 1}`)
	if !ok.OK() || ok.Reason != "" {
		t.Fatalf("expected success, got %+v", ok)
	}

	bad := Parse("")
	if bad.OK() || bad.Reason == "" {
		t.Fatalf("expected failure with reason, got %+v", bad)
	}
}
