package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/extract"
	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/ledger"
	"github.com/spigell/job-board/internal/renderer"
	"github.com/spigell/job-board/internal/scoring"
)

const jobPage = `<html><head><title>Job</title><script>var x = 1;</script></head>
<body><nav>Home</nav><main><h1>Backend Engineer</h1><p>Acme is hiring a Go developer.</p></main></body></html>`

const jobJSON = `{"job_title": "Backend Engineer", "company": "Acme", "description": "Acme is hiring a Go developer to work with Kubernetes.", "requirements": ["Go", "SQL"], "responsibilities": []}`

// modelStub answers extraction and resume scoring requests.
type modelStub struct {
	extraction string
	score      string
	messages   []string
}

func (m *modelStub) GenerateContent(_ context.Context, _, message string) (string, error) {
	m.messages = append(m.messages, message)
	if strings.Contains(message, "BEGIN HTML") {
		return m.extraction, nil
	}
	return m.score, nil
}

func (m *modelStub) Model() string { return "stub" }

type pageFetcher map[string]string

func (p pageFetcher) Name() string { return "stub" }

func (p pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	html, ok := p[url]
	if !ok {
		return "", errors.New("not found")
	}
	return html, nil
}

type memorySink struct {
	stored map[string]*jobs.Record
}

func newMemorySink(urls ...string) *memorySink {
	s := &memorySink{stored: map[string]*jobs.Record{}}
	for _, u := range urls {
		s.stored[u] = &jobs.Record{URL: u}
	}
	return s
}

func (s *memorySink) Exists(_ context.Context, url string) (bool, error) {
	_, ok := s.stored[url]
	return ok, nil
}

func (s *memorySink) Insert(_ context.Context, rec *jobs.Record) error {
	s.stored[rec.URL] = rec
	return nil
}

func newOrchestrator(t *testing.T, fetcher Fetcher, model *modelStub, sink Sink, l Ledger, inputs Inputs) *Orchestrator {
	t.Helper()
	o, err := New(Deps{
		Fetcher:   fetcher,
		Extractor: extract.New(model, zap.NewNop(), 0),
		Scorer:    scoring.NewResumeFit(model, zap.NewNop(), 0),
		Sink:      sink,
		Ledger:    l,
	}, inputs, zap.NewNop())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func TestRunSkipsStoredAndStoresNew(t *testing.T) {
	model := &modelStub{extraction: jobJSON, score: "Score: 7"}
	sink := newMemorySink("u1")
	l := &ledger.Ledger{}
	fetcher := pageFetcher{"u2": jobPage}

	o := newOrchestrator(t, fetcher, model, sink, l, Inputs{
		Keywords: []string{"go", "kubernetes", "rust"},
		Resume:   "Go engineer with Kubernetes experience",
	})

	summary := o.Run(context.Background(), []string{"u1", "u2"})

	if summary.Skipped != 1 || summary.Processed != 1 || summary.Stored != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" || summary.RunID != o.RunID() {
		t.Fatalf("unexpected run id %q", summary.RunID)
	}
	if len(l.Entries()) != 0 {
		t.Fatalf("expected empty ledger, got %v", l.Entries())
	}

	rec := sink.stored["u2"]
	if rec == nil {
		t.Fatal("expected u2 to be stored")
	}
	if rec.JobTitle != "Backend Engineer" || rec.Company != "Acme" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Requirements == nil || *rec.Requirements != "Go, SQL" {
		t.Fatalf("unexpected requirements %v", rec.Requirements)
	}
	if rec.Responsibilities != nil {
		t.Fatalf("expected nil responsibilities, got %q", *rec.Responsibilities)
	}
	if rec.KeywordScore == nil || *rec.KeywordScore != 2 {
		t.Fatalf("unexpected keyword score %v", rec.KeywordScore)
	}
	if rec.MatchedKeywords == nil || *rec.MatchedKeywords != "go, kubernetes" {
		t.Fatalf("unexpected matched keywords %v", rec.MatchedKeywords)
	}
	if rec.ResumeScore == nil || *rec.ResumeScore != 7 {
		t.Fatalf("unexpected resume score %v", rec.ResumeScore)
	}

	for _, msg := range model.messages {
		if strings.Contains(msg, "var x = 1") || strings.Contains(msg, "Home") {
			t.Fatalf("script or nav text leaked into model input: %q", msg)
		}
	}
}

func TestRunRecordsExtractionFailure(t *testing.T) {
	model := &modelStub{extraction: `{"job_title": "Backend Engineer"}`}
	sink := newMemorySink("u1")
	l := &ledger.Ledger{}

	o := newOrchestrator(t, pageFetcher{"u2": jobPage}, model, sink, l, Inputs{})
	summary := o.Run(context.Background(), []string{"u1", "u2"})

	if summary.Stored != 0 || summary.Failed != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, ok := sink.stored["u2"]; ok {
		t.Fatal("u2 must not be stored")
	}

	entries := l.Entries()
	if len(entries) != 1 || entries[0].URL != "u2" {
		t.Fatalf("unexpected ledger %v", entries)
	}
	if !strings.Contains(entries[0].Exception, "extraction failure") {
		t.Fatalf("unexpected exception %q", entries[0].Exception)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	model := &modelStub{extraction: jobJSON}
	sink := newMemorySink()
	l := &ledger.Ledger{}

	o := newOrchestrator(t, pageFetcher{"ok": jobPage}, model, sink, l, Inputs{})
	summary := o.Run(context.Background(), []string{"missing", "ok"})

	if summary.Failed != 1 || summary.Stored != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !l.Failed("missing") || l.Failed("ok") {
		t.Fatalf("unexpected ledger %v", l.Entries())
	}
}

func TestResumeScoringSkippedWithoutResume(t *testing.T) {
	model := &modelStub{extraction: jobJSON, score: "Score: 9"}
	sink := newMemorySink()

	o := newOrchestrator(t, pageFetcher{"u": jobPage}, model, sink, &ledger.Ledger{}, Inputs{})
	rec, err := o.Process(context.Background(), "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ResumeScore != nil {
		t.Fatalf("expected unscored resume, got %d", *rec.ResumeScore)
	}
	if rec.KeywordScore == nil || *rec.KeywordScore != 0 || rec.MatchedKeywords != nil {
		t.Fatalf("unexpected keyword result %v %v", rec.KeywordScore, rec.MatchedKeywords)
	}
	if len(model.messages) != 1 {
		t.Fatalf("expected only the extraction request, got %d", len(model.messages))
	}
}

func TestOutOfRangeResumeScoreFails(t *testing.T) {
	model := &modelStub{extraction: jobJSON, score: "Score: 11"}
	l := &ledger.Ledger{}

	o := newOrchestrator(t, pageFetcher{"u": jobPage}, model, newMemorySink(), l, Inputs{Resume: "resume"})
	_, err := o.Process(context.Background(), "u")
	if !errors.Is(err, jobs.ErrScoring) {
		t.Fatalf("expected scoring failure, got %v", err)
	}
	if !l.Failed("u") {
		t.Fatal("expected ledger entry")
	}
}

func TestStaticForbiddenFallsBackToBrowser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	urls := []string{server.URL + "/jobs/1", server.URL + "/jobs/2"}
	browser := pageFetcher{urls[0]: jobPage, urls[1]: jobPage}
	chain := renderer.NewChain(zap.NewNop(),
		renderer.NewStatic(renderer.StaticConfig{MaxTries: 1}, zap.NewNop()),
		browser,
	)

	model := &modelStub{extraction: jobJSON}
	sink := newMemorySink()
	l := &ledger.Ledger{}

	o := newOrchestrator(t, chain, model, sink, l, Inputs{})
	summary := o.Run(context.Background(), urls)

	if summary.Stored != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v, ledger %v", summary, l.Entries())
	}
	for _, u := range urls {
		if rec := sink.stored[u]; rec == nil || rec.JobTitle != "Backend Engineer" {
			t.Fatalf("expected posting for %s, got %+v", u, rec)
		}
	}
}

func TestFetchFailureIsClassified(t *testing.T) {
	chain := renderer.NewChain(zap.NewNop(), pageFetcher{})
	l := &ledger.Ledger{}

	o := newOrchestrator(t, chain, &modelStub{}, newMemorySink(), l, Inputs{})
	_, err := o.Process(context.Background(), "https://nowhere.example/")
	if !errors.Is(err, jobs.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if category(err) != "fetch" {
		t.Fatalf("unexpected category %q", category(err))
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, pageFetcher{}, &modelStub{}, newMemorySink(), &ledger.Ledger{}, Inputs{})
	summary := o.Run(ctx, []string{"a", "b"})
	if summary.Total != 2 || summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestNewRequiresScorerWithResume(t *testing.T) {
	_, err := New(Deps{
		Fetcher:   pageFetcher{},
		Extractor: extract.New(&modelStub{}, nil, 0),
		Sink:      newMemorySink(),
		Ledger:    &ledger.Ledger{},
	}, Inputs{Resume: "resume"}, nil)
	if err == nil {
		t.Fatal("expected error without scorer")
	}
}

func TestModelSuppliedScoresAreIgnored(t *testing.T) {
	model := &modelStub{
		extraction: `{"job_title": "T", "company": "C", "description": "d", "url": "https://other.example", "resume_score": 0, "keyword_score": 5, "matched_keywords": ["x"]}`,
	}
	sink := newMemorySink()

	o := newOrchestrator(t, pageFetcher{"u": jobPage}, model, sink, &ledger.Ledger{}, Inputs{})
	rec, err := o.Process(context.Background(), "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.URL != "u" {
		t.Fatalf("expected the fetched url, got %q", rec.URL)
	}
	if rec.ResumeScore != nil {
		t.Fatalf("expected no resume score without a resume, got %d", *rec.ResumeScore)
	}
	if rec.KeywordScore == nil || *rec.KeywordScore != 0 || rec.MatchedKeywords != nil {
		t.Fatalf("unexpected keyword result %v %v", rec.KeywordScore, rec.MatchedKeywords)
	}
	if len(model.messages) != 1 {
		t.Fatalf("expected only the extraction request, got %d", len(model.messages))
	}
}

// cancellingFetcher cancels the run while the first page is in flight.
type cancellingFetcher struct {
	cancel context.CancelFunc
	calls  int
}

func (f *cancellingFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	f.calls++
	f.cancel()
	return "", ctx.Err()
}

func TestInterruptedURLIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &cancellingFetcher{cancel: cancel}
	l := &ledger.Ledger{}

	o := newOrchestrator(t, fetcher, &modelStub{}, newMemorySink(), l, Inputs{})
	summary := o.Run(ctx, []string{"u1", "u2"})

	if summary.Interrupted != 1 || summary.Failed != 0 || summary.Stored != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected the run to stop after the first url, got %d fetches", fetcher.calls)
	}
	if len(l.Added()) != 0 {
		t.Fatalf("expected no ledger entries, got %v", l.Added())
	}
}

func TestProcessReturnsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := &ledger.Ledger{}
	o := newOrchestrator(t, &cancellingFetcher{cancel: cancel}, &modelStub{}, newMemorySink(), l, Inputs{})

	_, err := o.Process(ctx, "u")
	if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected interrupted error, got %v", err)
	}
	if l.Failed("u") {
		t.Fatal("interrupted url must not be recorded")
	}
}
