package scoring

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		keywords    []string
		score       int
		matched     []string
	}{
		{name: "no keywords", description: "Go developer", keywords: nil, score: 0, matched: []string{}},
		{name: "empty description", description: "", keywords: []string{"go"}, score: 0, matched: []string{}},
		{name: "case insensitive", description: "We use GoLang and Kubernetes", keywords: []string{"golang", "KUBERNETES", "rust"}, score: 2, matched: []string{"golang", "KUBERNETES"}},
		{name: "substring match", description: "postgresql", keywords: []string{"sql"}, score: 1, matched: []string{"sql"}},
		{name: "duplicates count per entry", description: "python shop", keywords: []string{"python", "python", "java"}, score: 2, matched: []string{"python"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, matched := Keywords(tt.description, tt.keywords)
			if score != tt.score {
				t.Fatalf("expected score %d, got %d", tt.score, score)
			}
			if !reflect.DeepEqual(matched, tt.matched) {
				t.Fatalf("expected matched %v, got %v", tt.matched, matched)
			}
		})
	}
}

func TestKeywordsMatchesPredicate(t *testing.T) {
	vocabulary := []string{"go", "Go", "SQL", "kafka", "rust", "aws", "k8s", "backend", "GO"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		var words []string
		for j := 0; j < rng.Intn(6); j++ {
			words = append(words, vocabulary[rng.Intn(len(vocabulary))])
		}
		description := strings.Join(words, " ")

		var keywords []string
		for j := 0; j < rng.Intn(5); j++ {
			keywords = append(keywords, vocabulary[rng.Intn(len(vocabulary))])
		}

		want := 0
		satisfying := map[string]bool{}
		for _, k := range keywords {
			if strings.Contains(strings.ToLower(description), strings.ToLower(k)) {
				want++
				satisfying[k] = true
			}
		}

		score, matched := Keywords(description, keywords)
		if score != want {
			t.Fatalf("description %q keywords %v: expected %d, got %d", description, keywords, want, score)
		}
		if len(matched) != len(satisfying) {
			t.Fatalf("description %q keywords %v: expected matched %v, got %v", description, keywords, satisfying, matched)
		}
		for _, k := range matched {
			if !satisfying[k] {
				t.Fatalf("unexpected match %q", k)
			}
		}
	}
}

func TestLoadKeywords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.csv")
	content := "weight,keyword\n1,Go\n2, kubernetes \n3,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	keywords, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(keywords, []string{"Go", "kubernetes"}) {
		t.Fatalf("unexpected keywords: %v", keywords)
	}

	missing, err := LoadKeywords(filepath.Join(dir, "absent.csv"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected no keywords for missing file, got %v, %v", missing, err)
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("word\nGo\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadKeywords(bad); err == nil {
		t.Fatal("expected error for missing keyword column")
	}
}
