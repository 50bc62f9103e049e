// Package vectorstore keeps one embedding per document ID in named collections.
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultCollection holds job posting embeddings.
const DefaultCollection = "job_embeddings"

// ScopedCollection names the collection holding vectors of one embedding
// model, so switching models never mixes vector spaces.
func ScopedCollection(collection, model string) string {
	model = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(strings.TrimSpace(model)))
	if model == "" {
		return collection
	}
	return collection + "__" + model
}

// Record is an embedded document. ID is the job URL.
type Record struct {
	ID        string
	Document  string
	Embedding []float32
}

// Match is a query hit. Distance is the squared euclidean distance to the
// query vector, smaller is closer.
type Match struct {
	ID       string
	Document string
	Distance float64
}

// Store is a collection-scoped vector index.
type Store interface {
	Has(ctx context.Context, collection, id string) (bool, error)
	// Add stores rec unless a record with the same ID already exists in the collection.
	Add(ctx context.Context, collection string, rec Record) error
	Count(ctx context.Context, collection string) (int, error)
	// Query returns up to n records ordered by ascending distance to vector.
	Query(ctx context.Context, collection string, vector []float32, n int) ([]Match, error)
	Close() error
}

// SquaredL2 returns the squared euclidean distance between a and b.
func SquaredL2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}

// nearest ranks records by distance to vector and keeps the first n.
func nearest(records []Record, vector []float32, n int) ([]Match, error) {
	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		distance, err := SquaredL2(rec.Embedding, vector)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", rec.ID, err)
		}
		matches = append(matches, Match{ID: rec.ID, Document: rec.Document, Distance: distance})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if n >= 0 && n < len(matches) {
		matches = matches[:n]
	}
	return matches, nil
}
