// Package similarity ranks stored jobs against a resume by embedding distance.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/ai"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/vectorstore"
)

// Document is a job to rank. URL keys its embedding.
type Document struct {
	URL  string
	Text string
}

// ScoredResult is a ranked job. Smaller Distance means a closer match.
type ScoredResult struct {
	URL      string
	Text     string
	Distance float64
}

type Ranker struct {
	embedder ai.Embedder
	store    vectorstore.Store
	logger   *zap.Logger
}

func NewRanker(embedder ai.Embedder, store vectorstore.Store, log *zap.Logger) (*Ranker, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}

	return &Ranker{
		embedder: embedder,
		store:    store,
		logger:   logger.WithFields(log, zap.String(logger.FieldModel, embedder.Model())),
	}, nil
}

// Rank embeds documents missing from collection, then returns up to limit
// stored jobs nearest to resume. A limit of zero or less returns every job in
// the collection. Vectors are kept per embedding model under collection.
func (r *Ranker) Rank(ctx context.Context, resume string, docs []Document, collection string, limit int) ([]ScoredResult, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, errors.New("resume text is empty")
	}
	if collection == "" {
		collection = vectorstore.DefaultCollection
	}
	collection = vectorstore.ScopedCollection(collection, r.embedder.Model())

	added, err := r.index(ctx, docs, collection)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		if limit, err = r.store.Count(ctx, collection); err != nil {
			return nil, fmt.Errorf("count %s: %w", collection, err)
		}
	}

	query, err := r.embedder.Embed(ctx, resume)
	if err != nil {
		return nil, fmt.Errorf("embed resume: %w", err)
	}

	matches, err := r.store.Query(ctx, collection, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	results := make([]ScoredResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, ScoredResult{URL: m.ID, Text: m.Document, Distance: m.Distance})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	r.logger.Info("ranked jobs",
		zap.String("collection", collection),
		zap.Int("embedded", added),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// index embeds and stores every document whose URL is not in collection yet.
func (r *Ranker) index(ctx context.Context, docs []Document, collection string) (int, error) {
	added := 0
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}

		exists, err := r.store.Has(ctx, collection, doc.URL)
		if err != nil {
			return added, fmt.Errorf("lookup %s: %w", doc.URL, err)
		}
		if exists {
			continue
		}

		vector, err := r.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return added, fmt.Errorf("embed %s: %w", doc.URL, err)
		}

		if err := r.store.Add(ctx, collection, vectorstore.Record{ID: doc.URL, Document: doc.Text, Embedding: vector}); err != nil {
			return added, fmt.Errorf("store embedding for %s: %w", doc.URL, err)
		}

		r.logger.Debug("embedded job", logger.URLFields(doc.URL, "embedded")...)
		added++
	}
	return added, nil
}
