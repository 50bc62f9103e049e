package scoring

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const keywordColumn = "keyword"

// Keywords counts the keywords contained in description, case-insensitively.
// Every entry of keywords counts on its own, so a keyword listed twice scores
// twice. The matched list holds each matching keyword once, in list order.
func Keywords(description string, keywords []string) (int, []string) {
	text := strings.ToLower(description)

	score := 0
	matched := make([]string, 0)
	seen := make(map[string]struct{})

	for _, k := range keywords {
		if !strings.Contains(text, strings.ToLower(k)) {
			continue
		}

		score++
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		matched = append(matched, k)
	}

	return score, matched
}

// LoadKeywords reads the keyword column of a CSV file. A missing file yields no keywords.
func LoadKeywords(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read keywords header: %w", err)
	}

	column := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), keywordColumn) {
			column = i
			break
		}
	}
	if column == -1 {
		return nil, fmt.Errorf("keywords file %q has no %q column", path, keywordColumn)
	}

	var keywords []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read keywords: %w", err)
		}
		if column >= len(row) {
			continue
		}
		if k := strings.TrimSpace(row[column]); k != "" {
			keywords = append(keywords, k)
		}
	}

	return keywords, nil
}
