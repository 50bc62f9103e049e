// Package htmltext turns fetched HTML into plain text for the extractor.
package htmltext

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RemovedTags are dropped together with their subtrees before text is collected.
var RemovedTags = []string{"script", "style", "nav", "footer", "header"}

// Clean strips RemovedTags and returns the remaining text nodes, each trimmed,
// one per line. Blank nodes are skipped.
func Clean(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strings.Join(RemovedTags, ", ")).Remove()

	lines := make([]string, 0)
	collectText(doc.Selection, &lines)

	return strings.Join(lines, "\n"), nil
}

func collectText(sel *goquery.Selection, lines *[]string) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			if text := strings.TrimSpace(child.Text()); text != "" {
				*lines = append(*lines, text)
			}
		case "#comment":
		default:
			collectText(child, lines)
		}
	})
}
