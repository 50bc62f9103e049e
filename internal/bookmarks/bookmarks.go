// Package bookmarks reads job URLs from a Chrome bookmarks file.
package bookmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	typeFolder = "folder"
	typeURL    = "url"
)

type node struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Children []*node `json:"children"`
}

type file struct {
	Roots map[string]*node `json:"roots"`
}

// rootOrder is the order Chrome writes its roots in. Unknown roots follow.
var rootOrder = []string{"bookmark_bar", "other", "synced"}

// ListURLs returns every URL under folder, a slash separated path such as
// "Job-searching/Jobs", including URLs in nested folders. The first root
// containing the folder wins.
func ListURLs(path, folder string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode bookmarks %q: %w", path, err)
	}

	parts := splitPath(folder)
	for _, root := range orderedRoots(f.Roots) {
		if found := findFolder(root, parts); found != nil {
			return collectURLs(found, nil), nil
		}
	}

	return nil, fmt.Errorf("folder %q not found in bookmarks", folder)
}

func splitPath(folder string) []string {
	var parts []string
	for _, p := range strings.Split(folder, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func orderedRoots(roots map[string]*node) []*node {
	result := make([]*node, 0, len(roots))
	seen := make(map[string]bool, len(rootOrder))
	for _, name := range rootOrder {
		if root, ok := roots[name]; ok && root != nil {
			result = append(result, root)
			seen[name] = true
		}
	}

	var rest []string
	for name, root := range roots {
		if !seen[name] && root != nil {
			rest = append(rest, name)
		}
	}
	// map order is random; keep lookups deterministic
	sort.Strings(rest)
	for _, name := range rest {
		result = append(result, roots[name])
	}
	return result
}

func findFolder(n *node, parts []string) *node {
	if len(parts) == 0 {
		return n
	}
	if n.Type != typeFolder {
		return nil
	}

	for _, child := range n.Children {
		if child != nil && child.Type == typeFolder && child.Name == parts[0] {
			return findFolder(child, parts[1:])
		}
	}
	return nil
}

func collectURLs(folder *node, urls []string) []string {
	if urls == nil {
		urls = []string{}
	}
	for _, child := range folder.Children {
		if child == nil {
			continue
		}
		switch child.Type {
		case typeURL:
			urls = append(urls, child.URL)
		case typeFolder:
			urls = collectURLs(child, urls)
		}
	}
	return urls
}
