// Package parser extracts front-matter, wikilinks, titles, and tags from
// Markdown note content, and cleans markup ahead of embedding.
package parser

import (
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)

// Parse separates YAML front-matter (between leading --- delimiters) from the
// Markdown body. If no front-matter is present, or the YAML block is invalid,
// the whole content is returned as body with nil front-matter.
func Parse(content string) (map[string]Value, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, content
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, content
	}

	yamlBlock := rest[:idx]
	body := strings.TrimSpace(rest[idx+1+len(delim):])

	var fm map[string]Value
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, content
	}
	return fm, body
}

// Title returns the best display name for a note: front-matter name, project,
// or title field, falling back to the filename stem.
func Title(fm map[string]Value, notePath string) string {
	for _, key := range []string{"name", "project", "title"} {
		if v, ok := fm[key]; ok {
			if s := v.Text(); s != "" {
				return s
			}
		}
	}
	return Stem(notePath)
}

// Tags returns the front-matter tags list, empty when absent. A bare string
// tag is treated as a one-element list.
func Tags(fm map[string]Value) []string {
	v, ok := fm["tags"]
	if !ok {
		return nil
	}
	return v.Strings()
}

// ExtractWikiLinks returns the set of wikilink targets in content,
// normalising [[Target|Alias]] to Target.
func ExtractWikiLinks(content string) map[string]struct{} {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)
	links := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target != "" {
			links[target] = struct{}{}
		}
	}
	return links
}

// Stem returns the filename without directory or extension.
func Stem(notePath string) string {
	base := path.Base(notePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
