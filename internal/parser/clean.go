package parser

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	imageRe      = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	cleanWikiRe  = regexp.MustCompile(`\[\[(.*?)\]\]`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe    = regexp.MustCompile(`(?m)^#+\s+`)
	blankRunRe   = regexp.MustCompile(`\n\s*\n`)
)

// CleanMarkdown strips markup that adds no semantic signal before embedding:
// code blocks, inline code, images, link syntax, and heading markers. Link
// display text is kept.
func CleanMarkdown(text string) string {
	text = fencedCodeRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "")
	text = cleanWikiRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(m, "[["), "]]")
		// [[Target|Alias]] reads as the alias.
		if i := strings.Index(inner, "|"); i >= 0 {
			inner = inner[i+1:]
		}
		return inner
	})
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
