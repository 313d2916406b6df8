package llmextract

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags never contribute to the cleaned visible text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true,
}

// CleanHTML strips script/style/noscript/iframe content, extracts the
// remaining visible text, collapses whitespace, and truncates to
// maxChars with a truncation marker. Grounded on spec.md §4.5 step 1.
func CleanHTML(htmlDoc string, maxChars int) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlDoc))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return truncate(collapseWhitespace(b.String()), maxChars)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			if skippedTags[tok.Data] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
		case html.EndTagToken:
			tok := tokenizer.Token()
			if skippedTags[tok.Data] && skipDepth > 0 {
				skipDepth--
				continue
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + " …[truncated]"
}
