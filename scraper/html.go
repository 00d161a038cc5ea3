package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractTitle extracts the <title> content from raw HTML. Returns "" when
// the document has none. Used to label stored results for the dashboard.
func ExtractTitle(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
