package provider

import "strings"

// DefaultMaxPages bounds a crawl when the node does not set maxPages.
const DefaultMaxPages = 10

type Page struct {
	URL      string
	Markdown string
}

// JoinPages concatenates crawled pages, each under a heading naming its URL.
func JoinPages(pages []Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("# ")
		sb.WriteString(p.URL)
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(p.Markdown))
	}
	return sb.String()
}
