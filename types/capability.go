package types

import "context"

// Provider is the web capability used by Scrape, Extract and Crawl nodes.
// Implementations shared between runs must be safe for concurrent use.
type Provider interface {
	ScrapeMarkdown(ctx context.Context, url string) (string, error)
	// ExtractStructured may return a nil value when nothing could be extracted.
	ExtractStructured(ctx context.Context, url string, schema any) (any, error)
	// CrawlMarkdown visits at most maxPages pages (maxPages <= 0 means the
	// provider default) and returns their markdown concatenated.
	CrawlMarkdown(ctx context.Context, seedURLs []string, maxPages int) (string, error)
}

type ProviderRegistry interface {
	// Active returns the provider registered for key, or for the default key
	// when key is empty.
	Active(key string) (Provider, error)
}

type Prompt struct {
	System string
	User   string
	// JSON asks the model to answer with a single JSON document.
	JSON bool
}

type LLM interface {
	Complete(ctx context.Context, prompt *Prompt) (string, error)
}
