// Package static serves fixed markdown per URL. It backs offline runs and
// tests.
package static

import (
	"context"
	"os"
	"sync"

	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/provider"
	"github.com/warriorguo/hyperbuild/types"
	"github.com/warriorguo/hyperbuild/utils"
)

var (
	_ types.Provider = &Provider{}
)

type Provider struct {
	mu sync.RWMutex

	pages      map[string]string
	structured map[string]any
}

func New(pages map[string]string) *Provider {
	p := &Provider{pages: make(map[string]string), structured: make(map[string]any)}
	for url, md := range pages {
		p.pages[url] = md
	}
	return p
}

// LoadFile reads a JSON object mapping urls to markdown.
func LoadFile(name string) (*Provider, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Annotatef(err, "read static pages %s", name)
	}
	pages := make(map[string]string)
	if err := utils.Unserialize(b, &pages); err != nil {
		return nil, errors.Annotatef(err, "decode static pages %s", name)
	}
	return New(pages), nil
}

// SetStructured sets what ExtractStructured returns for url.
func (p *Provider) SetStructured(url string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.structured[url] = value
}

func (p *Provider) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	md, exists := p.pages[url]
	if !exists {
		return "", errors.NotFoundf("page %s", url)
	}
	return md, nil
}

func (p *Provider) ExtractStructured(ctx context.Context, url string, schema any) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if v, exists := p.structured[url]; exists {
		return v, nil
	}
	if _, exists := p.pages[url]; !exists {
		return nil, errors.NotFoundf("page %s", url)
	}
	return nil, nil
}

func (p *Provider) CrawlMarkdown(ctx context.Context, seedURLs []string, maxPages int) (string, error) {
	if maxPages <= 0 {
		maxPages = provider.DefaultMaxPages
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	pages := make([]provider.Page, 0, len(seedURLs))
	for _, url := range seedURLs {
		if len(pages) >= maxPages {
			break
		}
		if md, exists := p.pages[url]; exists {
			pages = append(pages, provider.Page{URL: url, Markdown: md})
		}
	}
	if len(pages) == 0 {
		return "", errors.NotFoundf("none of %v", seedURLs)
	}
	return provider.JoinPages(pages), nil
}
