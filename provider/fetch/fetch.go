// Package fetch implements the web capability with plain HTTP requests and
// HTML to Markdown conversion.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/juju/errors"
	"github.com/kaptinlin/jsonrepair"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/warriorguo/hyperbuild/provider"
	"github.com/warriorguo/hyperbuild/types"
	"github.com/warriorguo/hyperbuild/utils"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "hyperbuild-fetch/1.0"
	DefaultMaxBodySize = 10 * 1024 * 1024
)

var (
	_ types.Provider = &Provider{}
)

type Provider struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	llm         types.LLM
}

type Option func(*Provider)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

func WithUserAgent(userAgent string) Option {
	return func(p *Provider) {
		p.userAgent = userAgent
	}
}

func WithMaxBodySize(n int64) Option {
	return func(p *Provider) {
		p.maxBodySize = n
	}
}

// WithLLM enables ExtractStructured, which asks llm to fill the schema from
// the page markdown. Without it extraction yields nil.
func WithLLM(llm types.LLM) Option {
	return func(p *Provider) {
		p.llm = llm
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				ForceAttemptHTTP2:     true,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.BadRequestf("url cannot be empty")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw, nil
}

func (p *Provider) fetchHTML(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "create request for %s", target)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "fetch %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errors.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize+1))
	if err != nil {
		return nil, nil, errors.Annotatef(err, "read %s", target)
	}
	if int64(len(body)) > p.maxBodySize {
		return nil, nil, errors.Errorf("fetch %s: body exceeds %d bytes", target, p.maxBodySize)
	}
	return body, resp.Request.URL, nil
}

func toMarkdown(body []byte) (string, error) {
	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", errors.Annotatef(err, "convert html to markdown")
	}
	return strings.TrimSpace(md), nil
}

func (p *Provider) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	body, _, err := p.fetchHTML(ctx, url)
	if err != nil {
		return "", errors.Trace(err)
	}
	return toMarkdown(body)
}

const extractSystemPrompt = `You extract structured data from web pages.
Answer with a single JSON value that follows the given JSON schema.
Use null for fields the page does not mention. Do not add commentary.`

func (p *Provider) ExtractStructured(ctx context.Context, url string, schema any) (any, error) {
	md, err := p.ScrapeMarkdown(ctx, url)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if p.llm == nil {
		log.Debugf("no llm configured, extract of %s yields null", url)
		return nil, nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Annotatef(err, "marshal schema")
	}
	answer, err := p.llm.Complete(ctx, &types.Prompt{
		System: extractSystemPrompt,
		User:   fmt.Sprintf("Schema:\n%s\n\nPage (%s):\n%s", schemaJSON, url, md),
		JSON:   true,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "extract %s", url)
	}
	return parseJSONAnswer(answer)
}

// parseJSONAnswer decodes a model answer, repairing it when it is not valid
// JSON as given.
func parseJSONAnswer(answer string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(answer), &v); err == nil {
		return v, nil
	}
	repaired, err := jsonrepair.JSONRepair(answer)
	if err != nil {
		return nil, errors.Annotatef(err, "repair model answer")
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, errors.Annotatef(err, "decode repaired model answer")
	}
	return v, nil
}

// CrawlMarkdown walks breadth first from the seeds, following links that stay
// on the host of the page they were found on.
func (p *Provider) CrawlMarkdown(ctx context.Context, seedURLs []string, maxPages int) (string, error) {
	if maxPages <= 0 {
		maxPages = provider.DefaultMaxPages
	}

	queue := make([]string, 0, len(seedURLs))
	for _, seed := range seedURLs {
		if normalized, err := normalizeURL(seed); err == nil {
			queue = append(queue, normalized)
		}
	}
	queue = utils.UniqueSlice(queue)
	if len(queue) == 0 {
		return "", errors.BadRequestf("no seed urls")
	}

	visited := make(map[string]bool, len(queue))
	for _, u := range queue {
		visited[u] = true
	}

	var (
		pages   []provider.Page
		lastErr error
	)
	for len(queue) > 0 && len(pages) < maxPages {
		current := queue[0]
		queue = queue[1:]

		body, final, err := p.fetchHTML(ctx, current)
		if err != nil {
			log.Warnf("crawl skipped %s: %v", current, err)
			lastErr = err
			continue
		}
		md, err := toMarkdown(body)
		if err != nil {
			lastErr = err
			continue
		}
		pages = append(pages, provider.Page{URL: current, Markdown: md})

		for _, link := range sameHostLinks(body, final) {
			if !visited[link] {
				visited[link] = true
				queue = append(queue, link)
			}
		}
	}
	if len(pages) == 0 {
		return "", errors.Annotatef(lastErr, "crawl fetched no page")
	}
	return provider.JoinPages(pages), nil
}

func sameHostLinks(body []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil || base == nil {
		return nil
	}

	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				abs.Fragment = ""
				if abs.Host != base.Host || (abs.Scheme != "http" && abs.Scheme != "https") {
					continue
				}
				links = append(links, abs.String())
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return utils.UniqueSlice(links)
}
