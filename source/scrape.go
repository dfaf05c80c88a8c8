package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// pageScraper fetches public pages and reads their metadata tags.
type pageScraper struct {
	client *http.Client
}

func newPageScraper(client *http.Client) *pageScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &pageScraper{client: client}
}

func (p *pageScraper) fetch(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return parseDocument(resp.Body)
}

// finalURL follows redirects of short links and returns where they land.
func (p *pageScraper) finalURL(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return resp.Request.URL.String(), nil
}

func parseDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// meta returns the content of a <meta> tag keyed by property or name.
func meta(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf("meta[property=%q], meta[name=%q]", key, key)).First()
	return strings.TrimSpace(sel.AttrOr("content", ""))
}

// metaAll returns the contents of every <meta> tag keyed by property or name.
func metaAll(doc *goquery.Document, key string) []string {
	var out []string
	doc.Find(fmt.Sprintf("meta[property=%q], meta[name=%q]", key, key)).Each(func(_ int, s *goquery.Selection) {
		if c := strings.TrimSpace(s.AttrOr("content", "")); c != "" {
			out = append(out, c)
		}
	})
	return out
}
