package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leeineian/cadence/media"
)

// Bandcamp reads track and album pages. Their audio is streamed by yt-dlp
// from the page URL.
type Bandcamp struct {
	scraper *pageScraper
}

func NewBandcamp(httpClient *http.Client) *Bandcamp {
	return &Bandcamp{scraper: newPageScraper(httpClient)}
}

func (b *Bandcamp) IsGroup(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/album/")
}

func (b *Bandcamp) FetchTrack(ctx context.Context, rawURL string) (*media.TrackInfo, error) {
	doc, err := b.scraper.fetch(ctx, rawURL)
	if err != nil {
		return nil, &media.ResolutionError{Op: "bandcamp page", Err: err}
	}
	t := trackFromBandcampPage(doc, rawURL)
	if t.Title == "" {
		return nil, &media.NotFoundError{URL: rawURL}
	}
	return t, nil
}

func (b *Bandcamp) FetchGroup(ctx context.Context, rawURL string) (*media.MediaGroup, error) {
	doc, err := b.scraper.fetch(ctx, rawURL)
	if err != nil {
		return nil, &media.ResolutionError{Op: "bandcamp page", Err: err}
	}
	return groupFromBandcampPage(doc, rawURL), nil
}

// bandcampTitle splits "Name, by Artist".
func bandcampTitle(doc *goquery.Document) (name, artist string) {
	title := meta(doc, "title")
	if title == "" {
		title = meta(doc, "og:title")
	}
	name, artist, _ = strings.Cut(title, ", by ")
	if artist == "" {
		artist = meta(doc, "og:site_name")
	}
	return strings.TrimSpace(name), strings.TrimSpace(artist)
}

func trackFromBandcampPage(doc *goquery.Document, pageURL string) *media.TrackInfo {
	name, artist := bandcampTitle(doc)
	album := strings.TrimSpace(doc.Find("#name-section h3 span a span").First().Text())
	return &media.TrackInfo{
		Source:   media.SourceBandcamp,
		Title:    name,
		Artist:   artist,
		Album:    album,
		Duration: parseClock(doc.Find("span.time_total").First().Text()),
		URL:      pageURL,
	}
}

func groupFromBandcampPage(doc *goquery.Document, pageURL string) *media.MediaGroup {
	album, artist := bandcampTitle(doc)
	g := &media.MediaGroup{Source: media.SourceBandcamp, Title: album}

	base, _ := url.Parse(pageURL)
	doc.Find("table#track_table tr.track_row_view").Each(func(_ int, row *goquery.Selection) {
		href, ok := row.Find("div.title a").First().Attr("href")
		if !ok {
			// Unreleased or purchase-only tracks have no page.
			return
		}
		link := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		g.Tracks = append(g.Tracks, &media.TrackInfo{
			Source:   media.SourceBandcamp,
			Title:    strings.TrimSpace(row.Find("span.track-title").First().Text()),
			Artist:   artist,
			Album:    album,
			Duration: parseClock(row.Find("span.time").First().Text()),
			URL:      link,
		})
	})
	return g
}
