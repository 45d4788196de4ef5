package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nao1215/spiderman/internal/entity"
	"github.com/nao1215/spiderman/internal/model"
)

// Meta describes the exchange a body came from.
type Meta struct {
	// URL is the URL the scraper was asked to fetch.
	URL string

	Request  *http.Request
	Response *http.Response
}

// Parser turns a fetched body into a scraping result.
// Success and ExecutionTime of the returned result are set by the Scraper.
type Parser interface {
	Parse(ctx context.Context, body []byte, meta Meta) (entity.ScrapingResult, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, body []byte, meta Meta) (entity.ScrapingResult, error)

// Parse calls f(ctx, body, meta).
func (f ParserFunc) Parse(ctx context.Context, body []byte, meta Meta) (entity.ScrapingResult, error) {
	return f(ctx, body, meta)
}

// HTMLParser builds a model.Page from an HTML response and returns the
// page's links as the next URLs. Non-HTML responses produce a page without
// links.
type HTMLParser struct{}

var _ Parser = HTMLParser{}

// Parse implements Parser.
func (HTMLParser) Parse(_ context.Context, body []byte, meta Meta) (entity.ScrapingResult, error) {
	page := &model.Page{
		URL:       meta.URL,
		FetchedAt: time.Now(),
	}
	page.SetBody(body)

	base, err := url.Parse(meta.URL)
	if err != nil {
		return entity.ScrapingResult{}, err
	}

	if resp := meta.Response; resp != nil {
		page.StatusCode = resp.StatusCode
		page.Headers = resp.Header.Clone()
		page.SetContentType(resp.Header.Get("Content-Type"))
		if resp.Request != nil && resp.Request.URL != nil {
			base = resp.Request.URL
			if final := base.String(); final != meta.URL {
				page.FinalURL = final
			}
		}
	}

	if page.ContentType != "" && !page.IsHTML() {
		return entity.ScrapingResult{Data: page}, nil
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return entity.ScrapingResult{}, err
	}

	w := &walker{base: base, page: page, seen: make(map[string]struct{})}
	w.walk(doc)
	page.Snapshot = strings.Join(strings.Fields(w.text.String()), " ")
	page.TruncateSnapshot()

	return entity.ScrapingResult{
		Data:     page,
		NextURLs: page.Links,
	}, nil
}

// walker collects page data in a single pass over the document.
type walker struct {
	base *url.URL
	page *model.Page
	seen map[string]struct{}
	text strings.Builder
}

func (w *walker) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "title":
			if w.page.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				w.page.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			if strings.EqualFold(getAttr(n, "name"), "description") {
				w.page.Description = strings.TrimSpace(getAttr(n, "content"))
			}
		case "base":
			if href := getAttr(n, "href"); href != "" {
				if u, err := w.base.Parse(strings.TrimSpace(href)); err == nil {
					w.base = u
				}
			}
		case "a", "area":
			if link := w.resolve(getAttr(n, "href")); link != "" {
				w.addLink(link)
			}
		}
	case html.TextNode:
		w.text.WriteString(n.Data)
		w.text.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) addLink(link string) {
	if _, ok := w.seen[link]; ok {
		return
	}
	w.seen[link] = struct{}{}
	w.page.Links = append(w.page.Links, link)
}

// resolve returns href as an absolute http(s) URL without fragment, or ""
// for links that cannot be crawled.
func (w *walker) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := w.base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
