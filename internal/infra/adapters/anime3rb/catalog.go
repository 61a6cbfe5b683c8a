// Package anime3rb scrapes the anime3rb catalog for titles, episodes and download links.
package anime3rb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
)

var _ adapter.AnimeCatalog = (*Catalog)(nil)

const (
	maxSearchResults = 15
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	reNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reYear   = regexp.MustCompile(`\d{4}`)
	reDigits = regexp.MustCompile(`\d+`)

	// Labels are matched in this order, which is also the order returned.
	knownQualities = []string{"1080p", "720p", "480p"}
)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Requests per second against the site; zero disables pacing.
	RequestRate float64
}

type Catalog struct {
	base    *url.URL
	ua      string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewCatalog(cfg Config, logger *zerolog.Logger) (*Catalog, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid anime catalog url %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := &Catalog{
		base:   base,
		ua:     cfg.UserAgent,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.RequestRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestRate), 1)
	}
	return c, nil
}

func (c *Catalog) document(ctx context.Context, target string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", target, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

// resolve makes href absolute against the catalog base.
func (c *Catalog) resolve(href string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	return c.base.ResolveReference(u), true
}

func (c *Catalog) Search(ctx context.Context, query string) ([]model.Anime, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("anime search: %w", domain.ErrInvalidArgument)
	}
	doc, err := c.document(ctx, c.base.String()+"/search?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var out []model.Anime
	doc.Find("div.title-card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if a, ok := c.parseCard(card); ok {
			out = append(out, a)
		}
		return len(out) < maxSearchResults
	})
	c.logger.Debug().Str("query", query).Int("results", len(out)).Msg("anime search")
	return out, nil
}

func (c *Catalog) parseCard(card *goquery.Selection) (model.Anime, bool) {
	href, ok := card.Find("a[href]").First().Attr("href")
	title := strings.TrimSpace(card.Find("h2.title-name").First().Text())
	if !ok || title == "" {
		return model.Anime{}, false
	}
	link, ok := c.resolve(href)
	if !ok {
		return model.Anime{}, false
	}
	a := model.Anime{Title: title, URL: link.String()}
	if src, ok := card.Find("img").First().Attr("src"); ok {
		a.Poster = src
	}

	details := card.Find("a.details").First()
	details.Find("div.genres span").Each(func(_ int, s *goquery.Selection) {
		if g := strings.TrimSpace(s.Text()); g != "" {
			a.Genres = append(a.Genres, g)
		}
	})
	details.Find("span.badge").Each(func(_ int, badge *goquery.Selection) {
		text := strings.TrimSpace(badge.Text())
		switch {
		case badge.Find("svg").Length() > 0 && a.Rating == 0:
			if m := reNumber.FindString(text); m != "" {
				a.Rating, _ = strconv.ParseFloat(m, 64)
			}
		case strings.Contains(text, "حلقات") || strings.Contains(text, "حلقة"):
			if m := reDigits.FindString(text); m != "" {
				a.EpisodeCount, _ = strconv.Atoi(m)
			}
		case reYear.MatchString(text):
			a.Season = text
		}
	})
	a.Synopsis = strings.TrimSpace(details.Find("p.synopsis").First().Text())
	return a, true
}

// Episodes lists the title's episode links ordered by number.
func (c *Catalog) Episodes(ctx context.Context, anime model.Anime) ([]model.Episode, error) {
	if anime.URL == "" {
		return nil, fmt.Errorf("episodes: %w", domain.ErrInvalidArgument)
	}
	doc, err := c.document(ctx, anime.URL)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []model.Episode
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, ok := c.resolve(href)
		if !ok || u.Host != c.base.Host || !strings.HasPrefix(u.Path, "/episode/") {
			return
		}
		label := s.Find("div.video-data span").First().Text()
		n, err := strconv.Atoi(strings.Join(reDigits.FindAllString(label, -1), ""))
		if err != nil || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, model.Episode{Number: n, URL: u.String()})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Qualities returns the non-HEVC download links of an episode page.
func (c *Catalog) Qualities(ctx context.Context, ep model.Episode) ([]model.Quality, error) {
	if ep.URL == "" {
		return nil, fmt.Errorf("qualities: %w", domain.ErrInvalidArgument)
	}
	doc, err := c.document(ctx, ep.URL)
	if err != nil {
		return nil, err
	}
	found := make(map[string]string)
	doc.Find("label").Each(func(_ int, lbl *goquery.Selection) {
		text := lbl.Text()
		if strings.Contains(text, "HEVC") {
			return
		}
		q := ""
		for _, k := range knownQualities {
			if strings.Contains(text, k) {
				q = k
				break
			}
		}
		if q == "" || found[q] != "" {
			return
		}
		if link := c.downloadLinkNear(lbl); link != "" {
			found[q] = link
		}
	})

	out := make([]model.Quality, 0, len(found))
	for _, k := range knownQualities {
		if u, ok := found[k]; ok {
			out = append(out, model.Quality{Label: k, URL: u})
		}
	}
	return out, nil
}

// downloadLinkNear walks up from a quality label to the block holding its
// download anchor. The walk stops at a container shared with other labels.
func (c *Catalog) downloadLinkNear(lbl *goquery.Selection) string {
	block := lbl.Parent()
	for depth := 0; depth < 4 && block.Length() > 0; depth++ {
		if block.Find("label").Length() > 1 {
			return ""
		}
		var link string
		block.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if u, ok := c.resolve(href); ok && u.Host == c.base.Host && strings.HasPrefix(u.Path, "/download/") {
				link = u.String()
				return false
			}
			return true
		})
		if link != "" {
			return link
		}
		block = block.Parent()
	}
	return ""
}
