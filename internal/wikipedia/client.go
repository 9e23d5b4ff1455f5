package wikipedia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL    = "https://en.wikipedia.org/w/api.php"
	DefaultSentences = 3
	defaultUserAgent = "querybird/1.0 (https://github.com/querybird/querybird)"

	acceptJSON = "application/json"
	acceptHTML = "text/html"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	APIURL            string
	Sentences         int
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
}

// Client resolves topics against the MediaWiki action API. Extracts are
// cut to Options.Sentences by the TextExtracts extension on the server.
// Requests share one rate limiter.
type Client struct {
	opts    Options
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Sentences <= 0 {
		opts.Sentences = DefaultSentences
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)

	return &Client{
		opts:    opts,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

var errNoPage = errors.New("no such page")

// Lookup resolves query to the best matching article. It never returns an
// error; every failure is folded into the Result kind.
func (c *Client) Lookup(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return notFound()
	}

	title, err := c.search(ctx, query)
	if errors.Is(err, errNoPage) {
		return notFound()
	}
	if err != nil {
		return other(err)
	}

	pg, err := c.page(ctx, title)
	if errors.Is(err, errNoPage) {
		return notFound()
	}
	if err != nil {
		return other(err)
	}

	if pg.isDisambiguation() {
		options, err := c.links(ctx, pg.Title)
		if err != nil {
			return other(err)
		}
		return ambiguous(options)
	}

	extract := strings.TrimSpace(pg.Extract)
	if extract == "" && pg.FullURL != "" {
		text, err := c.articleText(ctx, pg.FullURL)
		if err != nil {
			return other(err)
		}
		if extract, err = firstSentences(text, c.opts.Sentences); err != nil {
			return other(err)
		}
	}
	if extract == "" {
		return notFound()
	}

	return success(pg.Title, extract, pg.FullURL)
}

// search returns the title of the best hit for query.
func (c *Client) search(ctx context.Context, query string) (string, error) {
	var body struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
		Error *apiError `json:"error"`
	}
	err := c.getJSON(ctx, map[string]string{
		"action":   "query",
		"list":     "search",
		"srsearch": query,
		"srlimit":  "1",
		"format":   "json",
	}, &body)
	if err != nil {
		return "", err
	}
	if body.Error != nil {
		return "", fmt.Errorf("search: %s", body.Error.Info)
	}
	if len(body.Query.Search) == 0 {
		return "", errNoPage
	}
	return body.Query.Search[0].Title, nil
}

type apiError struct {
	Info string `json:"info"`
}

type page struct {
	Title     string         `json:"title"`
	Missing   bool           `json:"missing"`
	Extract   string         `json:"extract"`
	FullURL   string         `json:"fullurl"`
	PageProps map[string]any `json:"pageprops"`
}

func (p page) isDisambiguation() bool {
	_, ok := p.PageProps["disambiguation"]
	return ok
}

// page fetches the plain-text extract of title, limited to the configured
// sentence count, together with its URL and disambiguation flag.
// Redirects are followed.
func (c *Client) page(ctx context.Context, title string) (*page, error) {
	var body struct {
		Query struct {
			Pages []page `json:"pages"`
		} `json:"query"`
		Error *apiError `json:"error"`
	}
	err := c.getJSON(ctx, map[string]string{
		"action":        "query",
		"prop":          "extracts|info|pageprops",
		"titles":        title,
		"redirects":     "1",
		"exsentences":   strconv.Itoa(c.opts.Sentences),
		"explaintext":   "1",
		"inprop":        "url",
		"ppprop":        "disambiguation",
		"format":        "json",
		"formatversion": "2",
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, fmt.Errorf("extract: %s", body.Error.Info)
	}
	if len(body.Query.Pages) == 0 || body.Query.Pages[0].Missing {
		return nil, errNoPage
	}
	pg := body.Query.Pages[0]
	if pg.Title == "" {
		pg.Title = title
	}
	return &pg, nil
}

// links lists the article titles a disambiguation page points to, in page
// order, capped at MaxOptions.
func (c *Client) links(ctx context.Context, title string) ([]string, error) {
	var body struct {
		Query struct {
			Pages []struct {
				Links []struct {
					Title string `json:"title"`
				} `json:"links"`
			} `json:"pages"`
		} `json:"query"`
	}
	err := c.getJSON(ctx, map[string]string{
		"action":        "query",
		"prop":          "links",
		"titles":        title,
		"plnamespace":   "0",
		"pllimit":       "max",
		"format":        "json",
		"formatversion": "2",
	}, &body)
	if err != nil {
		return nil, err
	}

	options := make([]string, 0, MaxOptions)
	for _, p := range body.Query.Pages {
		for _, l := range p.Links {
			options = append(options, l.Title)
			if len(options) == MaxOptions {
				return options, nil
			}
		}
	}
	return options, nil
}

// articleText downloads the article HTML and extracts its readable text.
func (c *Client) articleText(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse article url: %w", err)
	}
	resp, err := c.get(ctx, pageURL, nil, acceptHTML)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(bytes.NewReader(resp.Body()), parsed)
	if err != nil {
		return "", fmt.Errorf("extract article text: %w", err)
	}
	return article.TextContent, nil
}

// getJSON calls the action API and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, params map[string]string, out any) error {
	resp, err := c.get(ctx, c.opts.APIURL, params, acceptJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", params["action"], err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, accept string) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, errNoPage
	case resp.StatusCode() != http.StatusOK:
		slog.Debug("wikipedia request failed", "url", endpoint, "status", resp.StatusCode())
		return nil, fmt.Errorf("wikipedia returned HTTP %d", resp.StatusCode())
	}
	return resp, nil
}
