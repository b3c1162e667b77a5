package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/common"
)

const (
	lookupTimeout       = 10 * time.Second
	authorLookupTimeout = 5 * time.Second
	descriptionMaxRunes = 10000

	fallbackTitle  = "Unknown title"
	fallbackAuthor = "Unknown author"
)

// BookMetadata is the normalized result of an ISBN lookup.
type BookMetadata struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description *string `json:"description,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty"`
}

// Client talks to the Open Library REST API. Lookups are single-shot: a
// failed call surfaces as an error immediately, there are no retries.
type Client struct {
	http       *resty.Client
	coversBase string
	log        *logrus.Logger
}

func NewClient(baseURL, coversBaseURL string, log *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(lookupTimeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpClient,
		coversBase: strings.TrimRight(coversBaseURL, "/"),
		log:        log,
	}
}

// editionPayload mirrors the edition document returned by
// GET /isbn/{isbn}.json. Authors and description have more than one shape
// upstream, so both are kept raw and decoded leniently.
type editionPayload struct {
	Title       string          `json:"title"`
	Authors     json.RawMessage `json:"authors"`
	Description json.RawMessage `json:"description"`
	Covers      []int64         `json:"covers"`
}

// FetchByISBN resolves an ISBN to book metadata. A missing edition maps to
// common.ErrNotFound; network failures and unexpected upstream responses
// map to common.ErrUpstreamUnavailable.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	c.log.WithField("isbn", isbn).Info("Fetching book metadata from Open Library")

	resp, err := c.http.R().
		SetContext(ctx).
		Get("/isbn/" + isbn + ".json")
	if err != nil {
		return nil, fmt.Errorf("open library request failed: %v: %w", err, common.ErrUpstreamUnavailable)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("no book found for isbn %s: %w", isbn, common.ErrNotFound)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("open library responded with status %d: %w", resp.StatusCode(), common.ErrUpstreamUnavailable)
	}

	var edition editionPayload
	if err := json.Unmarshal(resp.Body(), &edition); err != nil {
		return nil, fmt.Errorf("open library returned a malformed payload: %w", common.ErrUpstreamUnavailable)
	}

	meta := &BookMetadata{
		Title:       fallbackTitle,
		Author:      c.resolveAuthor(ctx, edition.Authors),
		Description: parseDescription(edition.Description),
	}
	if edition.Title != "" {
		meta.Title = edition.Title
	}
	if len(edition.Covers) > 0 && edition.Covers[0] > 0 {
		coverURL := fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversBase, edition.Covers[0])
		meta.CoverURL = &coverURL
	}

	c.log.WithFields(logrus.Fields{"isbn": isbn, "title": meta.Title}).Info("Resolved book metadata")
	return meta, nil
}

// resolveAuthor picks the first author from the edition document. Editions
// carry either inline name strings or {"key": "/authors/OL...A"} references;
// references need a second lookup. Any failure falls back to a placeholder
// rather than failing the whole import.
func (c *Client) resolveAuthor(ctx context.Context, raw json.RawMessage) string {
	if len(raw) == 0 {
		return fallbackAuthor
	}

	var refs []struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &refs); err == nil && len(refs) > 0 && refs[0].Key != "" {
		return c.fetchAuthorName(ctx, refs[0].Key)
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err == nil && len(names) > 0 && names[0] != "" {
		return names[0]
	}

	return fallbackAuthor
}

func (c *Client) fetchAuthorName(ctx context.Context, key string) string {
	authorCtx, cancel := context.WithTimeout(ctx, authorLookupTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(authorCtx).
		Get(key + ".json")
	if err != nil || resp.StatusCode() != http.StatusOK {
		c.log.WithField("author_key", key).Warn("Author lookup failed, using fallback name")
		return fallbackAuthor
	}

	var author struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Body(), &author); err != nil || author.Name == "" {
		return fallbackAuthor
	}
	return author.Name
}

// parseDescription accepts the two shapes Open Library uses for edition
// descriptions: a plain string or {"type": ..., "value": "..."}. Long
// descriptions are truncated.
func parseDescription(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var wrapped struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		text = wrapped.Value
	}
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > descriptionMaxRunes {
		text = string([]rune(text)[:descriptionMaxRunes])
	}
	return &text
}
