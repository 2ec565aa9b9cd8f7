package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxProfileBytes = 2 << 20

// titleSuffixes are stripped from <title> fallbacks such as "Jane Doe | Flickr".
var titleSuffixes = []string{" | Flickr", " - Flickr", " on Flickr"}

// ErrNoDisplayName indicates a profile page was fetched but named nobody.
var ErrNoDisplayName = errors.New("profile page has no display name")

// Lookup resolves a single identifier to a display name.
type Lookup interface {
	DisplayName(ctx context.Context, nsid string) (string, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, nsid string) (string, error)

// DisplayName calls f.
func (f LookupFunc) DisplayName(ctx context.Context, nsid string) (string, error) {
	return f(ctx, nsid)
}

// ProfileClient reads display names from public profile pages.
type ProfileClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Lookup = (*ProfileClient)(nil)

// Option configures a ProfileClient.
type Option func(*ProfileClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ProfileClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(userAgent string) Option {
	return func(c *ProfileClient) {
		c.userAgent = strings.TrimSpace(userAgent)
	}
}

// NewProfileClient creates a client for profiles under baseURL. timeout bounds
// each request when no custom HTTP client is supplied.
func NewProfileClient(baseURL string, timeout time.Duration, opts ...Option) (*ProfileClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("profile base url required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &ProfileClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ProfileURL returns the public profile page address for nsid.
func (c *ProfileClient) ProfileURL(nsid string) string {
	return fmt.Sprintf("%s/people/%s/", c.baseURL, url.PathEscape(nsid))
}

// DisplayName fetches the profile page for nsid and returns the name it shows.
func (c *ProfileClient) DisplayName(ctx context.Context, nsid string) (string, error) {
	nsid = strings.TrimSpace(nsid)
	if nsid == "" {
		return "", errors.New("nsid required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProfileURL(nsid), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("profile %s: status %d: %s", nsid, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return ExtractDisplayName(io.LimitReader(resp.Body, maxProfileBytes))
}

// ExtractDisplayName returns the og:title of an HTML document, falling back to
// its <title> with the site suffix removed.
func ExtractDisplayName(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var title string
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse profile: %w", err)
			}
			if name := cleanTitle(title); name != "" {
				return name, nil
			}
			return "", ErrNoDisplayName
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.DataAtom {
			case atom.Meta:
				if name := ogTitle(token); name != "" {
					return name, nil
				}
			case atom.Title:
				inTitle = title == ""
			case atom.Body:
				// og:title lives in <head>; the first <title> is enough after that.
				if name := cleanTitle(title); name != "" {
					return name, nil
				}
			}
		case html.TextToken:
			if inTitle {
				title += string(tokenizer.Text())
			}
		case html.EndTagToken:
			if tokenizer.Token().DataAtom == atom.Title {
				inTitle = false
			}
		}
	}
}

func ogTitle(token html.Token) string {
	var property, content string
	for _, attr := range token.Attr {
		switch strings.ToLower(attr.Key) {
		case "property", "name":
			property = strings.ToLower(strings.TrimSpace(attr.Val))
		case "content":
			content = attr.Val
		}
	}
	if property != "og:title" {
		return ""
	}
	return strings.Join(strings.Fields(content), " ")
}

func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	for _, suffix := range titleSuffixes {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}
