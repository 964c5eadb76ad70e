package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Credentials is the Basic auth pair the provider expects: the account email
// suffixed with /token as the username, the API token as the password.
type Credentials struct {
	Email    string
	APIToken string
}

// Client executes the engine's GET requests against one account. Redirects
// are not followed; a redirect on an API path means a misconfigured
// subdomain, not a page to chase.
type Client struct {
	baseURL *url.URL
	creds   Credentials
	http    *http.Client
}

const defaultTimeout = 60 * time.Second

func NewClient(baseURL string, creds Credentials, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no scheme or host", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: u,
		creds:   creds,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Get runs one page request and returns the body and response headers.
// Non-2xx statuses come back as *StatusError; headers are returned even on
// failure so the rate governor can still read them.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, http.Header, error) {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request for %s: %w", u.String(), err)
	}
	req.SetBasicAuth(c.creds.Email+"/token", c.creds.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("requesting %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("reading response for %s: %w", u.String(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().Int("status", resp.StatusCode).Str("url", u.String()).Msg("request failed")
		return body, resp.Header, &StatusError{Code: resp.StatusCode, URL: u.String()}
	}

	return body, resp.Header, nil
}
