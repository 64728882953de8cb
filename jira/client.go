package jira

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	apiPath = "/rest/api/2"

	DefaultPageSize = 100

	// detailFields is the field list requested for an issue snapshot. The
	// points field is appended at request time.
	detailFields = "assignee,status,summary,description,created,updated,resolutiondate,issuetype,components,priority,resolution"
)

// Credentials authenticate requests. Token, when set, is sent as a bearer
// token and Username/Password are ignored.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Client wraps the Jira REST API v2.
type Client struct {
	BaseURL    string
	PageSize   int
	Mapper     Mapper
	HTTPClient *http.Client

	creds Credentials
	log   zerolog.Logger
}

// NewClient creates a new Jira API client. baseURL is the server root, e.g.
// https://jira.example.com.
func NewClient(baseURL string, creds Credentials, timeout time.Duration, log zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: timeout}
	if creds.Token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: creds.Token,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = timeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		PageSize:   DefaultPageSize,
		Mapper:     defaultMapper,
		HTTPClient: httpClient,
		creds:      creds,
		log:        log.With().Str("component", "jira").Logger(),
	}
}

// Fetch performs one GET and returns the full response body. Failures of any
// kind, including non-2xx answers, are returned as *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.creds.Token == "" && c.creds.Username != "" {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	c.log.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Body: excerpt(body)}
		if resp.StatusCode == http.StatusNotFound {
			terr.Err = ErrNotFound
		}
		return nil, terr
	}
	return body, nil
}

// SearchURL returns the search request for one page of an encoded query.
func (c *Client) SearchURL(encodedQuery string, startAt int) string {
	return fmt.Sprintf("%s%s/search?jql=%s&expand=names&maxResults=%d&fields=updated&startAt=%d",
		c.BaseURL, apiPath, encodedQuery, c.pageSize(), startAt)
}

// SearchPage fetches and maps one page of search results. Errors are
// reported in PageResult.Err.
func (c *Client) SearchPage(ctx context.Context, encodedQuery string, startAt int) PageResult {
	body, err := c.Fetch(ctx, c.SearchURL(encodedQuery, startAt))
	if err != nil {
		return PageResult{Offset: startAt, Err: err}
	}
	return c.Mapper.ParseSearchPage(body, startAt)
}

// GetIssue fetches a full issue snapshot by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*IssueDetail, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("jira: empty issue key")
	}
	fields := detailFields
	if c.Mapper.PointsField != "" {
		fields += "," + c.Mapper.PointsField
	}
	u := fmt.Sprintf("%s%s/issue/%s?fields=%s", c.BaseURL, apiPath, url.PathEscape(key), fields)

	body, err := c.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	detail, err := c.Mapper.ParseDetail(body)
	return &detail, err
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func excerpt(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
