package dealscout

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/dealscout/internal/domain"
	transport "github.com/kailas-cloud/dealscout/internal/transport/chi"
	"github.com/kailas-cloud/dealscout/internal/usecase/pipeline"
)

const defaultTimeout = 120 * time.Second

// Re-exported API types, so SDK users never import internal packages.
type (
	// Location is a WGS84 coordinate pair.
	Location = domain.Location
	// SearchResponse is a finished search.
	SearchResponse = transport.SearchResponse
	// Event is one streamed progress update.
	Event = pipeline.Event
)

// Sentinel errors mapped from server error codes. Check with errors.Is.
var (
	ErrInvalidQuery        = domain.ErrInvalidQuery
	ErrLocationOutOfBounds = domain.ErrLocationOutOfBounds
	ErrSearchNotFound      = domain.ErrSearchNotFound
	ErrProvider            = domain.ErrProvider
)

// Client is the dealscout SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a dealscout Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("dealscout: base URL required (use WithBaseURL)")
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		apiKey:  cfg.apiKey,
		http:    httpClient,
	}, nil
}

// Search runs a full product search and blocks until it finishes.
func (c *Client) Search(ctx context.Context, query string, loc Location) (*SearchResponse, error) {
	body, err := json.Marshal(transport.SearchRequest{Query: query, Location: loc})
	if err != nil {
		return nil, fmt.Errorf("dealscout: encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp SearchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchStream runs a search and calls onEvent for every progress update,
// including the final result event. It returns once the stream closes.
func (c *Client) SearchStream(ctx context.Context, query string, loc Location, onEvent func(Event)) error {
	q := url.Values{}
	q.Set("query", query)
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(loc.Lng, 'f', -1, 64))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/search/stream?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dealscout: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("dealscout: decode event: %w", err)
		}
		onEvent(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("dealscout: read stream: %w", err)
	}
	return nil
}

// GetSearch replays a finished search by id. The response carries
// Cached=true; expired searches return ErrSearchNotFound.
func (c *Client) GetSearch(ctx context.Context, searchID string) (*SearchResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/search/"+url.PathEscape(searchID), nil)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports the server's component health by name.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dealscout: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// degraded health still carries a readable body
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("dealscout: decode health: %w", err)
	}
	return body.Checks, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var r *http.Request
	var err error
	if body == nil {
		r, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	} else {
		r, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	}
	if err != nil {
		return nil, fmt.Errorf("dealscout: build request: %w", err)
	}
	if c.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return r, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dealscout: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dealscout: decode response: %w", err)
	}
	return nil
}

// codeSentinels maps server error codes back to sentinel errors.
var codeSentinels = map[string]error{
	"invalid_query":          ErrInvalidQuery,
	"location_out_of_bounds": ErrLocationOutOfBounds,
	"search_not_found":       ErrSearchNotFound,
	"provider_error":         ErrProvider,
}

func decodeError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("dealscout: server returned %d", resp.StatusCode)
	}

	if sentinel, ok := codeSentinels[body.Code]; ok {
		return fmt.Errorf("dealscout: %s: %w", body.Message, sentinel)
	}
	return fmt.Errorf("dealscout: server returned %d: %s", resp.StatusCode, body.Message)
}
