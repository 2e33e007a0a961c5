// Package eventclient fetches event metadata from the external event
// catalog service.  Events are read-only here: the admission service
// consults capacity, active flag and price but never writes back.
package eventclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// ErrUnavailable is returned when the event service does not answer
// with a successful status or returns an empty body.  Callers decide
// whether the failure is worth retrying; no caching happens here.
var ErrUnavailable = errors.New("event unavailable")

// Client calls the event service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the event service at baseURL.  A trailing
// slash on baseURL is tolerated.
func New(baseURL string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Fetch retrieves the event with the given ID via GET /event/{id}.
// Any non-2xx response, transport failure or empty body yields
// ErrUnavailable with the underlying cause attached.
func (c *Client) Fetch(ctx context.Context, eventID uint64) (*model.Event, error) {
	url := fmt.Sprintf("%s/event/%d", c.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: event service returned %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnavailable)
	}
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return &ev, nil
}
