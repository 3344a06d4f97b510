package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Router returns the driving distance between two points in metres.
type Router interface {
	DrivingDistance(ctx context.Context, from, to Point) (float64, error)
}

// OSRMClient queries an OSRM-compatible /route/v1/driving endpoint.
type OSRMClient struct {
	baseURL string
	client  *http.Client
}

// NewOSRMClient returns a client for the OSRM server at baseURL.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// DrivingDistance implements Router.
func (c *OSRMClient) DrivingDistance(ctx context.Context, from, to Point) (float64, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("routing service returned status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode routing response: %w", err)
	}
	if body.Code != "Ok" {
		return 0, fmt.Errorf("routing service returned code %q: %s", body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return 0, fmt.Errorf("routing service returned no routes")
	}
	return body.Routes[0].Distance, nil
}
