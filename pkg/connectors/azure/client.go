package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Row is one projected row of a resource graph query result.
type Row struct {
	Group    string   `json:"group"`
	Hostname string   `json:"hostname"`
	IP       string   `json:"ip"`
	Location string   `json:"location"`
	Zones    []string `json:"zones"`
}

// GraphClient is the opaque credentialed client used to submit resource
// graph queries. Authentication and transport details live behind it.
type GraphClient interface {
	Resources(ctx context.Context, query string) ([]Row, error)
}

// TokenProvider supplies bearer tokens for the management endpoint.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenProvider interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a provider that always yields the given token.
func StaticToken(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Default endpoint settings for the REST graph client.
const (
	DefaultEndpoint   = "https://management.azure.com"
	defaultAPIVersion = "2022-10-01"
)

// HTTPGraphClient submits queries to the resource graph REST endpoint,
// requesting the objectArray result format.
type HTTPGraphClient struct {
	// Endpoint is the management endpoint base URL. Defaults to
	// DefaultEndpoint.
	Endpoint string

	// Subscriptions optionally scopes queries to these subscription ids.
	Subscriptions []string

	// Tokens supplies the bearer token for each request.
	Tokens TokenProvider

	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	Client *http.Client
}

type queryRequest struct {
	Query         string       `json:"query"`
	Subscriptions []string     `json:"subscriptions,omitempty"`
	Options       queryOptions `json:"options"`
}

type queryOptions struct {
	ResultFormat string `json:"resultFormat"`
}

type queryResponse struct {
	Data []Row `json:"data"`
}

// Resources implements GraphClient.
func (c *HTTPGraphClient) Resources(ctx context.Context, query string) ([]Row, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	body, err := json.Marshal(queryRequest{
		Query:         query,
		Subscriptions: c.Subscriptions,
		Options:       queryOptions{ResultFormat: "objectArray"},
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	url := endpoint + "/providers/Microsoft.ResourceGraph/resources?api-version=" + defaultAPIVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("resource graph query returned %s: %s", resp.Status, string(msg))
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return decoded.Data, nil
}
