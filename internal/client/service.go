package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceClient fetches documents from sibling microservices when the
// engine expands a remote Reference field.
type ServiceClient struct {
	baseURLs map[string]string
	tokens   *TokenProvider
	client   *http.Client
}

func NewServiceClient(baseURLs map[string]string, tokens *TokenProvider) *ServiceClient {
	return &ServiceClient{
		baseURLs: baseURLs,
		tokens:   tokens,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchDocument GETs <base>/<entity>/<id>/ from the named service. A 401 on
// the first attempt triggers one token refresh and one retry.
func (sc *ServiceClient) FetchDocument(ctx context.Context, service, entity, id string) (map[string]any, error) {
	base, ok := sc.baseURLs[service]
	if !ok {
		return nil, fmt.Errorf("no base url configured for service %s", service)
	}
	url := fmt.Sprintf("%s/%s/%s/", base, entity, id)

	token, err := sc.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	doc, status, err := sc.get(ctx, url, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		token, err = sc.tokens.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		doc, status, err = sc.get(ctx, url, token)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch %s/%s from %s: status %d", entity, id, service, status)
	}
	return doc, nil
}

func (sc *ServiceClient) get(ctx context.Context, url, token string) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return doc, resp.StatusCode, nil
}
