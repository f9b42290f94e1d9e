// Package github downloads the served document from a GitHub repository.
package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
	httpClient *http.Client
}

// NewClient creates a new GitHub client with optional authentication and rate limiting.
// An empty token makes unauthenticated requests. An empty baseURL uses api.github.com.
func NewClient(token, baseURL string) (*Client, error) {
	// Waits out both primary and secondary rate limits before retrying.
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url %q: %w", baseURL, err)
		}
		ghClient.BaseURL = u
	}

	return &Client{Client: ghClient, httpClient: rateLimiter}, nil
}
