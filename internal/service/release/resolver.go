package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/version"
)

// ErrBadHTTPStatus is returned when the release endpoint answers with a non-200 status.
var ErrBadHTTPStatus = errors.New("unexpected http status")

// Resolver queries the GitHub REST API for the latest release of a repository.
type Resolver struct {
	// apiBase is the REST API root, e.g. https://api.github.com.
	apiBase string
	// client performs the HTTP requests.
	client *http.Client
}

// Option configures resolver behaviour.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// NewResolver creates a resolver for the API rooted at apiBase.
func NewResolver(apiBase string, opts ...Option) *Resolver {
	r := &Resolver{
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  http.DefaultClient,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FetchLatest returns the latest published release of repository ("owner/name").
func (r *Resolver) FetchLatest(ctx context.Context, repository string) (*Release, error) {
	endpoint := r.apiBase + "/repos/" + escapeRepository(repository) + "/releases/latest"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", version.UserAgent())

	logger.DebugKV(ctx, "Requesting latest release", "url", endpoint)

	response, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", endpoint, response.Status, ErrBadHTTPStatus)
	}

	var release Release
	if err = json.NewDecoder(response.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode latest release: %w", err)
	}

	logger.InfoKV(ctx, "Resolved latest release", "tag", release.Tag, "assets", len(release.Assets))

	return &release, nil
}

// escapeRepository escapes each path segment of "owner/name".
func escapeRepository(repository string) string {
	owner, name, _ := strings.Cut(repository, "/")

	return url.PathEscape(owner) + "/" + url.PathEscape(name)
}
