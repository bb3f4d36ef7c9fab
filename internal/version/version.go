// Package version compares build versions and looks up the latest published
// release.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Release lookup defaults.
const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 15 * time.Second

	// DevVersion is reported by builds without release metadata.
	DevVersion = "dev"

	maxErrorBody    = 1 << 10
	maxResponseBody = 64 << 10
)

// Errors returned by Checker.
var (
	ErrReleaseLookup = errors.New("release lookup failed")
	ErrInvalidRepo   = errors.New("invalid owner/repo")
)

//nolint:gochecknoglobals // Compiled once, read-only
var (
	repoNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	commitHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
)

// Release is the subset of a published release we read.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// Version returns the tag without its "v" prefix.
func (r *Release) Version() string {
	return strings.TrimPrefix(r.TagName, "v")
}

// Checker fetches the latest release of a repository.
type Checker struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL points the checker at another API host.
func WithBaseURL(u string) Option {
	return func(c *Checker) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) { c.userAgent = ua }
}

// NewChecker returns a checker for the public release API.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		baseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: fmt.Sprintf("testament/%s (%s/%s)", DevVersion, runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the newest published release of owner/repo.
func (c *Checker) Latest(ctx context.Context, owner, repo string) (*Release, error) {
	if !repoNamePattern.MatchString(owner) || !repoNamePattern.MatchString(repo) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidRepo, owner, repo)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req) //nolint:gosec // URL is built from the configured API host
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReleaseLookup, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrReleaseLookup, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rel Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&rel); err != nil {
		return nil, fmt.Errorf("%w: decoding release: %w", ErrReleaseLookup, err)
	}
	return &rel, nil
}

// IsDevBuild reports whether v carries no release number: empty, "dev", or a
// bare commit hash.
func IsDevBuild(v string) bool {
	v = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "v"), "-dirty")
	if v == "" || v == DevVersion {
		return true
	}
	return commitHashPattern.MatchString(v) && strings.ContainsAny(v, "abcdefABCDEF")
}

// Compare returns 1, 0, or -1 as a is newer than, equal to, or older than b.
// Development builds sort before every release.
func Compare(a, b string) int {
	aDev, bDev := IsDevBuild(a), IsDevBuild(b)
	switch {
	case aDev && bDev:
		return 0
	case aDev:
		return -1
	case bDev:
		return 1
	}

	pa, pb := parts(a), parts(b)
	for i := range 3 {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// IsNewer reports whether latest is a newer release than current.
func IsNewer(current, latest string) bool {
	return Compare(latest, current) > 0
}

// parts returns major, minor and patch, ignoring pre-release and build
// suffixes. Missing or unparsable components are zero.
func parts(v string) [3]int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(p)
		if err == nil {
			out[i] = n
		}
	}
	return out
}
