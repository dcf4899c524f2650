package later

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pagemark/later/models"
)

// Config contains resolver configuration
type Config struct {
	HTTPTimeout  time.Duration
	UserAgent    string
	MaxBodyBytes int64 // Maximum page body to read when extracting text metadata
}

// DefaultConfig returns default resolver configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:  120 * time.Second,
		UserAgent:    "Mozilla/5.0 (compatible; Later/1.0)",
		MaxBodyBytes: 10 * 1024 * 1024, // 10MB
	}
}

// Archiver stores a copy of fetched page bodies. Archival is best-effort; a
// failed write never fails a resolution.
type Archiver interface {
	SaveSnapshot(content, name string) (string, error)
}

// Resolver turns a submitted URL into concrete metadata: the final address
// after redirects, a content category, a title, and embedded-media flags.
type Resolver struct {
	config     Config
	httpClient *http.Client
	archive    Archiver // May be nil
}

// NewResolver creates a new Resolver instance.
// archive may be nil when snapshot archival is disabled.
func NewResolver(config Config, archive Archiver) *Resolver {
	return &Resolver{
		config: config,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
			// Propagate trace context on every outbound probe and fetch.
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		archive: archive,
	}
}

// Resolve probes rawURL and assembles its metadata. The probe is a
// redirect-following HEAD request; only text pages get a follow-up body
// fetch. There are no retries: a single failed request fails the resolution.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*models.URLMetadata, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, Wrap(KindMalformedURL, err, "the URL is malformed: %s", rawURL)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, E(KindMalformedURL, "the URL is malformed: %s", rawURL)
	}

	resp, err := r.connect(ctx, parsed.String(), http.MethodHead)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// The redirect-following client leaves the final address on the request.
	resolved := resp.Request.URL

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "*"
	}

	category, err := classify(contentType)
	if err != nil {
		return nil, err
	}

	var md *models.URLMetadata
	switch category {
	case categoryText:
		md, err = r.extractText(ctx, resolved)
		if err != nil {
			return nil, err
		}
	case categoryImage:
		md = extractImage(resolved)
	case categoryVideo:
		md = extractVideo(resolved)
	}

	md.NormalURL = rawURL
	md.ResolvedURL = resolved.String()
	md.MimeType = string(category)
	md.DateResolved = time.Now().UTC()

	return md, nil
}

// connect issues a single request and applies the transport failure policy.
// The caller owns the response body on success.
func (r *Resolver) connect(ctx context.Context, target, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, Wrap(KindMalformedURL, err, "the URL is malformed: %s", target)
	}
	req.Header.Set("User-Agent", r.config.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, Wrap(KindCancelled, ctx.Err(), "resolution of %s was cancelled", target)
		}
		return nil, Wrap(KindRetrievalFailed, err, "cannot retrieve data from the URL: %s", target)
	}

	status := resp.StatusCode
	if status < 100 || status > 599 {
		resp.Body.Close()
		return nil, E(KindRetrievalFailed, "the server returned an unknown status code: %d", status)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		resp.Body.Close()
		return nil, E(KindAccessDenied, "there is no access to the resource at the specified URL: %s", target)
	}
	if status >= 400 {
		resp.Body.Close()
		return nil, E(KindRetrievalFailed, "the server returned an error status: %d %s", status, http.StatusText(status))
	}

	return resp, nil
}

// archiveSnapshot writes the fetched body to the archive, if one is
// configured. Failures are logged and swallowed.
func (r *Resolver) archiveSnapshot(body []byte, name string) {
	if r.archive == nil {
		return
	}
	key, err := r.archive.SaveSnapshot(string(body), name)
	if err != nil {
		log.Printf("Failed to archive snapshot %s: %v", name, err)
		return
	}
	log.Printf("Archived page snapshot at %s", key)
}
