package later

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagemark/later/models"
	"github.com/pagemark/later/slug"
)

// category is the handling category for a resolved resource.
type category string

const (
	categoryText  category = "text"
	categoryImage category = "image"
	categoryVideo category = "video"
)

// classify maps a declared Content-Type header to a handling category.
// Compatibility follows media-range rules on the primary type: a wildcard
// primary type matches text first, so a missing header (defaulted to "*")
// resolves as text.
func classify(contentType string) (category, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", E(KindUnsupportedContentType, "the content type [%s] at the specified URL is not supported", contentType)
	}

	primary := mediaType
	if i := strings.Index(mediaType, "/"); i >= 0 {
		primary = mediaType[:i]
	}

	switch primary {
	case "text", "*":
		return categoryText, nil
	case "image":
		return categoryImage, nil
	case "video":
		return categoryVideo, nil
	}
	return "", E(KindUnsupportedContentType, "the content type [%s] at the specified URL is not supported", contentType)
}

// extractText fetches the resolved page and pulls the document title and
// embedded-media flags out of the markup.
func (r *Resolver) extractText(ctx context.Context, resolved *url.URL) (*models.URLMetadata, error) {
	resp, err := r.connect(ctx, resolved.String(), "GET")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, Wrap(KindCancelled, ctx.Err(), "resolution of %s was cancelled", resolved)
		}
		return nil, Wrap(KindRetrievalFailed, err, "cannot retrieve data from the URL: %s", resolved)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, Wrap(KindRetrievalFailed, err, "cannot parse the page at %s", resolved)
	}

	title := documentTitle(doc)
	md := &models.URLMetadata{
		Title:    title,
		HasImage: hasElement(doc, "img"),
		HasVideo: hasElement(doc, "video"),
	}

	r.archiveSnapshot(body, slug.GenerateWithFallback(title, resolved.Host))

	return md, nil
}

// extractImage derives metadata for a directly linked image.
func extractImage(resolved *url.URL) *models.URLMetadata {
	return &models.URLMetadata{
		Title:    lastPathSegment(resolved),
		HasImage: true,
	}
}

// extractVideo derives metadata for a directly linked video.
func extractVideo(resolved *url.URL) *models.URLMetadata {
	return &models.URLMetadata{
		Title:    lastPathSegment(resolved),
		HasVideo: true,
	}
}

// documentTitle returns the text of the first <title> element, or "" when
// the page has none.
func documentTitle(n *html.Node) string {
	var title string
	var found bool

	var f func(*html.Node)
	f = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)

	return title
}

// textContent collects all text beneath a node.
func textContent(n *html.Node) string {
	var parts []string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(parts, " ")
}

// hasElement reports whether the document contains at least one element with
// the given tag name.
func hasElement(n *html.Node, tag string) bool {
	if n.Type == html.ElementNode && n.Data == tag {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasElement(c, tag) {
			return true
		}
	}
	return false
}

// lastPathSegment returns the final segment of the URL path, ignoring any
// trailing slash. A bare host yields "".
func lastPathSegment(u *url.URL) string {
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
