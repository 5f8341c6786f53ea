package photos

import (
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const ldJSONType = "application/ld+json"

// candidates collects image references from a page, one list per source
// in priority order.
type candidates struct {
	openGraph []string
	twitter   []string
	jsonLD    []string
	imageSrc  []string
}

func (c candidates) ordered() [][]string {
	return [][]string{c.openGraph, c.twitter, c.jsonLD, c.imageSrc}
}

// ExtractImage returns the page's representative image URL. Sources are
// tried in order: og:image, twitter:image, JSON-LD image, link rel=image_src.
// A candidate whose value as written in the page contains any exclude token
// (case-insensitive) is skipped; the page's own host is not matched.
// Relative URLs are resolved against pageURL.
func ExtractImage(pageHTML, pageURL string, exclude []string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	var found candidates
	collect(doc, &found)

	for _, group := range found.ordered() {
		for _, raw := range group {
			if excluded(raw, exclude) {
				continue
			}
			resolved, ok := resolve(base, raw)
			if !ok {
				continue
			}
			return resolved, true
		}
	}
	return "", false
}

func collect(n *html.Node, found *candidates) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			content := attr(n, "content")
			key := strings.ToLower(attr(n, "property"))
			if key == "" {
				key = strings.ToLower(attr(n, "name"))
			}
			switch key {
			case "og:image", "og:image:url", "og:image:secure_url":
				found.openGraph = append(found.openGraph, content)
			case "twitter:image", "twitter:image:src":
				found.twitter = append(found.twitter, content)
			}
		case "link":
			if hasToken(attr(n, "rel"), "image_src") {
				found.imageSrc = append(found.imageSrc, attr(n, "href"))
			}
		case "script":
			if strings.EqualFold(strings.TrimSpace(attr(n, "type")), ldJSONType) {
				found.jsonLD = append(found.jsonLD, jsonLDImages(text(n))...)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, found)
	}
}

// jsonLDImages reads image references from a JSON-LD block: the root
// node(s) first, then any @graph members.
func jsonLDImages(raw string) []string {
	var doc any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return nil
	}

	var roots []map[string]any
	switch v := doc.(type) {
	case map[string]any:
		roots = append(roots, v)
	case []any:
		for _, item := range v {
			if node, ok := item.(map[string]any); ok {
				roots = append(roots, node)
			}
		}
	}

	var out []string
	for _, node := range roots {
		if img, ok := imageValue(node["image"]); ok {
			out = append(out, img)
		}
	}
	for _, node := range roots {
		graph, _ := node["@graph"].([]any)
		for _, item := range graph {
			member, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if img, ok := imageValue(member["image"]); ok {
				out = append(out, img)
			}
		}
	}
	return out
}

// imageValue accepts a URL string, an array (first element) or an
// ImageObject with a url.
func imageValue(v any) (string, bool) {
	switch img := v.(type) {
	case string:
		img = strings.TrimSpace(img)
		return img, img != ""
	case []any:
		if len(img) == 0 {
			return "", false
		}
		return imageValue(img[0])
	case map[string]any:
		if u, ok := img["url"].(string); ok && strings.TrimSpace(u) != "" {
			return strings.TrimSpace(u), true
		}
		if u, ok := img["contentUrl"].(string); ok && strings.TrimSpace(u) != "" {
			return strings.TrimSpace(u), true
		}
	}
	return "", false
}

func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

func excluded(candidate string, tokens []string) bool {
	lower := strings.ToLower(candidate)
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" && strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
