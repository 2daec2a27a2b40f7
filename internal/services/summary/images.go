package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Pre-compiled patterns for the three recognized image notations.
var (
	markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	htmlImagePattern     = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["'][^>]*/?>`)
	// Textile: !<align>{style}token(caption)! where align, style and caption
	// are each optional. The token may contain spaces (legal in filenames).
	textileImagePattern = regexp.MustCompile(`!([<>=])?(?:\{[^}]*\})?([^!\s{(][^!(]*?)(?:\(([^)]*)\))?!`)
	placeholderPattern  = regexp.MustCompile(`IMG_PLACEHOLDER_\d+`)
)

// ImageRef is one resolved image reference found in free text.
type ImageRef struct {
	URL         string
	Caption     string
	Placeholder string
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// resolveDirectURL resolves a markdown/HTML url: absolute urls pass through,
// relative ones go through the attachment map, then the base-URL join. An
// unresolvable relative url is returned unchanged rather than guessed at.
func resolveDirectURL(raw string, attachments map[string]string, baseURL string) string {
	if isAbsoluteURL(raw) {
		return raw
	}
	if mapped, ok := attachments[raw]; ok {
		return mapped
	}
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
	}
	return raw
}

// resolveTextileToken resolves a textile token: attachment filename first,
// absolute url second, otherwise dropped — no base-URL guessing for bare
// filenames.
func resolveTextileToken(token string, attachments map[string]string) string {
	if mapped, ok := attachments[token]; ok {
		return mapped
	}
	if isAbsoluteURL(token) {
		return token
	}
	return ""
}

// ExtractImages finds all image references in text and resolves them to
// fetchable URLs. The returned list preserves per-notation order and may
// contain duplicate URLs; callers deduplicate per consumer.
func ExtractImages(text string, attachments map[string]string, baseURL string, issueID int) []ImageRef {
	var refs []ImageRef

	remaining := markdownImagePattern.ReplaceAllStringFunc(text, func(m string) string {
		groups := markdownImagePattern.FindStringSubmatch(m)
		caption := groups[1]
		if caption == "" {
			caption = fmt.Sprintf("Issue #%d", issueID)
		}
		refs = append(refs, ImageRef{
			URL:     resolveDirectURL(groups[2], attachments, baseURL),
			Caption: caption,
		})
		return ""
	})

	remaining = htmlImagePattern.ReplaceAllStringFunc(remaining, func(m string) string {
		groups := htmlImagePattern.FindStringSubmatch(m)
		refs = append(refs, ImageRef{
			URL:     resolveDirectURL(groups[1], attachments, baseURL),
			Caption: fmt.Sprintf("Issue #%d", issueID),
		})
		return ""
	})

	textileImagePattern.ReplaceAllStringFunc(remaining, func(m string) string {
		groups := textileImagePattern.FindStringSubmatch(m)
		token := strings.TrimSpace(groups[2])
		resolved := resolveTextileToken(token, attachments)
		if resolved == "" {
			return m
		}
		caption := groups[3]
		if caption == "" {
			caption = fmt.Sprintf("Issue #%d (%s)", issueID, token)
		}
		refs = append(refs, ImageRef{URL: resolved, Caption: caption})
		return ""
	})

	return refs
}

// ReplaceImages rewrites every resolvable image notation in text with an
// opaque placeholder token from the registry and returns the rewritten text
// along with the references it registered. Unresolvable notations are left
// untouched.
func ReplaceImages(text string, attachments map[string]string, baseURL string, issueID int, reg *PlaceholderRegistry) (string, []ImageRef) {
	var refs []ImageRef

	out := markdownImagePattern.ReplaceAllStringFunc(text, func(m string) string {
		groups := markdownImagePattern.FindStringSubmatch(m)
		resolved := resolveDirectURL(groups[2], attachments, baseURL)
		caption := groups[1]
		if caption == "" {
			caption = fmt.Sprintf("Issue #%d", issueID)
		}
		key := reg.Resolve(resolved)
		refs = append(refs, ImageRef{URL: resolved, Caption: caption, Placeholder: key})
		return key
	})

	out = htmlImagePattern.ReplaceAllStringFunc(out, func(m string) string {
		groups := htmlImagePattern.FindStringSubmatch(m)
		resolved := resolveDirectURL(groups[1], attachments, baseURL)
		key := reg.Resolve(resolved)
		refs = append(refs, ImageRef{URL: resolved, Caption: fmt.Sprintf("Issue #%d", issueID), Placeholder: key})
		return key
	})

	out = textileImagePattern.ReplaceAllStringFunc(out, func(m string) string {
		groups := textileImagePattern.FindStringSubmatch(m)
		token := strings.TrimSpace(groups[2])
		resolved := resolveTextileToken(token, attachments)
		if resolved == "" {
			return m
		}
		caption := groups[3]
		if caption == "" {
			caption = fmt.Sprintf("Issue #%d (%s)", issueID, token)
		}
		key := reg.Resolve(resolved)
		refs = append(refs, ImageRef{URL: resolved, Caption: caption, Placeholder: key})
		return key
	})

	return out, refs
}

// PlaceholderRegistry maps image URLs to stable IMG_PLACEHOLDER_<n> tokens
// for one pipeline run. It is populated only during the synchronous grouping
// stage and read-only afterwards, so it carries no lock.
type PlaceholderRegistry struct {
	counter int
	byURL   map[string]string
	byKey   map[string]string
}

func NewPlaceholderRegistry() *PlaceholderRegistry {
	return &PlaceholderRegistry{
		byURL: make(map[string]string),
		byKey: make(map[string]string),
	}
}

// Resolve returns the placeholder key for a URL, allocating one on first
// sight. The mapping is a stable bijection: the same URL always yields the
// same key within one run.
func (r *PlaceholderRegistry) Resolve(imageURL string) string {
	if key, ok := r.byURL[imageURL]; ok {
		return key
	}
	r.counter++
	key := fmt.Sprintf("IMG_PLACEHOLDER_%d", r.counter)
	r.byURL[imageURL] = key
	r.byKey[key] = imageURL
	return key
}

// URLFor returns the URL behind a placeholder key.
func (r *PlaceholderRegistry) URLFor(key string) (string, bool) {
	u, ok := r.byKey[key]
	return u, ok
}

// Len returns the number of registered placeholders.
func (r *PlaceholderRegistry) Len() int {
	return len(r.byKey)
}

// RestoreAll replaces every placeholder token in text with a concrete
// reference. When a downloader is given, the image bytes are fetched and
// persisted to a content-addressed file under cacheDir, and the substituted
// reference points at urlPrefix/<name>; any failure falls back to the
// original URL. No placeholder token survives this call.
func (r *PlaceholderRegistry) RestoreAll(ctx context.Context, text string, download func(context.Context, string) ([]byte, error), cacheDir, urlPrefix string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(key string) string {
		imageURL, ok := r.byKey[key]
		if !ok {
			// Stray token not minted by this run; drop it rather than leak it.
			return ""
		}
		if download == nil || cacheDir == "" {
			return imageURL
		}
		local, err := r.cacheImage(ctx, imageURL, download, cacheDir, urlPrefix)
		if err != nil {
			return imageURL
		}
		return local
	})
}

func (r *PlaceholderRegistry) cacheImage(ctx context.Context, imageURL string, download func(context.Context, string) ([]byte, error), cacheDir, urlPrefix string) (string, error) {
	data, err := download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	name := cacheFileName(imageURL)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(cacheDir, name), data, 0o644); err != nil {
		return "", err
	}

	return strings.TrimRight(urlPrefix, "/") + "/" + name, nil
}

// cacheFileName derives a content-addressed file name from the URL hash,
// keeping the original extension when one is present.
func cacheFileName(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	name := hex.EncodeToString(sum[:])[:16]

	ext := ""
	if parsed, err := url.Parse(imageURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	if len(ext) > 10 {
		ext = ""
	}
	return name + ext
}
