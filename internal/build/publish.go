package build

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"golang.org/x/net/html"
)

// anchorExtPattern captures the parts of an anchor start tag around a
// trailing .html in its href.
var anchorExtPattern = regexp.MustCompile(`(<a[^>]*\s+href\s*=\s*["'])([^"']*)(\.html)(["'][^>]*>)`)

// StripLinkExtensions removes the .html suffix from the href of every anchor
// that points inside the site, for hosts serving /page for page.html.
// External, protocol-relative and fragment-only links are left alone.
func StripLinkExtensions(content []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(content))

	z := html.NewTokenizer(bytes.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return content
			}
			break
		}

		raw := append([]byte(nil), z.Raw()...)
		if (tt == html.StartTagToken || tt == html.SelfClosingTagToken) && internalHTMLLink(z) {
			raw = anchorExtPattern.ReplaceAll(raw, []byte("${1}${2}${4}"))
		}
		out.Write(raw)
	}
	return out.Bytes()
}

// internalHTMLLink reports whether the current token is an anchor whose
// href is a site-relative link ending in .html.
func internalHTMLLink(z *html.Tokenizer) bool {
	name, hasAttr := z.TagName()
	if string(name) != "a" {
		return false
	}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) != "href" {
			continue
		}
		href := string(val)
		if !strings.HasSuffix(href, ".html") || strings.HasPrefix(href, "//") {
			return false
		}
		u, err := url.Parse(href)
		return err == nil && u.Scheme == "" && u.Host == ""
	}
	return false
}

// publishTree rewrites the links of every HTML file below root and returns
// how many files changed.
func publishTree(root string) (int, error) {
	changed := 0
	err := filepath.WalkDir(root, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rewritten := StripLinkExtensions(content)
		if bytes.Equal(rewritten, content) {
			return nil
		}
		if err := os.WriteFile(p, rewritten, 0644); err != nil {
			return err
		}
		changed++
		return nil
	})
	if err != nil {
		return changed, errors.ErrIO("rewrite links", root, err)
	}
	return changed, nil
}
