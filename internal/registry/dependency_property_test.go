//go:build property
// +build property

package registry

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomSite writes a site of n components and n pages whose tags are drawn
// from seed, and returns the resolver, all HTML files and the component bodies.
func randomSite(t *testing.T, seed int64, n int) (*DependencyResolver, []string, []string) {
	rng := rand.New(rand.NewSource(seed))
	root := t.TempDir()
	components := filepath.Join(root, "shared", "reusables")

	write := func(path, content string) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tags := func() string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			if rng.Intn(3) == 0 {
				fmt.Fprintf(&b, "<r-c%d>", i)
			}
		}
		return b.String()
	}

	var html, bodies []string
	for i := 0; i < n; i++ {
		body := ExpectedBodyPath(components, fmt.Sprintf("c%d", i))
		write(body, tags())
		bodies = append(bodies, body)
		html = append(html, body)

		page := filepath.Join(root, "pages", fmt.Sprintf("p%d", i), fmt.Sprintf("p%d.html", i))
		write(page, tags())
		html = append(html, page)
	}

	return NewDependencyResolver(components, NewTagMatcher(DefaultSyntax()), nil), html, bodies
}

func TestClosureProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("closure is a fixed point", prop.ForAll(
		func(seed int64, n int, pick int) bool {
			resolver, html, bodies := randomSite(t, seed, n)
			changed := NewPathSet(bodies[pick%len(bodies)])

			once := resolver.Close(ctx, changed, html)
			twice := resolver.Close(ctx, once, html)
			return once.Equal(twice)
		},
		gen.Int64(),
		gen.IntRange(1, 8),
		gen.IntRange(0, 100),
	))

	properties.Property("closure never drops an input path", prop.ForAll(
		func(seed int64, n int) bool {
			resolver, html, bodies := randomSite(t, seed, n)
			changed := NewPathSet(bodies...)
			changed.Add(html[1])

			result := resolver.Close(ctx, changed, html)
			for p := range changed {
				if !result.Has(p) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 8),
	))

	properties.Property("page edits never cascade", prop.ForAll(
		func(seed int64, n int) bool {
			resolver, html, _ := randomSite(t, seed, n)
			changed := NewPathSet()
			for _, p := range html {
				if !resolver.IsComponentPath(p) {
					changed.Add(p)
				}
			}

			return resolver.Close(ctx, changed, html).Equal(changed)
		},
		gen.Int64(),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
