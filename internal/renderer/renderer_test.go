package renderer

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/conneroisu/pagesmith/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpander(t *testing.T, components map[string]string, maxExpansions int) (*Expander, string) {
	t.Helper()
	root := testutils.CreateTempSite(t, components)
	config := Config{
		Syntax:          registry.DefaultSyntax(),
		RootPlaceholder: "<root>",
		ComponentsURL:   "shared/reusables",
		MaxExpansions:   maxExpansions,
	}
	return NewExpander(registry.NewComponentRegistry(root), config, nil), root
}

func expand(t *testing.T, e *Expander, text string) *Result {
	t.Helper()
	result, err := e.Expand(context.Background(), text)
	require.NoError(t, err)
	return result
}

func TestExpand_NoTagsIsNoop(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"nav/nav.html": "<nav></nav>"}, 0)

	inputs := []string{
		"",
		"<html><head></head><body>plain</body></html>",
		"<div class=\"r-card\">{title}</div>",
		"< r-nav >",
	}
	for _, input := range inputs {
		result := expand(t, e, input)
		assert.Equal(t, input, result.Text)
		assert.Zero(t, result.Iterations)
		assert.Empty(t, result.Diagnostics)
		assert.Empty(t, result.HeadInjections)
	}
}

func TestExpand_MissingComponentDirectory(t *testing.T) {
	e, root := newTestExpander(t, map[string]string{"card/card.html": "<div>card</div>"}, 0)

	result := expand(t, e, "<body><r-widget size=2><r-card></body>")

	assert.Equal(t,
		"<body><!-- ERROR: Component 'widget' directory not found. --><div>card</div></body>",
		result.Text,
	)
	require.Len(t, result.Diagnostics, 1)
	d := result.Diagnostics[0]
	assert.Equal(t, errors.CodeMissingComponentDirectory, d.Code)
	assert.Equal(t, "widget", d.Component)
	assert.Contains(t, d.Details, "nearest existing directory: "+root)
	assert.Contains(t, d.Details, "card"+string(filepath.Separator))
}

func TestExpand_MissingComponentBody(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"empty/empty.scss": "p {}"}, 0)

	result := expand(t, e, "<head></head><r-empty>")

	assert.Equal(t, "<head></head><!-- ERROR: HTML file for Component 'empty' not found. -->", result.Text)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, errors.CodeMissingComponentBody, result.Diagnostics[0].Code)
	assert.Empty(t, result.HeadInjections)
}

func TestExpand_DeferredTemplateInheritsParameters(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{
		"card/card.html": `<div class="card">{icon}<p>{title}</p></div>`,
		"icon/icon.html": `<img src="{image}">`,
	}, 0)

	result := expand(t, e, `<r-card title="Hi there" icon=@template:icon image=cat.png>`)

	assert.Equal(t, `<div class="card"><img src="cat.png"><p>Hi there</p></div>`, result.Text)
	assert.Equal(t, 2, result.Iterations)
	assert.Empty(t, result.Diagnostics)
}

func TestExpand_Placeholders(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{
		"hero/hero.html":   "<h1>{title}</h1><h2>{subtitle}</h2><p>{unset}</p>",
		"echo/echo.html":   "[{x}]",
		"plain/plain.html": "{x}",
	}, 0)

	t.Run("bound, none and unbound", func(t *testing.T) {
		result := expand(t, e, `<r-hero title='Welcome' subtitle=@none>`)
		assert.Equal(t, "<h1>Welcome</h1><h2></h2><p>{unset}</p>", result.Text)
	})

	t.Run("last write wins", func(t *testing.T) {
		result := expand(t, e, `<r-echo x=1><r-echo x=2>`)
		assert.Equal(t, "[1][2]", result.Text)
	})

	t.Run("bindings persist across tags", func(t *testing.T) {
		result := expand(t, e, `<r-echo x=outer><r-plain>`)
		assert.Equal(t, "[outer]outer", result.Text)
	})

	t.Run("repeated placeholder", func(t *testing.T) {
		e2, _ := newTestExpander(t, map[string]string{"twice/twice.html": "{v}-{v}"}, 0)
		result := expand(t, e2, `<r-twice v="a b">`)
		assert.Equal(t, "a b-a b", result.Text)
	})
}

func TestExpand_HeadInjection(t *testing.T) {
	files := map[string]string{
		"nav/nav.html":   "<nav></nav>",
		"nav/nav.scss":   "nav { color: red; }",
		"nav/nav.ts":     "console.log('nav');",
		"foot/foot.html": "<footer></footer>",
	}
	css := "<link rel=\"stylesheet\" href=\"<root>/shared/reusables/nav/nav.css\">\n"
	js := "<script defer src=\"<root>/shared/reusables/nav/nav.js\"></script>\n"

	t.Run("inserted once before head close", func(t *testing.T) {
		e, _ := newTestExpander(t, files, 0)
		result := expand(t, e, "<html><head><title>x</title></head><body><r-nav><r-foot><r-nav></body></html>")

		assert.Equal(t,
			"<html><head><title>x</title>"+css+js+"</head><body><nav></nav><footer></footer><nav></nav></body></html>",
			result.Text,
		)
		assert.Equal(t, []string{css, js}, result.HeadInjections)
	})

	t.Run("already present", func(t *testing.T) {
		e, _ := newTestExpander(t, files, 0)
		result := expand(t, e, "<head>"+css+"</head><r-nav>")

		assert.Equal(t, "<head>"+css+js+"</head><nav></nav>", result.Text)
		assert.Equal(t, []string{js}, result.HeadInjections)
	})

	t.Run("no head close", func(t *testing.T) {
		e, _ := newTestExpander(t, files, 0)
		result := expand(t, e, "<r-nav>")

		assert.Equal(t, "<nav></nav>", result.Text)
		assert.Empty(t, result.HeadInjections)
	})

	t.Run("tag inside head", func(t *testing.T) {
		e, _ := newTestExpander(t, files, 0)
		result := expand(t, e, "<head><r-nav></head>")

		assert.Equal(t, "<head><nav></nav>"+css+js+"</head>", result.Text)
	})
}

func TestExpand_IterationCap(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"loop/loop.html": "x<r-loop>"}, 5)

	result, err := e.Expand(context.Background(), "<r-loop>")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrExpansionDepthExceeded))
	assert.True(t, errors.IsRecoverable(err))
	require.NotNil(t, result)
	assert.Equal(t, 5, result.Iterations)
	assert.Equal(t, "xxxxx<r-loop>", result.Text)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, errors.CodeExpansionDepthExceeded, result.Diagnostics[len(result.Diagnostics)-1].Code)
}

func TestExpand_CapCountsSiblingTags(t *testing.T) {
	components := map[string]string{"item/item.html": "<li></li>"}
	page := "<ul><r-item><r-item><r-item></ul>"

	e, _ := newTestExpander(t, components, 3)
	result, err := e.Expand(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "<ul><li></li><li></li><li></li></ul>", result.Text)

	e, _ = newTestExpander(t, components, 2)
	result, err = e.Expand(context.Background(), page)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrExpansionDepthExceeded))
	assert.Equal(t, "<ul><li></li><li></li><r-item></ul>", result.Text)
}

func TestExpand_DefaultCap(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"loop/loop.html": "<r-loop>"}, 0)

	result, err := e.Expand(context.Background(), "<r-loop>")
	require.Error(t, err)
	assert.Equal(t, DefaultMaxExpansions, result.Iterations)
}

func TestExpand_ContextCancelled(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"nav/nav.html": "<nav></nav>"}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Expand(ctx, "<r-nav>")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpand_ContextIsPerCall(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"echo/echo.html": "[{x}]"}, 0)

	first := expand(t, e, "<r-echo x=1>")
	second := expand(t, e, "<r-echo>")

	assert.Equal(t, "[1]", first.Text)
	assert.Equal(t, "[{x}]", second.Text)
}

func TestParameterTableKeys(t *testing.T) {
	params := ParameterTable{}
	params.Bind("zeta", "1")
	params.Bind("alpha", "2")
	params.Bind("zeta", "3")

	assert.Equal(t, []string{"alpha", "zeta"}, params.Keys())
	assert.Equal(t, "3", params["zeta"])
}

func TestExpand_LargeDocument(t *testing.T) {
	e, _ := newTestExpander(t, map[string]string{"li/li.html": "<li>{n}</li>"}, 0)

	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("<r-li n=item>")
	}

	result := expand(t, e, b.String())
	assert.Equal(t, strings.Repeat("<li>item</li>", 200), result.Text)
	assert.Equal(t, 200, result.Iterations)
}
