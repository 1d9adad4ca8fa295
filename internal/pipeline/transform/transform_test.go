package transform_test

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/pipeline/transform"
)

func TestEngines(t *testing.T) {
	engines, err := transform.Engines([]string{"chrome120", "Safari17.2", "ios16", "firefox121", "edge120", "opera100"})
	require.NoError(t, err)
	assert.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "120"},
		{Name: api.EngineSafari, Version: "17.2"},
		{Name: api.EngineIOS, Version: "16"},
		{Name: api.EngineFirefox, Version: "121"},
		{Name: api.EngineEdge, Version: "120"},
		{Name: api.EngineOpera, Version: "100"},
	}, engines)
}

func TestEngines_Invalid(t *testing.T) {
	for _, browser := range []string{"netscape4", "chrome", "last 2 versions", ""} {
		_, err := transform.Engines([]string{browser})
		require.Error(t, err, browser)
		assert.Contains(t, err.Error(), domain.ErrInvalidBrowserTarget.Error())
	}
}

func TestCSS_Prefixes(t *testing.T) {
	engines, err := transform.Engines([]string{"safari14"})
	require.NoError(t, err)

	got, err := transform.CSS(".a { user-select: none; }\n", transform.Options{Engines: engines})
	require.NoError(t, err)
	assert.Contains(t, got, "-webkit-user-select: none")
	assert.Contains(t, got, "user-select: none")
}

func TestCSS_Minify(t *testing.T) {
	got, err := transform.CSS(".a {\n  color: red;\n}\n\n.b { margin: 0px; }\n", transform.Options{Minify: true})
	require.NoError(t, err)
	assert.Contains(t, got, ".a{color:red}")
	assert.NotContains(t, got, "\n  ")
}

func TestCSS_InlineSourceMap(t *testing.T) {
	got, err := transform.CSS(".a { color: red; }\n", transform.Options{Sourcefile: "main.scss", SourceMap: true})
	require.NoError(t, err)
	assert.Contains(t, got, "sourceMappingURL=data:application/json;base64,")
}

func TestJS_MinifyAndMangle(t *testing.T) {
	src := "function greet(name) {\n  var message = 'hi ' + name;\n  return message;\n}\nwindow.greet = greet;\n"
	got, err := transform.JS(src, transform.Options{Minify: true})
	require.NoError(t, err)
	assert.NotContains(t, got, "message")
	assert.Less(t, len(got), len(src))
}

func TestJS_SyntaxError(t *testing.T) {
	_, err := transform.JS("var = ;", transform.Options{Sourcefile: "dev/js/main.js"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrTransformFailed.Error())
}
