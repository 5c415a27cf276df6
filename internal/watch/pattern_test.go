package watch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePatternsDirectory(t *testing.T) {
	patterns, err := resolvePatterns([]string{"src"}, "/project", nil)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, filepath.Join("/project", "src"), patterns[0].root)

	assert.True(t, patterns[0].matcher("main.go"))
	assert.True(t, patterns[0].matcher("nested/dir/app.TS"))
	assert.False(t, patterns[0].matcher("README.md"))
}

func TestResolvePatternsDirectoryCustomExtensions(t *testing.T) {
	patterns, err := resolvePatterns([]string{"src"}, "/project", []string{".proto"})
	require.NoError(t, err)
	assert.True(t, patterns[0].matcher("api.proto"))
	assert.False(t, patterns[0].matcher("main.go"))
}

func TestResolvePatternsGlob(t *testing.T) {
	patterns, err := resolvePatterns([]string{"src/**/*.go"}, "/project", nil)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, filepath.Join("/project", "src"), patterns[0].root)

	assert.True(t, patterns[0].matcher("main.go"))
	assert.True(t, patterns[0].matcher("a/b/c.go"))
	assert.False(t, patterns[0].matcher("a/b/c.js"))
}

func TestResolvePatternsSingleSegmentGlob(t *testing.T) {
	patterns, err := resolvePatterns([]string{"src/*.go"}, "/project", nil)
	require.NoError(t, err)
	assert.True(t, patterns[0].matcher("main.go"))
	assert.False(t, patterns[0].matcher("nested/main.go"))
}

func TestResolvePatternsAbsolutePassesThrough(t *testing.T) {
	patterns, err := resolvePatterns([]string{"/abs/src"}, "/project", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/abs/src"), patterns[0].root)
}

func TestGlobToRegexpDoubleStarSlash(t *testing.T) {
	re, err := globToRegexp("**/*.go")
	require.NoError(t, err)
	assert.True(t, re.MatchString("main.go"))
	assert.True(t, re.MatchString("a/b/main.go"))
	assert.False(t, re.MatchString("main.js"))
}

func TestIgnoredPaths(t *testing.T) {
	assert.True(t, ignored("node_modules/foo.js"))
	assert.True(t, ignored("a/.git/HEAD"))
	assert.True(t, ignored("dist/bundle.js"))
	assert.False(t, ignored("src/main.go"))
}
