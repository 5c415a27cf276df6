package watch

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultExtensions lists the source extensions watched by a plain
// directory pattern, per spec.md §4.7.
var DefaultExtensions = []string{
	".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs",
	".py", ".pyw", ".go", ".rs", ".java", ".rb", ".php",
	".cpp", ".c", ".h", ".hpp", ".cs",
}

// defaultIgnores are always excluded, regardless of pattern.
var defaultIgnores = []string{"node_modules", ".git", "dist", ".vscode"}

// pattern is a resolved watch pattern: a root directory to watch
// recursively, plus a matcher deciding which changed files under that
// root are interesting.
type pattern struct {
	root    string
	matcher func(relPath string) bool
	raw     string
}

// resolvePatterns turns the user-supplied pattern strings into concrete
// watch roots + matchers, resolved against cwd.
func resolvePatterns(patterns []string, cwd string, extensions []string) ([]pattern, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = true
	}

	resolved := make([]pattern, 0, len(patterns))
	for _, p := range patterns {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, abs)
		}
		abs = filepath.Clean(abs)

		if !isGlob(p) {
			resolved = append(resolved, pattern{
				root: abs,
				raw:  p,
				matcher: func(relPath string) bool {
					return extSet[strings.ToLower(filepath.Ext(relPath))]
				},
			})
			continue
		}

		root, globRel := splitGlobRoot(abs)
		re, err := globToRegexp(filepath.ToSlash(globRel))
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, pattern{
			root: root,
			raw:  p,
			matcher: func(relPath string) bool {
				return re.MatchString(filepath.ToSlash(relPath))
			},
		})
	}
	return resolved, nil
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// splitGlobRoot separates an absolute glob path into the longest
// non-glob directory prefix (the root to watch) and the remaining glob
// pattern relative to that root.
func splitGlobRoot(absGlob string) (root, rel string) {
	parts := strings.Split(filepath.ToSlash(absGlob), "/")
	i := 0
	for i < len(parts) && !isGlob(parts[i]) {
		i++
	}
	root = strings.Join(parts[:i], "/")
	if root == "" {
		root = "/"
	}
	rel = strings.Join(parts[i:], "/")
	return filepath.FromSlash(root), rel
}

// globToRegexp compiles a glob pattern (using '/'-separated segments, '*'
// matching within a segment, '**' matching across segments, and '?'
// matching a single non-separator rune) into an anchored regexp.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(glob); {
		c := glob[i]
		switch {
		case c == '*' && i+1 < len(glob) && glob[i+1] == '*':
			j := i + 2
			if j < len(glob) && glob[j] == '/' {
				j++
				sb.WriteString("(?:.*/)?")
			} else {
				sb.WriteString(".*")
			}
			i = j
		case c == '*':
			sb.WriteString("[^/]*")
			i++
		case c == '?':
			sb.WriteString("[^/]")
			i++
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// ignored reports whether any path component of relPath is one of the
// always-excluded directory names.
func ignored(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		for _, ig := range defaultIgnores {
			if part == ig {
				return true
			}
		}
	}
	return false
}
