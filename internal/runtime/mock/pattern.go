package mock

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
)

// Pattern is a compiled URL pattern.
//
// Absolute patterns ("http://localhost:1234/api/*") match scheme, host and
// path. Relative patterns ("/sampleQuery") match the path on any origin until
// they are anchored with Resolve. A lone "*" matches every URL.
//
// In the path, "*" matches any run of characters including "/", and ":name"
// captures a single segment. Query strings and fragments never take part in
// matching, and a trailing slash on a non-root path is optional.
type Pattern struct {
	raw      string
	matchAll bool
	origin   *regexp.Regexp
	path     *regexp.Regexp
	params   []string
}

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// ParsePattern compiles raw into a Pattern.
func ParsePattern(raw string) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Pattern{}, errspkg.ErrPatternRequired
	}
	if raw == "*" {
		return Pattern{raw: raw, matchAll: true}, nil
	}

	originPart, pathPart, err := splitPattern(raw)
	if err != nil {
		return Pattern{}, err
	}

	p := Pattern{raw: raw}
	if originPart != "" {
		p.origin, err = regexp.Compile("(?i)^" + globToRegexp(originPart, "[^/]*") + "$")
		if err != nil {
			return Pattern{}, fmt.Errorf("%w %q: %v", errspkg.ErrInvalidPattern, raw, err)
		}
	}

	expr, params, err := compilePath(pathPart)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w %q: %v", errspkg.ErrInvalidPattern, raw, err)
	}
	p.path, err = regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w %q: %v", errspkg.ErrInvalidPattern, raw, err)
	}
	p.params = params
	return p, nil
}

// MustPattern is like ParsePattern but panics on error.
func MustPattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.raw }

// IsAbsolute reports whether the pattern pins an origin.
func (p Pattern) IsAbsolute() bool { return p.origin != nil }

// Resolve anchors a relative pattern to the origin of base. Absolute
// patterns, the catch-all pattern and a nil base leave p unchanged.
func (p Pattern) Resolve(base *url.URL) Pattern {
	if base == nil || p.matchAll || p.IsAbsolute() || base.Host == "" {
		return p
	}
	origin := strings.ToLower(base.Scheme) + "://" + base.Host
	anchored, err := ParsePattern(origin + p.raw)
	if err != nil {
		return p
	}
	return anchored
}

// Match reports whether u satisfies the pattern and returns the captured
// path parameters.
func (p Pattern) Match(u *url.URL) (map[string]string, bool) {
	if u == nil {
		return nil, false
	}
	if p.matchAll {
		return map[string]string{}, true
	}
	if p.path == nil {
		return nil, false
	}
	if p.origin != nil {
		if u.Host == "" || !p.origin.MatchString(strings.ToLower(u.Scheme)+"://"+u.Host) {
			return nil, false
		}
	}

	groups := p.path.FindStringSubmatch(normalizePath(u.EscapedPath()))
	if groups == nil {
		return nil, false
	}
	params := make(map[string]string, len(p.params))
	for i, name := range p.params {
		value, err := url.PathUnescape(groups[i+1])
		if err != nil {
			value = groups[i+1]
		}
		params[name] = value
	}
	return params, true
}

func splitPattern(raw string) (origin, path string, err error) {
	if strings.HasPrefix(raw, "/") {
		return "", raw, nil
	}
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return "", "", fmt.Errorf("%w %q: expected an absolute URL or a path starting with /", errspkg.ErrInvalidPattern, raw)
	}
	rest := raw[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return raw, "/", nil
	}
	if slash == 0 {
		return "", "", fmt.Errorf("%w %q: missing host", errspkg.ErrInvalidPattern, raw)
	}
	return raw[:idx+3+slash], rest[slash:], nil
}

// compilePath turns a path pattern into an anchored regular expression.
func compilePath(path string) (string, []string, error) {
	path = stripQuery(path)
	path = normalizePath(path)

	var (
		b      strings.Builder
		params []string
	)
	b.WriteString("^")
	for i := 0; i < len(path); {
		switch c := path[i]; {
		case c == '*':
			b.WriteString("(?:.*)")
			i++
		case c == ':' && i > 0 && path[i-1] == '/':
			name := paramName.FindString(path[i+1:])
			if name == "" {
				return "", nil, fmt.Errorf("empty parameter name at offset %d", i)
			}
			b.WriteString("([^/]+)")
			params = append(params, name)
			i += 1 + len(name)
		default:
			b.WriteString(regexp.QuoteMeta(path[i : i+1]))
			i++
		}
	}
	if path != "/" {
		b.WriteString("/?")
	}
	b.WriteString("$")
	return b.String(), params, nil
}

func globToRegexp(s, star string) string {
	parts := strings.Split(s, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, star)
}

func stripQuery(path string) string {
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		return path[:idx]
	}
	return path
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
			return trimmed
		}
		return "/"
	}
	return path
}
