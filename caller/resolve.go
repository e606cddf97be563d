package caller

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/m4xw311/restgpt/errors"
)

var placeholderRE = regexp.MustCompile(`\{([^{}/]+)\}`)

// resolveURL joins raw with baseURL when relative and fills "{name}" path
// variables from params. Params used for the path are removed from the
// returned query parameters. Any placeholder left unresolved is an
// ErrExecution.
func resolveURL(baseURL, raw string, params map[string]interface{}) (string, map[string]interface{}, error) {
	rest := make(map[string]interface{}, len(params))
	for k, v := range params {
		rest[k] = v
	}

	full := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if baseURL == "" {
			return "", nil, errors.Mark(errors.ErrExecution, "relative url %q and no base url", raw)
		}
		full = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
	}

	full = placeholderRE.ReplaceAllStringFunc(full, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := rest[name]
		if !ok {
			return m
		}
		delete(rest, name)
		return url.PathEscape(fmt.Sprint(v))
	})
	if strings.ContainsAny(full, "{}") {
		return "", nil, errors.Mark(errors.ErrExecution, "unresolved path variable in %q", full)
	}
	if _, err := url.Parse(full); err != nil {
		return "", nil, errors.MarkWrap(err, errors.ErrExecution, "invalid url %q", full)
	}
	return full, rest, nil
}

// apiPath returns the path of full relative to the base URL's path, which is
// how endpoints are keyed in the catalog.
func apiPath(baseURL, full string) string {
	u, err := url.Parse(full)
	if err != nil {
		return full
	}
	p := u.EscapedPath()
	if b, err := url.Parse(baseURL); err == nil && b.Host == u.Host {
		prefix := strings.TrimRight(b.Path, "/")
		if prefix != "" && (p == prefix || strings.HasPrefix(p, prefix+"/")) {
			p = strings.TrimPrefix(p, prefix)
		}
	}
	if p == "" {
		p = "/"
	}
	return p
}
