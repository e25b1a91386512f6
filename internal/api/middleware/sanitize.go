package middleware

import (
	"net/http"
	"strings"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/util"
)

const maxLoggedValue = 200

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"x-forwarded-for":     {},
}

// SanitizeHeaders returns a copy of h that is safe to log: credentials are
// redacted and every other value is stripped of control characters and
// truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, len(vals))
		for i, v := range vals {
			clean[i] = util.Truncate(util.SanitizeForLog(v), maxLoggedValue)
		}
		out[k] = clean
	}
	return out
}

// SanitizePath drops the query string and makes the path safe to log.
func SanitizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i != -1 {
		p = p[:i]
	}
	return util.Truncate(util.SanitizeForLog(p), maxLoggedValue)
}
