package web

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy はリクエストのスキーム判定方法です。
// TrustForwardedProto はリバースプロキシ配下でのみ有効にしてください。
type SchemePolicy struct {
	TrustForwardedProto bool
}

// PrevURL は Referer が同一オリジンの場合に、そのパス・クエリ・フラグメントを返します。
// 別オリジン・相対URL・解析できない値は空文字になります。
func PrevURL(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(r.Header.Get("Referer"))
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.Opaque != "" || ref.Host == "" {
		return ""
	}

	refScheme := strings.ToLower(ref.Scheme)
	reqScheme := requestScheme(r, policy)
	if refScheme != reqScheme {
		return ""
	}

	refHost, refPort := hostParts(ref.Host, refScheme)
	reqHost, reqPort := hostParts(r.Host, reqScheme)
	if refHost == "" || refHost != reqHost || refPort != reqPort {
		return ""
	}

	path := ref.EscapedPath()
	if path == "" {
		path = "/"
	}
	// "//evil.example" はプロトコル相対URLとして別オリジンに飛ぶ
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return ""
	}
	if ref.RawQuery != "" {
		path += "?" + ref.RawQuery
	}
	if ref.Fragment != "" {
		path += "#" + ref.EscapedFragment()
	}
	return path
}

func requestScheme(r *http.Request, policy SchemePolicy) string {
	if policy.TrustForwardedProto {
		proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")))
		if proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func hostParts(rawHost, scheme string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(rawHost))
	if err != nil {
		return "", ""
	}
	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if port == "" {
		port = defaultPort(scheme)
	}
	return host, port
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}
