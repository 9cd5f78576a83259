package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// PushURL derives the absolute websocket URL a subscriber should connect
// to for its event channel. Forwarded headers from a reverse proxy take
// precedence over what the server observes directly.
func PushURL(r *http.Request, subscriber string) (string, error) {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	if v := forwardedValue(r, "X-Forwarded-Proto"); v != "" {
		if v == "https" || v == "wss" {
			scheme = "wss"
		} else {
			scheme = "ws"
		}
	}
	// An explicit websocket scheme override wins over everything.
	if v := forwardedValue(r, "X-Websocket-Scheme"); v == "ws" || v == "wss" {
		scheme = v
	}

	host := r.Host
	if v := forwardedValue(r, "X-Forwarded-Host"); v != "" {
		host = v
	}
	bare, port := host, ""
	if h, p, err := net.SplitHostPort(host); err == nil {
		bare, port = h, p
	}
	if fp := forwardedValue(r, "X-Forwarded-Port"); fp != "" {
		port = fp
	}
	// Standard ports are elided whichever header supplied them.
	if port == "" || standardPort(scheme, port) {
		host = bare
	} else {
		host = net.JoinHostPort(bare, port)
	}
	if host == "" {
		return "", fmt.Errorf("cannot determine host for push URL")
	}
	if !httpguts.ValidHeaderFieldValue(host) {
		return "", fmt.Errorf("invalid host %q for push URL", host)
	}

	prefix := forwardedValue(r, "X-Forwarded-Prefix")
	if prefix != "" {
		if !httpguts.ValidHeaderFieldValue(prefix) {
			return "", fmt.Errorf("invalid path prefix %q for push URL", prefix)
		}
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix == "/" {
			prefix = ""
		}
	}

	return fmt.Sprintf("%s://%s%s/ws/subscribers/%s", scheme, host, prefix, subscriber), nil
}

// forwardedValue returns the first comma-separated element of a header,
// which is the value set by the proxy closest to the client.
func forwardedValue(r *http.Request, name string) string {
	v := r.Header.Get(name)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func standardPort(scheme, port string) bool {
	return (scheme == "ws" && port == "80") || (scheme == "wss" && port == "443")
}
