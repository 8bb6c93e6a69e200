// internal/protocol/endpoint.go
package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// Path is the WebSocket path served by the debate server.
const Path = "/ws"

// EndpointFromOrigin derives the WebSocket URL from a page origin:
// http maps to ws, https to wss, and the path is always /ws.
// A bare host[:port] is treated as http.
func EndpointFromOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", fmt.Errorf("empty origin")
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid origin %q: missing host", origin)
	}

	scheme := "ws"
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}

	return (&url.URL{Scheme: scheme, Host: u.Host, Path: Path}).String(), nil
}

// HTTPBase returns the http(s) form of an origin, used to fetch assets.
func HTTPBase(origin string) (string, error) {
	ws, err := EndpointFromOrigin(origin)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(ws)
	u.Path = ""
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	return u.String(), nil
}
