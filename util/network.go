package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// EndpointAddr extracts the host:port a WebSocket URL dials, filling in
// the scheme's default port (443 for wss/https, 80 for ws/http).
func EndpointAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("endpoint %q has no host", rawURL)
	}
	if p := u.Port(); p != "" {
		return net.JoinHostPort(host, p), nil
	}
	switch u.Scheme {
	case "wss", "https":
		return FormatAddr(host, 443), nil
	case "ws", "http":
		return FormatAddr(host, 80), nil
	default:
		return "", fmt.Errorf("endpoint %q: unsupported scheme %q", rawURL, u.Scheme)
	}
}
