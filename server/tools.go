package eventide

import (
	"net"
	"net/url"
)

// ServeURL turns a listen address into a URL a local client can reach,
// with any path parts joined on. A missing or wildcard host is localhost.
func ServeURL(addr string, path ...string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	u := &url.URL{Scheme: "http", Host: host}
	return u.JoinPath(path...).String()
}

// StreamURL is the websocket form of ServeURL
func StreamURL(addr string, path ...string) string {
	u, _ := url.Parse(ServeURL(addr, path...))
	u.Scheme = "ws"
	return u.String()
}
