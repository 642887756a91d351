package stream

import (
	"net"
	"strconv"
	"strings"
)

const DefaultPort = 81

// StreamURL derives the event stream endpoint from the controller host. Any
// port in host is replaced by port; secure selects wss.
func StreamURL(host string, secure bool, port int) string {
	if port == 0 {
		port = DefaultPort
	}

	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")

	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + net.JoinHostPort(hostname, strconv.Itoa(port)) + "/"
}
