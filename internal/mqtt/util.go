package mqtt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultPort = 1883

// ParseURL splits a broker URL such as mqtt://host:1883 into host and port.
func ParseURL(urlStr string) (string, int, error) {
	for _, scheme := range []string{"mqtt://", "tcp://"} {
		urlStr = strings.TrimPrefix(urlStr, scheme)
	}
	urlStr = strings.TrimSuffix(urlStr, "/")

	parts := strings.Split(urlStr, ":")
	if parts[0] == "" {
		return "", 0, fmt.Errorf("missing broker host in %q", urlStr)
	}
	if len(parts) == 1 {
		return parts[0], defaultPort, nil
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || len(parts) > 2 {
		return "", 0, fmt.Errorf("invalid broker address %q", urlStr)
	}
	return parts[0], port, nil
}

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
