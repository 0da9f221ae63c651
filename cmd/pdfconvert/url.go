package main

import (
	"fmt"
	"net/url"
)

// serviceRoot returns the health endpoint of the service behind a convert
// URL: the same scheme and host with path "/".
func serviceRoot(convertURL string) (string, error) {
	u, err := url.Parse(convertURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid service URL %q", convertURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String(), nil
}
