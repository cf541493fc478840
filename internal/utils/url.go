package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrNotAbsolute       = errors.New("url must be absolute")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrMissingHost       = errors.New("missing host")
	ErrInvalidHost       = errors.New("invalid host")
)

// AllowedSchemes are the schemes a browser capture can navigate to.
var AllowedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

// ParseAbsoluteURL parses raw and checks that it is an absolute http(s) URL
// whose host is an IP literal, "localhost", or a dotted name that passes
// IDNA lookup validation. Internationalized hosts are accepted as-is; the
// returned URL keeps the caller's spelling.
func ParseAbsoluteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return nil, fmt.Errorf("couldn't parse url %s: contains whitespace", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}
	if !u.IsAbs() {
		return nil, ErrNotAbsolute
	}
	if _, ok := AllowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, ErrMissingHost
	}
	if err := validateHost(host); err != nil {
		return nil, err
	}
	if port := u.Port(); port != "" && !validPort(port) {
		return nil, fmt.Errorf("%w: bad port %q", ErrInvalidHost, port)
	}

	return u, nil
}

// IsAbsoluteURL reports whether raw passes ParseAbsoluteURL.
func IsAbsoluteURL(raw string) bool {
	_, err := ParseAbsoluteURL(raw)
	return err == nil
}

func validateHost(host string) error {
	if net.ParseIP(host) != nil {
		return nil
	}
	lower := strings.ToLower(host)
	if lower == "localhost" {
		return nil
	}

	ascii, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidHost, host, err)
	}
	ascii = strings.TrimSuffix(ascii, ".")

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return fmt.Errorf("%w: %s has no top-level domain", ErrInvalidHost, host)
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 {
			return fmt.Errorf("%w: %s", ErrInvalidHost, host)
		}
	}
	// All-numeric TLDs only appear in malformed IPv4 literals.
	if tld := labels[len(labels)-1]; strings.Trim(tld, "0123456789") == "" {
		return fmt.Errorf("%w: %s", ErrInvalidHost, host)
	}
	return nil
}

func validPort(port string) bool {
	if len(port) > 5 {
		return false
	}
	n := 0
	for _, r := range port {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n > 0 && n <= 65535
}
