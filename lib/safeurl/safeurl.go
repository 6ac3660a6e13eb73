// Package safeurl validates outbound URLs before any fetch.
//
// Pagination links are discovered inside fetched markup, so a compromised
// or malicious source could point the next-page link at an internal
// address. Every URL, configured or discovered, goes through Validate.
package safeurl

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var privateBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		privateBlocks = append(privateBlocks, block)
	}
}

// Validate rejects URLs that are not plain http(s) to a public host.
// It is stateless and side-effect free, safe to call from any goroutine.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("refusing to fetch loopback host %q", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// hostname, not a literal IP. DNS rebinding is out of scope here,
		// the orchestrator fronts requests with an egress proxy.
		return nil
	}
	if ip.IsUnspecified() || ip.IsLoopback() {
		return fmt.Errorf("refusing to fetch loopback address %q", host)
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return fmt.Errorf("refusing to fetch private address %q", host)
		}
	}

	return nil
}
