package scraper

import (
	"fmt"
	"net"
	"net/url"
	"slices"
)

// ContentSecurityConfig bounds what URLs the scraper is willing to fetch.
// Adapted from the teacher's scraping.ContentSecurityConfig: an allowlist
// plus private-IP blocking, applied before any outbound request.
type ContentSecurityConfig struct {
	AllowedHosts         []string
	BlockPrivateIPs      bool
	MaxDownloadSizeBytes int64
}

// validateURLSecurity checks uri against config before it is fetched.
func validateURLSecurity(uri string, config *ContentSecurityConfig) error {
	if config == nil {
		return nil
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()

	if len(config.AllowedHosts) > 0 {
		if !slices.Contains(config.AllowedHosts, hostname) {
			return fmt.Errorf("host %s not in allowlist", hostname)
		}
	}

	if config.BlockPrivateIPs && isPrivateIP(hostname) {
		return fmt.Errorf("private IP addresses are blocked: %s", hostname)
	}

	return nil
}

// isPrivateIP reports whether hostname is a literal or resolved private
// or loopback address. Resolution failures are treated conservatively
// as private, since an unreachable host offers no fetch anyway.
func isPrivateIP(hostname string) bool {
	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIPAddr(ip)
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return true
	}
	return slices.ContainsFunc(ips, isPrivateIPAddr)
}

func isPrivateIPAddr(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}

	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
	}
	for _, cidr := range privateRanges {
		_, subnet, _ := net.ParseCIDR(cidr)
		if subnet != nil && subnet.Contains(ip) {
			return true
		}
	}
	return false
}
