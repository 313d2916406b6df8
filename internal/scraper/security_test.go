package scraper

import "testing"

func TestValidateURLSecurityNilConfigAllowsAnything(t *testing.T) {
	if err := validateURLSecurity("https://anywhere.example", nil); err != nil {
		t.Fatalf("expected nil config to allow any URL, got %v", err)
	}
}

func TestValidateURLSecurityRejectsDisallowedHost(t *testing.T) {
	cfg := &ContentSecurityConfig{AllowedHosts: []string{"costarica.org"}}
	if err := validateURLSecurity("https://evil.example/path", cfg); err == nil {
		t.Fatal("expected error for host not in allowlist")
	}
}

func TestValidateURLSecurityBlocksPrivateIP(t *testing.T) {
	cfg := &ContentSecurityConfig{BlockPrivateIPs: true}
	if err := validateURLSecurity("http://127.0.0.1/admin", cfg); err == nil {
		t.Fatal("expected error for loopback address")
	}
}

func TestValidateURLSecurityRejectsNonHTTPScheme(t *testing.T) {
	cfg := &ContentSecurityConfig{}
	if err := validateURLSecurity("file:///etc/passwd", cfg); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}
