package audit

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateURL checks that raw parses as an absolute http(s) URL.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL format")
	}
	return nil
}

// ValidateEmail applies the basic address pattern used by intake.
func ValidateEmail(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("email is required")
	}
	if !emailPattern.MatchString(raw) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
