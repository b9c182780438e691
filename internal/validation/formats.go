package validation

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// format checks a trimmed string, returning the violation message on failure.
type format func(s string) (string, bool)

var (
	phonePattern    = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	pricePattern    = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	datetimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
)

func urlFormat(msg string) format {
	return func(s string) (string, bool) {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
			return msg, false
		}
		return "", true
	}
}

var (
	validURL = urlFormat("Must be a valid URL")
	plainURL = urlFormat("Invalid url")
)

func validEmail(s string) (string, bool) {
	const msg = "Invalid email address"
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return msg, false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	if at <= 0 || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return msg, false
	}
	return "", true
}

func validPhone(s string) (string, bool) {
	if !phonePattern.MatchString(s) {
		return "Invalid phone number", false
	}
	return "", true
}

func validPrice(s string) (string, bool) {
	if !pricePattern.MatchString(s) {
		return "Invalid price format", false
	}
	return "", true
}

// validDatetime accepts RFC 3339 timestamps in UTC ("Z") with optional
// fractional seconds.
func validDatetime(s string) (string, bool) {
	if !datetimePattern.MatchString(s) {
		return "Invalid datetime", false
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		return "Invalid datetime", false
	}
	return "", true
}
