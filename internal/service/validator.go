package service

import (
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/ippclub/gem-poller/internal/model"
)

// MessageInvalidURL is reported for a repository url that is not an absolute URL
const MessageInvalidURL = "Invalid URL format"

// supportedSchemes lists the URL schemes accepted for a gem source
var supportedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
}

// ValidateRepository checks a repository configuration. It never fails;
// problems are returned as field errors.
func ValidateRepository(rawURL string) []model.ValidationError {
	errs := []model.ValidationError{}
	if !IsValidURL(rawURL) {
		errs = append(errs, model.ValidationError{Key: KeyURL, Message: MessageInvalidURL})
	}
	return errs
}

// ValidatePackage checks a package configuration. No constraints are
// defined on the gem field.
func ValidatePackage(string) []model.ValidationError {
	return []model.ValidationError{}
}

// IsValidURL reports whether rawURL is an absolute URL with a supported
// scheme and a valid host. Single-label hosts such as localhost are
// accepted so internal mirrors can be configured.
func IsValidURL(rawURL string) bool {
	if rawURL == "" || strings.ContainsAny(rawURL, " \t\r\n") {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Opaque != "" {
		return false
	}
	if !supportedSchemes[strings.ToLower(u.Scheme)] {
		return false
	}
	host := u.Hostname()
	if !govalidator.IsHost(host) {
		return false
	}
	// dotted numbers are addresses, not DNS names
	if strings.Trim(host, "0123456789.") == "" && !govalidator.IsIPv4(host) {
		return false
	}
	if port := u.Port(); port != "" && !govalidator.IsPort(port) {
		return false
	}
	return true
}
