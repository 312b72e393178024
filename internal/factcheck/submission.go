package factcheck

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxClaimChars bounds the length of a claim after markup is stripped
const MaxClaimChars = 2000

var sanitizer = bluemonday.StrictPolicy()

// ValidateSubmission checks the caller-supplied fields of a new claim and
// returns the claim text with any markup removed.
func ValidateSubmission(text, sourceURL string) (string, error) {
	if !utf8.ValidString(text) || !utf8.ValidString(sourceURL) {
		return "", fmt.Errorf("%w: invalid characters in input", ErrInvalidSubmission)
	}

	clean := strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(text)))
	if clean == "" {
		return "", fmt.Errorf("%w: claim text is empty", ErrInvalidSubmission)
	}
	if n := utf8.RuneCountInString(clean); n > MaxClaimChars {
		return "", fmt.Errorf("%w: claim text is %d characters (max %d)", ErrInvalidSubmission, n, MaxClaimChars)
	}

	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return "", fmt.Errorf("%w: source url: %v", ErrInvalidSubmission, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: source url must be http or https", ErrInvalidSubmission)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: source url has no host", ErrInvalidSubmission)
	}

	return clean, nil
}
