package livesync

import (
	"fmt"
	"net/url"
	"strings"

	"live-stats/src/models"
)

// BuildStreamURL joins base and path and adds the scope filter and the optional
// credential as query parameters. Empty values are left out.
func BuildStreamURL(base, path string, params models.MParams, credential string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("stream base url is empty")
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid stream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid stream url: %q", u.String())
	}

	q := u.Query()
	if params.Country != "" {
		q.Set("country", params.Country)
	}
	if params.Locale != "" {
		q.Set("locale", params.Locale)
	}
	if credential != "" {
		q.Set("token", credential)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
