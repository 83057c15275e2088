package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

const maxBaseNameLen = 50

// DeriveName builds a deterministic artifact filename for a source URL.
// The base combines the hostname with either the URL path or a short hash
// of the full URL, so distinct URLs on the same host stay distinct.
func DeriveName(projectID, rawURL string) string {
	u, err := url.Parse(rawURL)
	host := ""
	path := ""
	if err == nil {
		host = u.Hostname()
		path = u.Path
	}

	domain := strings.TrimPrefix(host, "www.")
	domain = strings.ReplaceAll(domain, ".", "_")

	cleanPath := strings.ReplaceAll(path, "/", "_")
	cleanPath = strings.ReplaceAll(cleanPath, ".", "_")

	sum := md5.Sum([]byte(rawURL))
	short := hex.EncodeToString(sum[:])[:8]

	// Only the path branch is capped; the hash branch keeps its full
	// 8-hex suffix so long hostnames stay distinguishable per URL.
	var base string
	if len(path) > 5 {
		base = domain + cleanPath
		if len(base) > maxBaseNameLen {
			base = base[:maxBaseNameLen]
		}
	} else {
		base = domain + "_" + short
	}
	base = unsafeNameChars.ReplaceAllString(base, "_")

	return projectID + "_" + base + ".pdf"
}
