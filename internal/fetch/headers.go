package fetch

import (
	"net/http"
	"net/url"
)

// defaultUserAgent matches a current desktop Chrome build. The upstream
// fingerprints on the full header set, not just the agent string.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// BrowserHeaders builds the realistic header set expected by the upstream.
// Origin and Referer are derived from the target so cross-site hints stay
// consistent; omitting these systematically yields 403s.
func BrowserHeaders(rawURL, userAgent string) http.Header {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Sec-Ch-Ua", `"Chromium";v="142", "Google Chrome";v="142", "Not_A Brand";v="99"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")

	if site := siteOrigin(rawURL); site != "" {
		h.Set("Origin", site)
		h.Set("Referer", site+"/")
	}
	return h
}

func siteOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
