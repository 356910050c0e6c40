package helpers

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"time"

	apperr "github.com/jykim1011/community-blog/pkg/errors"

	"golang.org/x/net/html/charset"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	}

	// Shared client; every board request carries the same fixed timeout.
	client = &http.Client{
		Timeout: 10 * time.Second,
	}
)

// FetchPage sends an HTTP GET with browser-like headers, converts the response
// body to UTF-8 when the board serves a legacy encoding (EUC-KR), and returns it
// as an io.Reader. Rate-limit (429) and missing-page (404) responses come back as
// typed errors so the pagination walker can branch on them.
func FetchPage(siteKey, url string, extraHeaders map[string]string) (io.Reader, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewNetwork(siteKey, "failed to create request", err)
	}

	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.NewNetwork(siteKey, fmt.Sprintf("failed to fetch %s", url), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430:
		return nil, apperr.NewRateLimit(siteKey, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.NewNotFound(siteKey, url)
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.NewNetwork(siteKey, fmt.Sprintf("unexpected status code %d for %s", resp.StatusCode, url), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewNetwork(siteKey, "failed to read response body", err)
	}

	return DecodeToUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// DecodeToUTF8 converts a response body to UTF-8 based on the Content-Type
// header and the body content itself.
func DecodeToUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(body), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}
