package mail

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func headerValue(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC1123,
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
}

// parseDate parses an RFC 5322 Date header, trying the layout variants
// seen in the wild. It falls back to now so a malformed header never
// blocks processing.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}
	// Drop a trailing "(TZ)" comment that trips the numeric-zone layouts.
	if open := strings.LastIndex(raw, " ("); open != -1 && strings.HasSuffix(raw, ")") {
		trimmed := strings.TrimSpace(raw[:open])
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t
			}
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}

// extractBody pulls a plain-text body out of a Gmail message payload. The
// first text/plain part wins; an HTML part with tags stripped is the
// fallback when no plain-text part exists.
func extractBody(payload *gmailapi.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) > 0 {
		var htmlFallback string
		for _, part := range payload.Parts {
			switch part.MimeType {
			case "text/plain":
				if text := decodePartBody(part); text != "" {
					return strings.TrimSpace(text)
				}
			case "text/html":
				if htmlFallback == "" {
					htmlFallback = decodePartBody(part)
				}
			}
		}
		return strings.TrimSpace(stripTags(htmlFallback))
	}

	if payload.MimeType == "text/plain" {
		return strings.TrimSpace(decodePartBody(payload))
	}
	return ""
}

func decodePartBody(part *gmailapi.MessagePart) string {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return ""
	}
	// Gmail returns unpadded base64url body data.
	data, err := base64.RawURLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
	}
	return string(data)
}

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, "")
}
