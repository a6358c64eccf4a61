package core

import (
	"net/http"

	"github.com/civilsoul/offlined/schema"
)

// offlineJSONBody is part of the external contract; its exact shape is
// depended on by foreground clients.
const offlineJSONBody = `{"error":"Offline","message":"This data is not available offline"}`

// placeholderSVG is the inline vector image served when an image is
// unreachable and uncached. Image traffic never surfaces an error.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">` +
	`<rect width="400" height="300" fill="#e5e7eb"/>` +
	`<text x="200" y="150" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="18" fill="#6b7280">Image unavailable</text>` +
	`</svg>`

// OfflineJSON synthesizes the service-unavailable response for
// identity-sensitive API endpoints.
func OfflineJSON() *schema.CachedResponse {
	return &schema.CachedResponse{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(offlineJSONBody),
	}
}

// PlaceholderImage synthesizes the placeholder response for unreachable,
// uncached image traffic.
func PlaceholderImage() *schema.CachedResponse {
	return &schema.CachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"image/svg+xml"}},
		Body:   []byte(placeholderSVG),
	}
}
