// Package core implements the offline agent: request classification,
// caching strategies, lifecycle, queue replay, and notification dispatch.
package core

import (
	"net/url"
	"strings"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Classifier assigns an intercepted request to exactly one traffic class.
// Classification is pure and stateless: identical input always yields the
// same class.
type Classifier struct {
	apiPrefixes   []string
	identityPaths []string
	imageExts     []string
	imageHosts    []string
}

// NewClassifier builds a classifier from the validated config.
func NewClassifier(cfg *contract.Config) *Classifier {
	return &Classifier{
		apiPrefixes:   cfg.APIPrefixes,
		identityPaths: cfg.IdentityPaths,
		imageExts:     cfg.ImageExtensions,
		imageHosts:    cfg.ImageHosts,
	}
}

// Classify inspects method, path, and host. Rules in order: non-read
// methods bypass, API prefixes, image extension or host, then static.
func (c *Classifier) Classify(req *schema.Request) schema.RequestClass {
	if req.Method != "GET" && req.Method != "HEAD" {
		return schema.ClassBypass
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return schema.ClassBypass
	}

	path := u.Path
	for _, prefix := range c.apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return schema.ClassAPI
		}
	}

	lowerPath := strings.ToLower(path)
	for _, ext := range c.imageExts {
		if strings.HasSuffix(lowerPath, ext) {
			return schema.ClassImage
		}
	}
	for _, host := range c.imageHosts {
		if u.Host == host {
			return schema.ClassImage
		}
	}

	return schema.ClassStatic
}

// IsIdentitySensitive reports whether the request targets a user or
// profile-scoped endpoint. Those endpoints get the structured offline
// JSON fallback instead of a propagated network failure.
func (c *Classifier) IsIdentitySensitive(req *schema.Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	for _, p := range c.identityPaths {
		if u.Path == p || strings.HasPrefix(u.Path, p+"/") {
			return true
		}
	}
	return false
}
