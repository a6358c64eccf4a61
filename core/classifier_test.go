package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

func defaultClassifier() *Classifier {
	return NewClassifier(&contract.Config{
		APIPrefixes:     contract.DefaultAPIPrefixes,
		IdentityPaths:   contract.DefaultIdentityPaths,
		ImageExtensions: contract.DefaultImageExtensions,
		ImageHosts:      contract.DefaultImageHosts,
	})
}

func TestClassify(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name   string
		method string
		url    string
		want   schema.RequestClass
	}{
		{"api path", "GET", "/api/events", schema.ClassAPI},
		{"api path with query", "GET", "/api/events?page=2", schema.ClassAPI},
		{"api wins over image extension", "GET", "/api/avatar.png", schema.ClassAPI},
		{"image extension", "GET", "/assets/logo.png", schema.ClassImage},
		{"image extension uppercase", "GET", "/assets/LOGO.PNG", schema.ClassImage},
		{"image host", "GET", "https://images.unsplash.com/photo-123", schema.ClassImage},
		{"static page", "GET", "/about", schema.ClassStatic},
		{"static root", "GET", "/", schema.ClassStatic},
		{"static script", "GET", "/js/app.js", schema.ClassStatic},
		{"head is classified", "HEAD", "/about", schema.ClassStatic},
		{"post bypasses", "POST", "/api/events", schema.ClassBypass},
		{"put bypasses", "PUT", "/assets/logo.png", schema.ClassBypass},
		{"delete bypasses", "DELETE", "/about", schema.ClassBypass},
		{"unparsable url bypasses", "GET", "http://%zz", schema.ClassBypass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(&schema.Request{Method: tt.method, URL: tt.url})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := defaultClassifier()
	req := &schema.Request{Method: "GET", URL: "/api/events?cursor=abc"}

	first := c.Classify(req)
	for range 10 {
		assert.Equal(t, first, c.Classify(req))
	}
}

func TestIsIdentitySensitive(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"user endpoint", "/api/user", true},
		{"profile endpoint", "/api/profile", true},
		{"profile subpath", "/api/profile/settings", true},
		{"own applications", "/api/applications/mine", true},
		{"prefix without separator is distinct", "/api/users", false},
		{"generic api", "/api/events", false},
		{"static", "/about", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.IsIdentitySensitive(&schema.Request{Method: "GET", URL: tt.url})
			assert.Equal(t, tt.want, got)
		})
	}
}
