package schema

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionName(t *testing.T) {
	assert.Equal(t, "static-assets-v1", PartitionName(PartitionStatic, "v1"))
	assert.Equal(t, "api-responses-2024-10", PartitionName(PartitionAPI, "2024-10"))
	assert.NotEqual(t, PartitionName(PartitionImages, "v1"), PartitionName(PartitionImages, "v2"))
}

func TestRequestCacheKey(t *testing.T) {
	a := &Request{Method: "GET", URL: "/api/events?page=1"}
	b := &Request{Method: "GET", URL: "/api/events?page=2"}
	c := &Request{Method: "HEAD", URL: "/api/events?page=1"}

	assert.NotEqual(t, a.CacheKey(), b.CacheKey(), "query participates in identity")
	assert.NotEqual(t, a.CacheKey(), c.CacheKey(), "method participates in identity")
	assert.Equal(t, a.CacheKey(), (&Request{Method: "GET", URL: "/api/events?page=1"}).CacheKey())
}

func TestCachedResponseClone(t *testing.T) {
	orig := &CachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte("hello"),
	}

	clone := orig.Clone()
	clone.Body[0] = 'X'
	clone.Header.Set("Content-Type", "text/html")

	assert.Equal(t, "hello", string(orig.Body))
	assert.Equal(t, "text/plain", orig.Header.Get("Content-Type"))

	var nilResp *CachedResponse
	assert.Nil(t, nilResp.Clone())
}

func TestParseQueueCategory(t *testing.T) {
	tests := []struct {
		tag  string
		want QueueCategory
		ok   bool
	}{
		{"applications", CategoryApplications, true},
		{"certificate-requests", CategoryCertificates, true},
		{"interaction-events", CategoryInteractions, true},
		{"likes", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := ParseQueueCategory(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePushPayload(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		p, ok := DecodePushPayload([]byte(`{"title":"T","data":{"url":"/x"}}`))
		require.True(t, ok)
		assert.Equal(t, "T", p.Title)
		assert.Equal(t, "/x", p.Data.URL)
	})

	t.Run("invalid json", func(t *testing.T) {
		p, ok := DecodePushPayload([]byte("plain text"))
		assert.False(t, ok)
		assert.Nil(t, p)
	})
}

func TestNewClientMessage(t *testing.T) {
	msg, err := NewClientMessage(MessagePerformance, PerformanceSample{URL: "/a", Method: "GET", DurationMS: 1.5})
	require.NoError(t, err)
	assert.Equal(t, MessagePerformance, msg.Type)
	assert.JSONEq(t, `{"url":"/a","method":"GET","duration":1.5,"cached":false}`, string(msg.Data))

	msg, err = NewClientMessage(MessageSkipWaiting, nil)
	require.NoError(t, err)
	assert.Empty(t, msg.Data)
}
