package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

func TestFromPush(t *testing.T) {
	d := NewDispatcher(&fakeHost{}, "CivilSoul", testLogger())

	t.Run("full payload passes through", func(t *testing.T) {
		n := d.FromPush([]byte(`{"title":"Update","body":"Your application moved forward","tag":"app-7","data":{"url":"/applications/7"}}`))
		assert.Equal(t, "Update", n.Title)
		assert.Equal(t, "Your application moved forward", n.Body)
		assert.Equal(t, "app-7", n.Tag)
		assert.Equal(t, "/applications/7", n.Data.URL)
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		n := d.FromPush([]byte(`{}`))
		assert.Equal(t, "CivilSoul", n.Title)
		assert.Equal(t, "New notification", n.Body)
	})

	t.Run("unparsable body degrades to plain text", func(t *testing.T) {
		n := d.FromPush([]byte("system maintenance at midnight"))
		assert.Equal(t, "CivilSoul", n.Title)
		assert.Equal(t, "system maintenance at midnight", n.Body)
	})

	t.Run("empty body degrades too", func(t *testing.T) {
		n := d.FromPush(nil)
		assert.Equal(t, "CivilSoul", n.Title)
	})
}

func TestHandleClick(t *testing.T) {
	t.Run("focuses an open instance at the target", func(t *testing.T) {
		h := &fakeHost{instances: []contract.Instance{
			{ID: "win-1", URL: "https://civilsoul.org/applications/7"},
			{ID: "win-2", URL: "https://civilsoul.org/feed"},
		}}
		d := NewDispatcher(h, "CivilSoul", testLogger())

		n := &schema.NotificationRequest{Data: schema.NotificationData{URL: "/applications/7"}}
		require.NoError(t, d.HandleClick(n, ""))
		assert.Equal(t, []string{"win-1"}, h.focused)
		assert.Empty(t, h.opened)
	})

	t.Run("opens a new instance when none matches", func(t *testing.T) {
		h := &fakeHost{instances: []contract.Instance{
			{ID: "win-1", URL: "https://civilsoul.org/feed"},
		}}
		d := NewDispatcher(h, "CivilSoul", testLogger())

		n := &schema.NotificationRequest{Data: schema.NotificationData{URL: "/applications/7"}}
		require.NoError(t, d.HandleClick(n, schema.ActionView))
		assert.Empty(t, h.focused)
		assert.Equal(t, []string{"/applications/7"}, h.opened)
	})

	t.Run("missing routing data falls back to root", func(t *testing.T) {
		h := &fakeHost{}
		d := NewDispatcher(h, "CivilSoul", testLogger())

		require.NoError(t, d.HandleClick(&schema.NotificationRequest{}, ""))
		assert.Equal(t, []string{"/"}, h.opened)
	})

	t.Run("trailing slash still matches", func(t *testing.T) {
		h := &fakeHost{instances: []contract.Instance{
			{ID: "win-1", URL: "https://civilsoul.org/applications/7/"},
		}}
		d := NewDispatcher(h, "CivilSoul", testLogger())

		n := &schema.NotificationRequest{Data: schema.NotificationData{URL: "/applications/7"}}
		require.NoError(t, d.HandleClick(n, ""))
		assert.Equal(t, []string{"win-1"}, h.focused)
	})
}
