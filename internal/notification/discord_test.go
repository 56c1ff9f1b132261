package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordSendsEmbed(t *testing.T) {
	var got DiscordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord("", srv.URL)
	require.NoError(t, d.SendSuccess(context.Background(), "3 fields updated"))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "3 fields updated", got.Embeds[0].Description)
	assert.Equal(t, colorGreen, got.Embeds[0].Color)
}

func TestDiscordDisabledWithoutURL(t *testing.T) {
	d := NewDiscord("", "")
	assert.NoError(t, d.SendError(context.Background(), "boom"))
	assert.NoError(t, d.SendSuccess(context.Background(), "ok"))
}

func TestDiscordRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, "")
	d.client.RetryWaitMin = time.Millisecond
	d.client.RetryWaitMax = time.Millisecond

	require.NoError(t, d.SendError(context.Background(), "boom"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDiscordRejectsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, "").SendError(context.Background(), "boom")
	assert.ErrorContains(t, err, "status code: 400")
}
