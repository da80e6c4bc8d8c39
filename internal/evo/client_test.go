package evo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDisabled(t *testing.T) {
	c := New("", "segredo")
	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.SendText(context.Background(), "351911111111", "olá"), ErrDisabled)
	assert.ErrorIs(t, c.UpdateEmbedding(context.Background(), 1), ErrDisabled)
}

func TestSendText(t *testing.T) {
	var gotPath, gotSecret string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSecret = r.Header.Get("X-Internal-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "segredo")
	require.NoError(t, c.SendText(context.Background(), "351911111111", "olá"))
	assert.Equal(t, "/api/internal/send-text", gotPath)
	assert.Equal(t, "segredo", gotSecret)
	assert.Equal(t, map[string]string{"number": "351911111111", "text": "olá"}, gotBody)
}

func TestSendAudioURL(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	audioURL := "https://app.example.pt/api/internal/faq-audio/3/7?token=s"
	require.NoError(t, c.SendAudioURL(context.Background(), "351911111111", audioURL))
	assert.Equal(t, "/api/internal/send-audio", gotPath)
	assert.Equal(t, map[string]string{"number": "351911111111", "audio_url": audioURL}, gotBody)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.UpdateEmbedding(context.Background(), 42)
	assert.Error(t, err)
}
