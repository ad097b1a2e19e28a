package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoopSender_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewNoopSender(zap.New(core))

	res, err := s.Send(context.Background(), SendRequest{To: []string{"team@example.com"}, Subject: "New lead"})
	require.NoError(t, err)
	require.NotEmpty(t, res.MessageID)
	require.Equal(t, 1, logs.FilterMessage("noop_email_send").Len())
}

func TestResendSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "REDLINE <noreply@example.com>", "ops@example.com", nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	res, err := s.Send(context.Background(), SendRequest{To: []string{"team@example.com"}, Subject: "New lead", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Equal(t, "msg_123", res.MessageID)
	require.Equal(t, "REDLINE <noreply@example.com>", got["from"])
	require.Equal(t, "New lead", got["subject"])
}

func TestResendSender_NoRecipients(t *testing.T) {
	_, err := NewResendSender("re_test", "from@example.com", "", nil).Send(context.Background(), SendRequest{})
	require.Error(t, err)
}
