package zalo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":"m1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok123")
	long := strings.Repeat("ư", 2500)
	require.NoError(t, c.SendMessage(context.Background(), "chat-9", long))

	assert.Equal(t, "/bottok123/sendMessage", gotPath)
	assert.Equal(t, "chat-9", got["chat_id"])
	assert.Equal(t, MaxMessageRunes, utf8.RuneCountInString(got["text"]))
}

func TestClient_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").SendMessage(context.Background(), "x", "hi")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "sendMessage", apiErr.Method)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	assert.ErrorIs(t, c.SendMessage(context.Background(), "x", "hi"), ErrNotConfigured)
	assert.False(t, c.Configured())

	c.SetToken("  abcdefghijklmnopqrstuvwxyz  ")
	assert.True(t, c.Configured())
	assert.Equal(t, "abcdefghij...qrstuvwxyz", c.MaskedToken())
}

func TestClient_GetUpdates(t *testing.T) {
	bodies := []string{
		`{"ok":true,"result":{"message":{"text":"/start","chat":{"id":"c1"},"from":{"display_name":"Lan"}}}}`,
		`{"ok":true,"result":[{"message":{"text":"a","chat":{"id":"c1"}}},{"message":{"text":"b","chat":{"id":"c2"}}}]}`,
		`{"ok":true,"result":null}`,
	}
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, 30, body["timeout"])
		_, _ = w.Write([]byte(bodies[i]))
		i++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	one, err := c.GetUpdates(context.Background(), 30*time.Second)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "Lan", one[0].Message.From.DisplayName)

	two, err := c.GetUpdates(context.Background(), 30*time.Second)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	none, err := c.GetUpdates(context.Background(), 30*time.Second)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClient_GetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/getMe"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":"b1","account_name":"bv_bot","display_name":"Bệnh viện"}}`))
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL, "tok").GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bv_bot", info.AccountName)
}
