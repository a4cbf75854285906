package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "json", body["format"])
		assert.Equal(t, false, body["stream"])

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		resp := map[string]any{
			"message": map[string]any{"role": "assistant", "content": content},
			"done":    true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{Host: srv.URL, Model: "llama3.2"}, nil)
}

func TestPing(t *testing.T) {
	srv := newTestServer(t, "{}", http.StatusOK)
	assert.NoError(t, newTestClient(srv).Ping(context.Background()))
}

func TestPingUnreachable(t *testing.T) {
	c := NewClient(Config{Host: "http://127.0.0.1:1", Model: "llama3.2"}, nil)
	assert.Error(t, c.Ping(context.Background()))
}

func TestExtractGap(t *testing.T) {
	srv := newTestServer(t,
		`{"title":"Maintenance overrun","description":"Bid was 10000, invoice came to 15000.","item":"Building maintenance contract","participants":"John Smith, Jane Doe","amount_increase":5000}`,
		http.StatusOK)

	fields, raw, err := newTestClient(srv).ExtractGap(context.Background(), "some email text")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "Maintenance overrun", fields.Title)
	assert.Equal(t, "Building maintenance contract", fields.Item)
	assert.Equal(t, "5000.00", fields.AmountIncrease)
}

func TestExtractGap_FencedResponse(t *testing.T) {
	srv := newTestServer(t,
		"```json\n{\"title\":\"t\",\"description\":\"d\",\"item\":\"i\",\"participants\":\"p\",\"amount_increase\":\"12.50\"}\n```",
		http.StatusOK)

	fields, _, err := newTestClient(srv).ExtractGap(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "12.50", fields.AmountIncrease)
}

func TestExtractGap_MalformedResponse(t *testing.T) {
	srv := newTestServer(t, "I could not find any JSON to produce.", http.StatusOK)
	_, _, err := newTestClient(srv).ExtractGap(context.Background(), "text")
	assert.Error(t, err)
}

func TestExtractGap_ServerError(t *testing.T) {
	srv := newTestServer(t, "", http.StatusInternalServerError)
	_, _, err := newTestClient(srv).ExtractGap(context.Background(), "text")
	assert.Error(t, err)
}

func TestExtractAlarm(t *testing.T) {
	srv := newTestServer(t,
		`{"date_time":"Unknown","summary":"No concerning issues found."}`,
		http.StatusOK)

	fields, _, err := newTestClient(srv).ExtractAlarm(context.Background(), "text")
	require.NoError(t, err)
	assert.Nil(t, fields.DateTime, "Unknown must normalize to null")
	assert.Equal(t, "No concerning issues found.", fields.Summary)
}

func TestExtractReferences(t *testing.T) {
	srv := newTestServer(t,
		`{"references":[{"attachment_name":"invoice_2024.pdf","message_date":"2024-01-15"}]}`,
		http.StatusOK)

	fields, _, err := newTestClient(srv).ExtractReferences(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, fields.References, 1)
	assert.Equal(t, "invoice_2024.pdf", fields.References[0].AttachmentName)
}

func TestExtractReferences_EmptyList(t *testing.T) {
	srv := newTestServer(t, `{"references":[]}`, http.StatusOK)
	fields, _, err := newTestClient(srv).ExtractReferences(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, fields.References)
}

func TestEngineReportedError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, _, err := newTestClient(srv).ExtractGap(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
