package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/engine"
)

// Instruments register globally, so tests share one set.
var testMetrics = NewMetrics("finsight_test")

type stubEngine struct {
	response engine.Response
	err      error

	sessionID string
	userText  string
}

func (s *stubEngine) HandleTurn(_ context.Context, sessionID, userText string) (engine.Response, error) {
	s.sessionID = sessionID
	s.userText = userText
	return s.response, s.err
}

func newTestServer(stub *stubEngine) *httptest.Server {
	return httptest.NewServer(New(stub, testMetrics).Router())
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&stubEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSessionReturnsUUID(t *testing.T) {
	ts := newTestServer(&stubEngine{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sessions", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created createSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_, err := uuid.Parse(created.SessionID)
	assert.NoError(t, err)
}

func TestChatPassesThroughEngineResponse(t *testing.T) {
	stub := &stubEngine{response: engine.Response{
		Kind:     engine.ResponseNeedsClarification,
		Question: "For which month?",
	}}
	ts := newTestServer(stub)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", chatRequest{
		SessionID: "s1",
		Message:   "how much did I spend?",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded engine.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, engine.ResponseNeedsClarification, decoded.Kind)
	assert.Equal(t, "For which month?", decoded.Question)

	assert.Equal(t, "s1", stub.sessionID)
	assert.Equal(t, "how much did I spend?", stub.userText)
}

func TestChatRejectsMissingFields(t *testing.T) {
	ts := newTestServer(&stubEngine{})
	defer ts.Close()

	tests := []struct {
		name string
		req  chatRequest
		code string
	}{
		{"no session", chatRequest{Message: "hello"}, "missing_session_id"},
		{"no message", chatRequest{SessionID: "s1"}, "missing_message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/chat", tt.req)
			defer resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var decoded errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
			assert.Equal(t, tt.code, decoded.Code)
		})
	}
}

func TestChatEngineErrorHidesDetail(t *testing.T) {
	stub := &stubEngine{err: errors.New("internal state corrupted")}
	ts := newTestServer(stub)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/chat", chatRequest{SessionID: "s1", Message: "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var decoded errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "turn_failed", decoded.Code)
	assert.NotContains(t, decoded.Error, "corrupted")
}
