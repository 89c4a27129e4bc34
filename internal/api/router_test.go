package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-chat/backend/internal/api"
	"search-chat/backend/internal/identity"
	"search-chat/backend/internal/llm"
	"search-chat/backend/internal/model"
	"search-chat/backend/internal/repository"
	"search-chat/backend/internal/service"
)

const upstreamFrames = "data: {\"id\":\"doc-1\",\"type\":\"text\",\"text\":\"Go is a language\",\"score\":0.87}\n\n" +
	"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Go\"}}]}\n\n" +
	"data: [DONE]\n\n"

// newTestRouter wires the real services to a memory store and to handler
// acting as the AI Search provider.
func newTestRouter(t *testing.T, upstream http.HandlerFunc, limiter *api.RateLimiter) http.Handler {
	t.Helper()
	aiServer := httptest.NewServer(upstream)
	t.Cleanup(aiServer.Close)

	resolver := identity.NewHeaderResolver("cf-connecting-ip")
	chatService := service.NewChatService(llm.NewAISearchProvider(aiServer.URL, "test-token", 5*time.Second), "search-1")
	historyService := service.NewHistoryService(repository.NewMemoryRepository())

	return api.NewRouter(
		api.NewChatHandler(chatService),
		api.NewHistoryHandler(historyService, resolver),
		limiter,
		[]string{"*"},
	)
}

func postForm(t *testing.T, router http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func loadHistory(t *testing.T, router http.Handler, ip string) model.History {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("cf-connecting-ip", ip)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var history model.History
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	return history
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_HistoryLifecycle(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	const ip = "198.51.100.7"

	assert.Empty(t, loadHistory(t, router, ip).SavedMessages)

	messages := `[{"id":"m1","role":"user","content":"What is Go?"},` +
		`{"id":"m2","role":"assistant","content":null},` +
		`{"id":"m3","role":"assistant","content":"A language."}]`
	rr := postForm(t, router, "/?/saveMessages", url.Values{"ip": {ip}, "messages": {messages}})
	require.Equal(t, http.StatusOK, rr.Code)

	history := loadHistory(t, router, ip)
	assert.Equal(t, ip, history.IP)
	require.Len(t, history.SavedMessages, 3)
	assert.Equal(t, "m1", history.SavedMessages[0].ID)
	assert.Nil(t, history.SavedMessages[1].Content)
	assert.Equal(t, "A language.", *history.SavedMessages[2].Content)

	// Another identity sees nothing.
	assert.Empty(t, loadHistory(t, router, "198.51.100.8").SavedMessages)

	rr = postForm(t, router, "/actions/deleteMessage", url.Values{"ip": {ip}, "id": {"m2"}})
	require.Equal(t, http.StatusOK, rr.Code)
	history = loadHistory(t, router, ip)
	require.Len(t, history.SavedMessages, 2)
	assert.Equal(t, "m3", history.SavedMessages[1].ID)

	rr = postForm(t, router, "/?/deleteHistory", url.Values{"ip": {ip}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, loadHistory(t, router, ip).SavedMessages)

	// Deleting again is harmless.
	rr = postForm(t, router, "/?/deleteHistory", url.Values{"ip": {ip}})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_SaveWithoutIPPersistsNothing(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := postForm(t, router, "/?/saveMessages", url.Values{"messages": {`[{"id":"m1","role":"user","content":"hi"}]`}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, loadHistory(t, router, "default").SavedMessages)
}

func TestRouter_Chat(t *testing.T) {
	t.Run("Streams provider frames", func(t *testing.T) {
		var gotBody llm.ChatCompletionRequest
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search-1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, upstreamFrames)
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/chat",
			strings.NewReader(`[{"role":"system","content":"be brief"},{"role":"user","content":null}]`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
		assert.Equal(t, upstreamFrames, rr.Body.String())

		frames := strings.Split(strings.TrimSuffix(rr.Body.String(), "\n\n"), "\n\n")
		require.Len(t, frames, 3)
		var search model.SearchChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &search))
		assert.Equal(t, "doc-1", search.ID)
		assert.Equal(t, 0.87, search.Score)
		var completion model.CompletionChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &completion))
		require.Len(t, completion.Choices, 1)
		assert.Equal(t, "Go", completion.Choices[0].Delta.Content)
		assert.Equal(t, model.DoneSentinel, strings.TrimPrefix(frames[2], "data: "))

		assert.True(t, gotBody.Stream)
		require.Len(t, gotBody.Messages, 2)
		assert.Equal(t, llm.Message{Role: "system", Content: "be brief"}, gotBody.Messages[0])
		assert.Equal(t, llm.Message{Role: "user", Content: ""}, gotBody.Messages[1])
	})

	t.Run("Provider error is hidden", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream secret stack trace", http.StatusInternalServerError)
		}, nil)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`[{"role":"user","content":"hi"}]`)))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
	})

	t.Run("Provider without body", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}, nil)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`[{"role":"user","content":"hi"}]`)))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("Invalid payload never reaches the provider", func(t *testing.T) {
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("provider must not be called")
		}, nil)

		for _, body := range []string{`not json`, `[]`, `{"role":"user"}`, `[{"role":"user","content":42}]`} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		}
	})

	t.Run("Rate limited", func(t *testing.T) {
		limiter := api.NewRateLimiter(identity.NewHeaderResolver("cf-connecting-ip"), 0.001, 1)
		router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, upstreamFrames)
		}, limiter)

		send := func() int {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`[{"role":"user","content":"hi"}]`))
			req.Header.Set("cf-connecting-ip", "192.0.2.1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			return rr.Code
		}
		assert.Equal(t, http.StatusOK, send())
		assert.Equal(t, http.StatusTooManyRequests, send())
	})
}

func TestRouter_ChatClientDisconnectCancelsUpstream(t *testing.T) {
	upstreamCancelled := make(chan struct{})
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"id\":\"doc-1\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
			close(upstreamCancelled)
		case <-time.After(5 * time.Second):
		}
	}, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/chat",
		strings.NewReader(`[{"role":"user","content":"hi"}]`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"id\":\"doc-1\"}\n", line)

	cancel()
	select {
	case <-upstreamCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request still open after the client disconnected")
	}
}

func TestRouter_CORS(t *testing.T) {
	newRouter := func(origins []string) http.Handler {
		historyService := service.NewHistoryService(repository.NewMemoryRepository())
		return api.NewRouter(
			api.NewChatHandler(service.NewChatService(nil, "")),
			api.NewHistoryHandler(historyService, identity.NewHeaderResolver("cf-connecting-ip")),
			nil,
			origins,
		)
	}
	send := func(router http.Handler) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://chat.example.com")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Header()
	}

	t.Run("Wildcard origin omits credentials", func(t *testing.T) {
		headers := send(newRouter([]string{"*"}))
		assert.Equal(t, "*", headers.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, headers.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Explicit origin allows credentials", func(t *testing.T) {
		headers := send(newRouter([]string{"https://chat.example.com"}))
		assert.Equal(t, "https://chat.example.com", headers.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", headers.Get("Access-Control-Allow-Credentials"))
	})
}
