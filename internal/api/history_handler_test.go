package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"search-chat/backend/internal/api"
	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/identity"
	"search-chat/backend/internal/interfaces/mocks"
	"search-chat/backend/internal/model"
)

func setupHistoryHandler(t *testing.T) (*api.HistoryHandler, *mocks.MockHistoryService) {
	mockHistorySvc := mocks.NewMockHistoryService(t)
	handler := api.NewHistoryHandler(mockHistorySvc, identity.NewHeaderResolver("cf-connecting-ip"))
	return handler, mockHistorySvc
}

// newActionRequest builds a SvelteKit-style `POST /?/<action>` form request.
func newActionRequest(action string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/?/"+action, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHistoryHandler_Load(t *testing.T) {
	t.Run("Uses header identity", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		hello := "hello"
		expected := &model.History{IP: "203.0.113.9", SavedMessages: []model.Message{{ID: "m1", Role: model.RoleUser, Content: &hello}}}
		mockHistorySvc.On("Load", mock.Anything, "203.0.113.9").Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("cf-connecting-ip", "203.0.113.9")
		rr := httptest.NewRecorder()
		handler.Load(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got model.History
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "203.0.113.9", got.IP)
		require.Len(t, got.SavedMessages, 1)
		assert.Equal(t, "m1", got.SavedMessages[0].ID)
	})

	t.Run("Falls back to default identity", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("Load", mock.Anything, "default").
			Return(&model.History{IP: "default", SavedMessages: []model.Message{}}, nil).Once()

		rr := httptest.NewRecorder()
		handler.Load(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ip":"default","savedMessages":[]}`, rr.Body.String())
	})

	t.Run("Store unavailable", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("Load", mock.Anything, "default").Return(nil, app_errors.ErrUnavailable).Once()

		rr := httptest.NewRecorder()
		handler.Load(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "Chatroom not available", decodeError(t, rr))
	})
}

func TestHistoryHandler_SaveMessages(t *testing.T) {
	messages := `[{"id":"m1","role":"user","content":"hi"}]`

	t.Run("Success", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("SaveBulk", mock.Anything, "10.1.1.1", messages).Return(nil).Once()

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionSaveMessages, url.Values{"ip": {"10.1.1.1"}, "messages": {messages}}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	})

	t.Run("Missing ip persists nothing", func(t *testing.T) {
		handler, _ := setupHistoryHandler(t)

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionSaveMessages, url.Values{"messages": {messages}}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr), "invalid request")
		assert.Contains(t, decodeError(t, rr), "'ip'")
	})

	t.Run("Missing messages", func(t *testing.T) {
		handler, _ := setupHistoryHandler(t)

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionSaveMessages, url.Values{"ip": {"10.1.1.1"}}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr), "'messages'")
	})

	t.Run("Store failure is hidden", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("SaveBulk", mock.Anything, "10.1.1.1", messages).Return(errors.New("sqlite: disk full")).Once()

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionSaveMessages, url.Values{"ip": {"10.1.1.1"}, "messages": {messages}}))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Internal server error", decodeError(t, rr))
	})
}

func TestHistoryHandler_DeleteHistory(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("DeleteAll", mock.Anything, "10.1.1.1").Return(nil).Once()

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionDeleteHistory, url.Values{"ip": {"10.1.1.1"}}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	})

	t.Run("Missing ip", func(t *testing.T) {
		handler, _ := setupHistoryHandler(t)

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest(api.ActionDeleteHistory, url.Values{}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHistoryHandler_DeleteMessage(t *testing.T) {
	handler, mockHistorySvc := setupHistoryHandler(t)
	mockHistorySvc.On("DeleteMessage", mock.Anything, "10.1.1.1", "m1").Return(nil).Once()

	rr := httptest.NewRecorder()
	handler.HandleAction(rr, newActionRequest(api.ActionDeleteMessage, url.Values{"ip": {"10.1.1.1"}, "id": {"m1"}}))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHistoryHandler_ActionRouting(t *testing.T) {
	t.Run("Unknown action", func(t *testing.T) {
		handler, _ := setupHistoryHandler(t)

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, newActionRequest("dropTables", url.Values{"ip": {"x"}}))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Path parameter", func(t *testing.T) {
		handler, mockHistorySvc := setupHistoryHandler(t)
		mockHistorySvc.On("DeleteAll", mock.Anything, "10.1.1.1").Return(nil).Once()

		form := url.Values{"ip": {"10.1.1.1"}}
		req := httptest.NewRequest(http.MethodPost, "/actions/deleteHistory", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		chiCtx := chi.NewRouteContext()
		chiCtx.URLParams.Add("action", api.ActionDeleteHistory)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))

		rr := httptest.NewRecorder()
		handler.HandleAction(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
