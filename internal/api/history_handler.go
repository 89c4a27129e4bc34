package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/identity"
	"search-chat/backend/internal/interfaces"
	"search-chat/backend/internal/model"
)

// Form action names, as posted to `/?/<action>`.
const (
	ActionSaveMessages  = "saveMessages"
	ActionDeleteHistory = "deleteHistory"
	ActionDeleteMessage = "deleteMessage"
)

// SaveMessagesForm is the saveMessages action payload.
type SaveMessagesForm struct {
	IP       string `form:"ip" validate:"required"`
	Messages string `form:"messages" validate:"required"`
}

// DeleteHistoryForm is the deleteHistory action payload.
type DeleteHistoryForm struct {
	IP string `form:"ip" validate:"required"`
}

// DeleteMessageForm is the deleteMessage action payload.
type DeleteMessageForm struct {
	IP string `form:"ip" validate:"required"`
	ID string `form:"id" validate:"required"`
}

// HistoryHandler serves the page-load data and the history form actions.
type HistoryHandler struct {
	service  interfaces.HistoryService
	resolver identity.Resolver
}

func NewHistoryHandler(svc interfaces.HistoryService, resolver identity.Resolver) *HistoryHandler {
	return &HistoryHandler{service: svc, resolver: resolver}
}

// Load godoc
// @Summary      Load chat history
// @Description  Resolves the caller's identity and returns it together with the stored messages.
// @Tags         History
// @Produce      json
// @Success      200  {object}  model.History
// @Failure      503  {object}  ErrorResponse
// @Router       / [get]
func (h *HistoryHandler) Load(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolver.Resolve(w, r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	history, err := h.service.Load(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

// HandleAction godoc
// @Summary      Run a history form action
// @Description  Dispatches `/?/saveMessages`, `/?/deleteHistory` and `/?/deleteMessage`. Fields are form encoded.
// @Tags         History
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        ip        formData  string  true   "Client identity"
// @Param        messages  formData  string  false  "JSON array of messages (saveMessages)"
// @Param        id        formData  string  false  "Message ID (deleteMessage)"
// @Success      200       {object}  model.ActionResult
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      503       {object}  ErrorResponse
// @Router       /actions/{action} [post]
func (h *HistoryHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "" {
		action = actionFromQuery(r.URL.RawQuery)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := r.ParseMultipartForm(MaxRequestBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		respondWithError(w, fmt.Errorf("%w: %v", app_errors.ErrInvalidBody, err))
		return
	}

	var err error
	switch action {
	case ActionSaveMessages:
		err = h.saveMessages(r)
	case ActionDeleteHistory:
		err = h.deleteHistory(r)
	case ActionDeleteMessage:
		err = h.deleteMessage(r)
	default:
		err = fmt.Errorf("%w: unknown action %q", app_errors.ErrNotFound, action)
	}
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, model.ActionResult{Success: true})
}

func (h *HistoryHandler) saveMessages(r *http.Request) error {
	form := SaveMessagesForm{
		IP:       r.PostFormValue("ip"),
		Messages: r.PostFormValue("messages"),
	}
	if err := validateRequest(&form); err != nil {
		return err
	}
	return h.service.SaveBulk(r.Context(), form.IP, form.Messages)
}

func (h *HistoryHandler) deleteHistory(r *http.Request) error {
	form := DeleteHistoryForm{IP: r.PostFormValue("ip")}
	if err := validateRequest(&form); err != nil {
		return err
	}
	return h.service.DeleteAll(r.Context(), form.IP)
}

func (h *HistoryHandler) deleteMessage(r *http.Request) error {
	form := DeleteMessageForm{
		IP: r.PostFormValue("ip"),
		ID: r.PostFormValue("id"),
	}
	if err := validateRequest(&form); err != nil {
		return err
	}
	return h.service.DeleteMessage(r.Context(), form.IP, form.ID)
}

// actionFromQuery extracts "saveMessages" from a raw query such as
// "/saveMessages" or "/saveMessages&x=1".
func actionFromQuery(rawQuery string) string {
	action, _, _ := strings.Cut(rawQuery, "&")
	return strings.TrimPrefix(action, "/")
}
