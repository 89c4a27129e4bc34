package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"search-chat/backend/internal/interfaces"
)

// MaxRequestBodySize caps chat and form bodies (1MB).
const MaxRequestBodySize = 1 << 20

// streamBufferSize is the fixed copy buffer between the provider and the client.
const streamBufferSize = 32 * 1024

type ChatHandler struct {
	service interfaces.ChatService
}

func NewChatHandler(svc interfaces.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleChat godoc
// @Summary      Stream a chat completion
// @Description  Validates a message list, forwards it to the AI Search chat-completions endpoint and streams the provider frames back unmodified.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        messages  body      []model.Message  true  "Conversation so far, oldest first"
// @Success      200       {string}  string           "Provider stream frames"
// @Failure      400       {object}  ErrorResponse
// @Failure      429       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Failure      502       {object}  ErrorResponse
// @Failure      504       {object}  ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	stream, err := h.service.Complete(r.Context(), r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}
	defer func() {
		if cErr := stream.Close(); cErr != nil {
			slog.Debug("Failed to close upstream stream", "error", cErr)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	written, err := pipeStream(w, stream)
	switch {
	case err == nil:
		slog.Info("Finished streaming chat completion.", "bytes", written)
	case r.Context().Err() != nil:
		slog.Info("Client disconnected during chat completion.", "bytes", written)
	case errors.Is(err, errClientWrite):
		slog.Warn("Could not write to chat stream, client likely disconnected.", "bytes", written, "error", err)
	default:
		slog.Error("Upstream chat stream failed", "bytes", written, "error", err)
		sendStreamError(w, msgInternal)
	}
}

var errClientWrite = errors.New("write to client failed")

// pipeStream copies src to w verbatim, flushing after every read so frames
// reach the client as soon as the provider emits them. Nothing beyond one
// fixed buffer is held in memory.
func pipeStream(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamBufferSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, errors.Join(errClientWrite, err)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
