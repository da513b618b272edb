package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/zalo"
)

const botCheckTimeout = 10 * time.Second

// ZaloHandler manages the chat bot: webhook delivery, subscribers and the bot token.
type ZaloHandler struct {
	Client      *zalo.Client
	Bot         *zalo.Bot
	Subscribers *repo.SubscriberRepo
	Settings    *repo.SysConfigRepo
	Logger      *slog.Logger
}

// Webhook handles a pushed update. Body: {"ok": true, "result": {"message": {...}}}.
func (h *ZaloHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OK     bool        `json:"ok"`
		Result zalo.Update `json:"result"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	action := zalo.ActionNone
	if body.OK && body.Result.Message != nil {
		action = h.Bot.HandleUpdate(r.Context(), body.Result)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "action": string(action)})
}

// Subscribe adds a chat id to the broadcast list. Body: {"chat_id": "...", "display_name": "..."}.
func (h *ZaloHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ChatID      string `json:"chat_id" validate:"required,max=128"`
		DisplayName string `json:"display_name" validate:"max=255"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if fields := validateStruct(input); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Subscribers.Subscribe(r.Context(), input.ChatID, input.DisplayName); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ZaloHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Subscribers.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribers": subs})
}

func (h *ZaloHandler) botInfo(ctx context.Context) *zalo.BotInfo {
	ctx, cancel := context.WithTimeout(ctx, botCheckTimeout)
	defer cancel()
	info, err := h.Client.GetMe(ctx)
	if err != nil {
		if h.Logger != nil && err != zalo.ErrNotConfigured {
			h.Logger.Warn("zalo getMe failed", "error", err)
		}
		return nil
	}
	return info
}

// Status checks the bot connection and lists subscribers.
func (h *ZaloHandler) Status(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Subscribers.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	info := h.botInfo(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":    info != nil,
		"bot":          info,
		"subscribers":  subs,
		"token_masked": h.Client.MaskedToken(),
	})
}

// SetToken stores a new bot token, switches the client to it and tests it.
// The token is kept even when the test fails.
func (h *ZaloHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token" validate:"required"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if fields := validateStruct(input); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Settings.Set(r.Context(), repo.ConfigZaloToken, input.Token); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	h.Client.SetToken(input.Token)

	info := h.botInfo(r.Context())
	if info == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "token saved but connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "bot": info})
}

// Disconnect forgets the bot token; the poller goes idle.
func (h *ZaloHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Delete(r.Context(), repo.ConfigZaloToken); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	h.Client.SetToken("")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
