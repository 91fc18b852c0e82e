package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleMySlots обрабатывает команду /myslots
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	s, err := h.mySlotsScreen(ctx, user)
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, ErrorText(err))
		return
	}
	h.sendWithKeyboard(ctx, b, update.Message.Chat.ID, s.text, s.keyboard)
}

// HandleMarket обрабатывает команду /market
func (h *Handlers) HandleMarket(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	s, err := h.marketScreen(ctx, user)
	if err != nil {
		h.logger.Error("Failed to list market", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, ErrorText(err))
		return
	}
	h.sendWithKeyboard(ctx, b, update.Message.Chat.ID, s.text, s.keyboard)
}

// HandleRequests обрабатывает команду /requests
func (h *Handlers) HandleRequests(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	s, err := h.requestsScreen(ctx, user)
	if err != nil {
		h.logger.Error("Failed to list proposals", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, ErrorText(err))
		return
	}
	h.sendWithKeyboard(ctx, b, update.Message.Chat.ID, s.text, s.keyboard)
}
