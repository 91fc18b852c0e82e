package handlers

import (
	"time"

	"github.com/Freeeeeet/slotswap/internal/controller/state"
	"github.com/Freeeeeet/slotswap/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд и callback'ов
type Handlers struct {
	userService  *service.UserService
	slotService  *service.SlotService
	swapService  *service.SwapService
	stateManager *state.Manager
	location     *time.Location
	logger       *zap.Logger
}

// NewHandlers создаёт новый обработчик команд.
// Время, введённое пользователем, разбирается в location (nil означает time.Local).
func NewHandlers(
	userService *service.UserService,
	slotService *service.SlotService,
	swapService *service.SwapService,
	stateManager *state.Manager,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.Local
	}
	return &Handlers{
		userService:  userService,
		slotService:  slotService,
		swapService:  swapService,
		stateManager: stateManager,
		location:     location,
		logger:       logger,
	}
}
