package service

import "errors"

// Ошибки предметной области. Сервисы оборачивают их через
// fmt.Errorf("%w: ...", Err...), вызывающий проверяет через errors.Is.
// Любая другая ошибка считается внутренней.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidInterval = errors.New("invalid interval: end must be after start")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotEligible     = errors.New("slot is not eligible for swapping")
	ErrSelfSwap        = errors.New("cannot swap with your own slot")
	ErrAlreadyLocked   = errors.New("slot is already part of a pending swap")
	ErrNotPending      = errors.New("proposal is not pending")
	ErrLockedResource  = errors.New("slot is locked by a pending swap")
)

var domainErrors = []error{
	ErrInvalidInput,
	ErrInvalidInterval,
	ErrNotFound,
	ErrForbidden,
	ErrNotEligible,
	ErrSelfSwap,
	ErrAlreadyLocked,
	ErrNotPending,
	ErrLockedResource,
}

// IsDomainError сообщает, является ли err одной из ошибок предметной области
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
