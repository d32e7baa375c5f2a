package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPendingVerification: кода нет, не запрашивался, истек или уже
	// использован.
	ErrNoPendingVerification = errors.New("no pending verification for user")
	// ErrCodeMismatch: код или номер не совпали с заявкой.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrBirthdayAlreadyRegistered: дата рождения записывается один раз.
	ErrBirthdayAlreadyRegistered = errors.New("birthday already registered")
	// ErrCityNotFound: указан неизвестный город.
	ErrCityNotFound = errors.New("city not found")
	// ErrUserNotFound: пользователь не зарегистрирован.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError описывает некорректное поле запроса.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}
