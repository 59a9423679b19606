package domain

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRadius: радиус не положительный или не число.
	ErrInvalidRadius = errors.New("некорректный радиус")
	// ErrRadiusTooLarge: радиус больше допустимого максимума.
	ErrRadiusTooLarge = errors.New("радиус превышает максимум")
	// ErrInvalidThreshold: порог качества вне диапазона 0..100.
	ErrInvalidThreshold = errors.New("некорректный порог качества")
	// ErrInvalidAddress: пустой или некорректный адрес.
	ErrInvalidAddress = errors.New("некорректный адрес")
	// ErrAddressNotFound: геокодер не нашёл адрес.
	ErrAddressNotFound = errors.New("адрес не найден")
	// ErrNotReady: не заданы местоположение или радиус.
	ErrNotReady = errors.New("сессия не настроена")
	// ErrProvider: временная ошибка внешнего провайдера.
	ErrProvider = errors.New("ошибка провайдера")
	// ErrUnknownEntity: идентификатор сущности отсутствует в справочнике.
	ErrUnknownEntity = errors.New("неизвестная сущность")
	// ErrUnknownCommand: команда не распознана.
	ErrUnknownCommand = errors.New("неизвестная команда")
)

// NotReadyError уточняет, каких настроек не хватает.
type NotReadyError struct {
	MissingLocation bool
	MissingRadius   bool
}

func (e *NotReadyError) Error() string {
	var missing []string
	if e.MissingLocation {
		missing = append(missing, "местоположение")
	}
	if e.MissingRadius {
		missing = append(missing, "радиус")
	}
	return ErrNotReady.Error() + ": не заданы " + strings.Join(missing, ", ")
}

// Is позволяет сравнивать с ErrNotReady через errors.Is.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// IsValidation сообщает, относится ли ошибка к ошибкам ввода пользователя.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRadius) ||
		errors.Is(err, ErrRadiusTooLarge) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrInvalidAddress)
}
