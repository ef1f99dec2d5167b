package region

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput параметры запроса отклонены до запуска заливки
	ErrInvalidInput = errors.New("некорректные параметры")
	// ErrEmptyRegion заливка не нашла ни одного открытого вокселя
	ErrEmptyRegion = errors.New("пустой регион")
	// ErrCollaborator сбой мира или хранилища регионов; регион не зарегистрирован
	ErrCollaborator = errors.New("сбой внешнего компонента")
)

// InputError отказ во входных данных с сообщением для пользователя.
// errors.Is(err, ErrInvalidInput) истинно для любого InputError.
type InputError struct {
	Field   string
	Message string
}

// NewInputError создаёт ошибку входных данных
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return ErrInvalidInput.Error() + ": " + e.Message
	}
	return ErrInvalidInput.Error() + ": " + e.Field + ": " + e.Message
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// UserMessage возвращает сообщение для игрока или клиента API.
// Каждый класс ошибки получает своё сообщение.
func UserMessage(err error) string {
	var ie *InputError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ie):
		return ie.Message
	case errors.Is(err, ErrInvalidInput):
		return "Некорректные параметры команды"
	case errors.Is(err, ErrEmptyRegion):
		return "В этой точке нет открытого пространства: центр зоны находится внутри твёрдого блока"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Построение зоны прервано"
	default:
		return "Не удалось построить зону: внутренняя ошибка сервера"
	}
}
