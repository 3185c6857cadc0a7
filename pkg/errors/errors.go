package errors

import "fmt"

var (
	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Авторизация админ-эндпоинтов
	ErrForbidden = fmt.Errorf("доступ запрещён")
)

// ConnectivityError — фатальная ошибка доступа к источнику данных.
// Только такие ошибки прерывают весь запуск; всё остальное (пустой
// справочник, пустые получатели, неудачная отправка письма) обрабатывается
// локально и не эскалируется.
type ConnectivityError struct {
	Source string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("нет связи с источником %s: %v", e.Source, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func NewConnectivityError(source string, err error) error {
	return &ConnectivityError{Source: source, Err: err}
}
