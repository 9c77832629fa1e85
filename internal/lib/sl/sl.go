// Package sl содержит вспомогательные функции для формирования
// структурированных полей slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op возвращает поле с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// RequestID возвращает поле с идентификатором запроса.
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}
