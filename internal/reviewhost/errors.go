package reviewhost

import (
	"errors"
	"fmt"
)

// ErrUpstream — ответ review host вне диапазона 2xx.
var ErrUpstream = errors.New("review host request failed")

// maxErrorBody — сколько байт тела ответа попадает в текст ошибки.
const maxErrorBody = 512

// UpstreamAPIError — review host вернул ответ вне диапазона 2xx.
//
// errors.Is(err, ErrUpstream) истинно для любой UpstreamAPIError.
type UpstreamAPIError struct {
	// Operation — имя операции (например, "get pull request").
	Operation string

	// Status — HTTP статус ответа.
	Status int

	// Body — тело ответа (может быть обрезано).
	Body string
}

// Error реализует интерфейс error.
func (e *UpstreamAPIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Operation, e.Status)
	if e.Body != "" {
		body := e.Body
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// Is позволяет сравнивать с ErrUpstream.
func (e *UpstreamAPIError) Is(target error) bool {
	return target == ErrUpstream
}

// StatusOf возвращает HTTP статус из UpstreamAPIError (0, если это другая ошибка).
func StatusOf(err error) int {
	var apiErr *UpstreamAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
