package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Preflight/internal/repo"
)

// ErrorCode — машиночитаемый код ошибки в ответе.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — тело ответа с ошибкой:
//
//	{"error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — описание ошибки. RequestID совпадает с заголовком X-Request-ID.
type ErrorDetail struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// DataResponse — конверт ответа с одним объектом.
type DataResponse struct {
	Data any `json:"data"`
}

// Page — параметры страницы списка.
type Page struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResponse — конверт ответа со страницей списка.
type ListResponse struct {
	Data any  `json:"data"`
	Page Page `json:"page"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Success — 200 с объектом.
func Success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created — 201: run создан.
func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted — 202: событие принято, результат будет позже.
func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List — 200 со страницей списка.
func List(w http.ResponseWriter, data any, page Page) {
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Page: page})
}

// Error отправляет ответ с ошибкой и ID запроса, выставленным RequestID middleware.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: w.Header().Get(HeaderRequestID),
		},
	})
}

// BadRequest — 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized — 401 (неверная подпись webhook).
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// InternalError — 500. Текст err клиенту не отдаётся, только в лог.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// StoreError пишет ответ для ошибки хранилища runs.
// Возвращает false, если err == nil и ответ не отправлен.
func StoreError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		Error(w, http.StatusNotFound, ErrCodeNotFound, notFoundMsg)
	default:
		InternalError(w, logger, err)
	}
	return true
}
