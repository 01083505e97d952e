package preview

import "errors"

var (
	// ErrInvalidPattern — шаблон ссылки не компилируется или не содержит группу.
	ErrInvalidPattern = errors.New("invalid preview url pattern")

	// ErrNoCommentSource — не задан источник комментариев.
	ErrNoCommentSource = errors.New("comment source is required")
)
