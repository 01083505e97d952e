package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidReviewRequest — строка не является ссылкой на review request.
var ErrInvalidReviewRequest = errors.New("invalid review request reference")

var reviewRequestPattern = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)#([0-9]+)$`)

// ReviewRequest — ссылка на проверяемое изменение (pull request).
type ReviewRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// ParseReviewRequest парсит ссылку вида "owner/repo#42".
func ParseReviewRequest(s string) (ReviewRequest, error) {
	m := reviewRequestPattern.FindStringSubmatch(s)
	if m == nil {
		return ReviewRequest{}, fmt.Errorf("%w: %q (expected owner/repo#number)", ErrInvalidReviewRequest, s)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return ReviewRequest{}, fmt.Errorf("%w: bad number in %q", ErrInvalidReviewRequest, s)
	}
	return ReviewRequest{Owner: m[1], Repo: m[2], Number: n}, nil
}

// Validate проверяет, что все поля заполнены.
func (r ReviewRequest) Validate() error {
	if r.Owner == "" || r.Repo == "" || r.Number <= 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidReviewRequest, r)
	}
	return nil
}

// String возвращает ссылку в формате "owner/repo#42".
func (r ReviewRequest) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Comment — сообщение, прикреплённое к review request.
type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
