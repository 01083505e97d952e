package reviewhost

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/shaiso/Preflight/internal/domain"
)

// Имена операций (попадают в UpstreamAPIError).
const (
	OpGetPullRequest = "get pull request"
	OpGetDiff        = "get diff"
	OpListComments   = "list comments"
	OpPostComment    = "post comment"
)

// commentsPerPage — максимальный размер страницы GitHub.
const commentsPerPage = 100

// PullRequest — метаданные review request.
type PullRequest struct {
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	State   string    `json:"state"`
	HTMLURL string    `json:"html_url"`
	Author  string    `json:"author"`
	HeadRef string    `json:"head_ref"`
	HeadSHA string    `json:"head_sha"`
	BaseRef string    `json:"base_ref"`
	Created time.Time `json:"created_at"`
}

// wire-форматы GitHub.
type (
	ghUser struct {
		Login string `json:"login"`
	}

	ghRef struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}

	ghPullRequest struct {
		Number    int       `json:"number"`
		Title     string    `json:"title"`
		Body      string    `json:"body"`
		State     string    `json:"state"`
		HTMLURL   string    `json:"html_url"`
		User      ghUser    `json:"user"`
		Head      ghRef     `json:"head"`
		Base      ghRef     `json:"base"`
		CreatedAt time.Time `json:"created_at"`
	}

	ghComment struct {
		ID        int64     `json:"id"`
		Body      string    `json:"body"`
		User      ghUser    `json:"user"`
		CreatedAt time.Time `json:"created_at"`
	}
)

func (c ghComment) toDomain() domain.Comment {
	return domain.Comment{
		ID:        c.ID,
		Author:    c.User.Login,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func pullPath(ref domain.ReviewRequest) string {
	return fmt.Sprintf("/repos/%s/%s/pulls/%d", url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), ref.Number)
}

func commentsPath(ref domain.ReviewRequest) string {
	return fmt.Sprintf("/repos/%s/%s/issues/%d/comments", url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), ref.Number)
}

// GetPullRequest возвращает метаданные review request.
func (c *Client) GetPullRequest(ctx context.Context, ref domain.ReviewRequest) (*PullRequest, error) {
	resp, err := c.Get(ctx, pullPath(ref))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpGetPullRequest, err)
	}

	pr, err := decode[ghPullRequest](OpGetPullRequest, resp)
	if err != nil {
		return nil, err
	}

	return &PullRequest{
		Number:  pr.Number,
		Title:   pr.Title,
		Body:    pr.Body,
		State:   pr.State,
		HTMLURL: pr.HTMLURL,
		Author:  pr.User.Login,
		HeadRef: pr.Head.Ref,
		HeadSHA: pr.Head.SHA,
		BaseRef: pr.Base.Ref,
		Created: pr.CreatedAt,
	}, nil
}

// GetDiff возвращает unified diff review request.
func (c *Client) GetDiff(ctx context.Context, ref domain.ReviewRequest) (string, error) {
	resp, err := c.do(ctx, "GET", pullPath(ref), nil, map[string]string{
		"Accept": "application/vnd.github.v3.diff",
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", OpGetDiff, err)
	}
	if err := expect(OpGetDiff, resp); err != nil {
		return "", err
	}
	return string(resp.Raw), nil
}

// ListComments возвращает не более limit последних комментариев
// в хронологическом порядке.
func (c *Client) ListComments(ctx context.Context, ref domain.ReviewRequest, limit int) ([]domain.Comment, error) {
	if limit <= 0 {
		limit = commentsPerPage
	}

	first, last, err := c.commentsPage(ctx, ref, 1)
	if err != nil {
		return nil, err
	}
	page := first

	// Комментарии отдаются от старых к новым: идём от последней страницы назад
	if last > 1 {
		page, _, err = c.commentsPage(ctx, ref, last)
		if err != nil {
			return nil, err
		}
		for n := last - 1; n >= 1 && len(page) < limit; n-- {
			prev := first
			if n > 1 {
				if prev, _, err = c.commentsPage(ctx, ref, n); err != nil {
					return nil, err
				}
			}
			page = append(prev, page...)
		}
	}

	if len(page) > limit {
		page = page[len(page)-limit:]
	}
	return page, nil
}

// RecentComments реализует preview.CommentSource.
func (c *Client) RecentComments(ctx context.Context, ref domain.ReviewRequest, limit int) ([]domain.Comment, error) {
	return c.ListComments(ctx, ref, limit)
}

func (c *Client) commentsPage(ctx context.Context, ref domain.ReviewRequest, page int) ([]domain.Comment, int, error) {
	path := fmt.Sprintf("%s?per_page=%d&page=%d", commentsPath(ref), commentsPerPage, page)
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", OpListComments, err)
	}

	raw, err := decode[[]ghComment](OpListComments, resp)
	if err != nil {
		return nil, 0, err
	}

	comments := make([]domain.Comment, len(raw))
	for i, rc := range raw {
		comments[i] = rc.toDomain()
	}
	return comments, lastPage(resp.link), nil
}

var lastPagePattern = regexp.MustCompile(`[?&]page=(\d+)[^>]*>;\s*rel="last"`)

// lastPage извлекает номер последней страницы из заголовка Link.
func lastPage(link string) int {
	m := lastPagePattern.FindStringSubmatch(link)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PostComment публикует комментарий к review request.
func (c *Client) PostComment(ctx context.Context, ref domain.ReviewRequest, body string) (*domain.Comment, error) {
	resp, err := c.Post(ctx, commentsPath(ref), map[string]string{"body": body})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpPostComment, err)
	}

	created, err := decode[ghComment](OpPostComment, resp)
	if err != nil {
		return nil, err
	}

	c.logger.Info("comment posted",
		"review_request", ref.String(),
		"comment_id", created.ID,
	)

	comment := created.toDomain()
	return &comment, nil
}
