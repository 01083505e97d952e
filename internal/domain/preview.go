package domain

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidPreview — preview-окружение не прошло валидацию.
var ErrInvalidPreview = errors.New("invalid preview environment")

// DeploymentStatusReady — статус, который выставляется,
// когда бот деплоя опубликовал ссылку на preview.
const DeploymentStatusReady = "ready"

// PreviewEnvironment — развёрнутое и доступное извне окружение с изменениями.
type PreviewEnvironment struct {
	// PreviewURL — абсолютный URL окружения.
	PreviewURL string `json:"previewUrl"`

	// DeploymentStatus — статус деплоя на момент обнаружения.
	DeploymentStatus string `json:"deploymentStatus"`
}

// Validate проверяет, что PreviewURL — абсолютный http(s) URL.
func (e PreviewEnvironment) Validate() error {
	u, err := url.Parse(e.PreviewURL)
	if err != nil {
		return fmt.Errorf("%w: parse url %q: %v", ErrInvalidPreview, e.PreviewURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: url %q is not absolute", ErrInvalidPreview, e.PreviewURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidPreview, u.Scheme)
	}
	return nil
}
