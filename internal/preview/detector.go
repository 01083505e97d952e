package preview

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/shaiso/Preflight/internal/domain"
)

// Шаблоны по умолчанию.
const (
	// DefaultLabeledPattern — ссылка с подписью; группа 1 — URL.
	DefaultLabeledPattern = `\[Visit Preview\]\((https?://[^\s)]+)\)`

	// DefaultBarePattern — голое имя хоста; группа 1 — хост.
	DefaultBarePattern = `\b([a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9-]+)*\.vercel\.app)\b`
)

// DefaultAuthors — автоматические идентичности по умолчанию.
var DefaultAuthors = []string{"vercel[bot]"}

// Detector извлекает ссылку на preview из комментариев.
type Detector struct {
	authors map[string]bool
	labeled *regexp.Regexp
	bare    *regexp.Regexp
}

// DetectorConfig — конфигурация Detector.
type DetectorConfig struct {
	// Authors — логины ботов деплоя (default: DefaultAuthors).
	Authors []string

	// LabeledPattern — шаблон ссылки с подписью (default: DefaultLabeledPattern).
	LabeledPattern string

	// BarePattern — шаблон голого хоста (default: DefaultBarePattern).
	BarePattern string
}

// NewDetector компилирует шаблоны.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	authors := cfg.Authors
	if len(authors) == 0 {
		authors = DefaultAuthors
	}

	labeledSrc := cfg.LabeledPattern
	if labeledSrc == "" {
		labeledSrc = DefaultLabeledPattern
	}
	bareSrc := cfg.BarePattern
	if bareSrc == "" {
		bareSrc = DefaultBarePattern
	}

	labeled, err := compile("labeled", labeledSrc)
	if err != nil {
		return nil, err
	}
	bare, err := compile("bare", bareSrc)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		authors: make(map[string]bool, len(authors)),
		labeled: labeled,
		bare:    bare,
	}
	for _, a := range authors {
		d.authors[strings.ToLower(a)] = true
	}
	return d, nil
}

func compile(name, src string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s pattern: %v", ErrInvalidPattern, name, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: %s pattern has no capture group", ErrInvalidPattern, name)
	}
	return re, nil
}

// Detect ищет preview в комментариях, начиная с самых новых.
//
// Учитываются только комментарии автоматических идентичностей.
// Возвращает false, если ссылки нет.
func (d *Detector) Detect(comments []domain.Comment) (domain.PreviewEnvironment, bool) {
	ordered := slices.Clone(comments)
	slices.SortStableFunc(ordered, func(a, b domain.Comment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	for _, c := range ordered {
		if !d.authors[strings.ToLower(c.Author)] {
			continue
		}
		if url, ok := d.ExtractURL(c.Body); ok {
			return domain.PreviewEnvironment{
				PreviewURL:       url,
				DeploymentStatus: domain.DeploymentStatusReady,
			}, true
		}
	}
	return domain.PreviewEnvironment{}, false
}

// ExtractURL извлекает URL из текста комментария.
func (d *Detector) ExtractURL(body string) (string, bool) {
	if m := d.labeled.FindStringSubmatch(body); m != nil && m[1] != "" {
		return m[1], true
	}
	if m := d.bare.FindStringSubmatch(body); m != nil && m[1] != "" {
		host := m[1]
		if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
			return host, true
		}
		return "https://" + host, true
	}
	return "", false
}
