package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateFuncs — функции шаблонов: sprig плюс JSON-хелперы.
var templateFuncs = func() template.FuncMap {
	funcs := sprig.TxtFuncMap()

	// json — сериализует значение в JSON строку
	funcs["json"] = func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	}

	// fromJSON — парсит JSON строку
	funcs["fromJSON"] = func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	}

	return funcs
}()

// Parse компилирует шаблон с функциями sprig.
func Parse(name, tmpl string) (*template.Template, error) {
	t, err := template.New(name).Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return t, nil
}

// Execute рендерит скомпилированный шаблон.
func Execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// MustParse компилирует шаблон и паникует при ошибке.
// Используется для шаблонов, заданных в коде.
func MustParse(name, tmpl string) *template.Template {
	t, err := Parse(name, tmpl)
	if err != nil {
		panic(err)
	}
	return t
}
