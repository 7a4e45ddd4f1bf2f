package handler

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nexsite/internal/admin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// TemplateFuncs returns the helpers page templates rely on.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// markdown falls back to escaped text if conversion fails.
		"markdown": func(content string) template.HTML {
			out, err := renderMarkdown(content)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(content))
			}
			return out
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sectionLabel": admin.SectionLabel,
	}
}
