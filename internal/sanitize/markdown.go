package sanitize

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	mdhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var mdParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		mdhtml.WithHardWraps(),
		mdhtml.WithXHTML(),
	),
)

// FromPlainText wraps a plain text comment in a single escaped paragraph.
func FromPlainText(s string) []RawBlock {
	return []RawBlock{TextRaw("<p>" + html.EscapeString(strings.TrimSpace(s)) + "</p>")}
}

// FromMarkdown converts a markdown comment into raw blocks: fenced code
// becomes code blocks, everything between them is rendered to HTML text
// blocks. The result still has to go through Validate.
func FromMarkdown(source string) []RawBlock {
	src := []byte(source)
	doc := mdParser.Parser().Parse(text.NewReader(src))
	r := mdParser.Renderer()

	var blocks []RawBlock
	var buf bytes.Buffer
	flush := func() {
		if buf.Len() > 0 {
			blocks = append(blocks, TextRaw(buf.String()))
			buf.Reset()
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if fc, ok := n.(*ast.FencedCodeBlock); ok {
			flush()
			blocks = append(blocks, CodeRaw(string(fc.Language(src)), codeLines(fc, src)))
			continue
		}
		if err := renderNode(r, &buf, src, n); err != nil {
			// fall back to plain text if rendering fails
			return FromPlainText(source)
		}
	}
	flush()

	if len(blocks) == 0 {
		return FromPlainText(source)
	}
	return blocks
}

func renderNode(r renderer.Renderer, buf *bytes.Buffer, src []byte, n ast.Node) error {
	return r.Render(buf, src, n)
}

func codeLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
