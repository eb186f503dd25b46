// Package sanitize turns untrusted comment blocks into clean content.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"squeakyknees/internal/models"
)

type Limits struct {
	MaxCodeChars     int // per code block
	MaxTextChars     int // sum over all text blocks, visible characters
	MaxLanguageChars int
}

var DefaultLimits = Limits{
	MaxCodeChars:     10000,
	MaxTextChars:     5000,
	MaxLanguageChars: 50,
}

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
	limits Limits
}

func New() *Sanitizer {
	return NewWithLimits(DefaultLimits)
}

func NewWithLimits(limits Limits) *Sanitizer {
	return &Sanitizer{policy: textPolicy(), limits: limits}
}

// textPolicy allows the rich text subset comments may use. script, style and
// iframe are dropped with their contents; on* and style attributes never pass.
func textPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "em", "u", "ul", "ol", "li", "blockquote", "code", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// Validate sanitizes raw and enforces the size limits. Blocks that are empty
// after sanitizing are dropped; if nothing is left the result is EMPTY.
func (s *Sanitizer) Validate(raw []RawBlock) (models.Content, error) {
	content := make(models.Content, 0, len(raw))
	textChars := 0

	for i, rb := range raw {
		kind, ok := kindOf(rb.Type)
		if !ok {
			return nil, newError(ReasonMalformed, i, "unknown block type %q", rb.Type)
		}

		switch kind {
		case models.BlockText:
			if rb.HTML == nil {
				return nil, newError(ReasonMalformed, i, "text block has no html")
			}
			clean := strings.TrimSpace(s.policy.Sanitize(*rb.HTML))
			visible := VisibleText(clean)
			textChars += utf8.RuneCountInString(visible)
			if textChars > s.limits.MaxTextChars {
				return nil, newError(ReasonTooLong, i, "comment text exceeds %d characters", s.limits.MaxTextChars)
			}
			if strings.TrimSpace(visible) == "" {
				continue
			}
			content = append(content, models.TextBlock{HTML: clean})

		case models.BlockCode:
			if rb.Code == nil {
				return nil, newError(ReasonMalformed, i, "code block has no code")
			}
			code := *rb.Code
			if utf8.RuneCountInString(code) > s.limits.MaxCodeChars {
				return nil, newError(ReasonTooLong, i, "code block exceeds %d characters", s.limits.MaxCodeChars)
			}
			var lang string
			if rb.Language != nil {
				lang = strings.TrimSpace(*rb.Language)
			}
			if utf8.RuneCountInString(lang) > s.limits.MaxLanguageChars {
				return nil, newError(ReasonTooLong, i, "code language exceeds %d characters", s.limits.MaxLanguageChars)
			}
			if strings.TrimSpace(code) == "" {
				continue
			}
			content = append(content, models.CodeBlock{Language: lang, Code: code})
		}
	}

	if len(content) == 0 {
		return nil, newError(ReasonEmpty, -1, "comment cannot be empty")
	}
	return content, nil
}

// VisibleText is the text a reader sees once markup is stripped and entities
// are decoded.
func VisibleText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}
