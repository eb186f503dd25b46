package sanitize

import (
	"bytes"
	"encoding/json"
	"strings"

	"squeakyknees/internal/models"
)

// RawBlock is an untrusted block as submitted by a client. Pointer fields
// distinguish a missing field from an empty one.
type RawBlock struct {
	Type     string
	HTML     *string
	Language *string
	Code     *string
}

type rawBlockJSON struct {
	Type     string          `json:"type"`
	HTML     *string         `json:"html"`
	Language *string         `json:"language"`
	Code     *string         `json:"code"`
	Content  *string         `json:"content"`
	Value    json.RawMessage `json:"value"`
}

type rawCodeValue struct {
	Language *string `json:"language"`
	Code     *string `json:"code"`
	Content  *string `json:"content"`
}

// UnmarshalJSON accepts both the flat form ({"type":"code","code":..}) and
// the StreamField form where the payload sits under "value".
func (b *RawBlock) UnmarshalJSON(data []byte) error {
	var aux rawBlockJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := RawBlock{Type: aux.Type, HTML: aux.HTML, Language: aux.Language, Code: firstNonNil(aux.Code, aux.Content)}

	if v := bytes.TrimSpace(aux.Value); len(v) > 0 && !bytes.Equal(v, []byte("null")) {
		switch v[0] {
		case '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if out.HTML == nil {
				out.HTML = &s
			}
		case '{':
			var cv rawCodeValue
			if err := json.Unmarshal(v, &cv); err != nil {
				return err
			}
			if out.Code == nil {
				out.Code = firstNonNil(cv.Code, cv.Content)
			}
			if out.Language == nil {
				out.Language = cv.Language
			}
		}
	}

	*b = out
	return nil
}

// ParseRawBlocks decodes a JSON array of blocks. Any decoding problem is
// reported as a MALFORMED validation error.
func ParseRawBlocks(data []byte) ([]RawBlock, error) {
	var blocks []RawBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, newError(ReasonMalformed, -1, "content must be a JSON array of blocks")
	}
	return blocks, nil
}

// ToRaw turns clean content back into raw input.
func ToRaw(content models.Content) []RawBlock {
	raw := make([]RawBlock, 0, len(content))
	for _, b := range content {
		switch v := b.(type) {
		case models.TextBlock:
			html := v.HTML
			raw = append(raw, RawBlock{Type: string(models.BlockText), HTML: &html})
		case models.CodeBlock:
			lang, code := v.Language, v.Code
			raw = append(raw, RawBlock{Type: string(models.BlockCode), Language: &lang, Code: &code})
		}
	}
	return raw
}

func TextRaw(html string) RawBlock {
	return RawBlock{Type: string(models.BlockText), HTML: &html}
}

func CodeRaw(language, code string) RawBlock {
	return RawBlock{Type: string(models.BlockCode), Language: &language, Code: &code}
}

func kindOf(t string) (models.BlockKind, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "text", "rich_text", "richtext":
		return models.BlockText, true
	case "code":
		return models.BlockCode, true
	}
	return "", false
}

func firstNonNil(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
