package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

type BlockKind string

const (
	BlockText BlockKind = "text"
	BlockCode BlockKind = "code"
)

// Block is one unit of comment content. The only implementations are
// TextBlock and CodeBlock.
type Block interface {
	Kind() BlockKind
	isBlock()
}

// TextBlock holds already-sanitized rich text HTML.
type TextBlock struct {
	HTML string
}

// CodeBlock holds literal source code; Language is a display hint only.
type CodeBlock struct {
	Language string
	Code     string
}

func (TextBlock) Kind() BlockKind { return BlockText }
func (CodeBlock) Kind() BlockKind { return BlockCode }
func (TextBlock) isBlock()        {}
func (CodeBlock) isBlock()        {}

// Content is the ordered block sequence stored on a comment (jsonb column).
type Content []Block

type blockJSON struct {
	Type     BlockKind `json:"type"`
	HTML     string    `json:"html,omitempty"`
	Language string    `json:"language,omitempty"`
	Code     string    `json:"code,omitempty"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	out := make([]blockJSON, 0, len(c))
	for _, b := range c {
		switch v := b.(type) {
		case TextBlock:
			out = append(out, blockJSON{Type: BlockText, HTML: v.HTML})
		case CodeBlock:
			out = append(out, blockJSON{Type: BlockCode, Language: v.Language, Code: v.Code})
		default:
			return nil, fmt.Errorf("unsupported block %T", b)
		}
	}
	return json.Marshal(out)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var in []blockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	blocks := make(Content, 0, len(in))
	for i, b := range in {
		switch b.Type {
		case BlockText:
			blocks = append(blocks, TextBlock{HTML: b.HTML})
		case BlockCode:
			blocks = append(blocks, CodeBlock{Language: b.Language, Code: b.Code})
		default:
			return fmt.Errorf("block %d: unknown type %q", i, b.Type)
		}
	}
	*c = blocks
	return nil
}

// Value implements driver.Valuer so GORM stores Content as jsonb.
func (c Content) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Content) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return errors.New("content: unsupported scan type")
	}
}
