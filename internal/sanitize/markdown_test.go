package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeakyknees/internal/models"
)

func TestFromPlainText(t *testing.T) {
	content, err := New().Validate(FromPlainText("  1 < 2 & <script>x</script> "))
	require.NoError(t, err)
	require.Len(t, content, 1)

	assert.Equal(t, "1 < 2 & <script>x</script>", VisibleText(content[0].(models.TextBlock).HTML))
}

func TestFromMarkdown_SplitsFencedCode(t *testing.T) {
	src := "Intro with **bold**.\n\n```go\nfmt.Println(\"hi\")\n```\n\nOutro."

	blocks := FromMarkdown(src)
	content, err := New().Validate(blocks)
	require.NoError(t, err)
	require.Len(t, content, 3)

	intro := content[0].(models.TextBlock)
	assert.Contains(t, intro.HTML, "<strong>bold</strong>")

	assert.Equal(t, models.CodeBlock{Language: "go", Code: "fmt.Println(\"hi\")\n"}, content[1])

	assert.Equal(t, "Outro.", VisibleText(content[2].(models.TextBlock).HTML))
}

func TestFromMarkdown_RawHTMLDoesNotSurvive(t *testing.T) {
	content, err := New().Validate(FromMarkdown("hello <script>alert(1)</script> <iframe src=x></iframe>"))
	require.NoError(t, err)

	html := content[0].(models.TextBlock).HTML
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "<iframe")
	assert.Contains(t, html, "hello")
}
