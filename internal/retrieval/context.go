package retrieval

import (
	"strings"

	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/safety"
)

const contextHeader = "Relevant prescription information:"

// ContextBlock concatenates snippets into the plain-text block embedded in
// the conversational agent's system prompt. The block is passed through the
// safety filter so it is already sanitized and length-bounded when it leaves
// this package. Empty snippets produce an empty block.
func ContextBlock(filter *safety.Filter, snippets []models.ContextSnippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, snippet := range snippets {
		b.WriteString("\n- ")
		b.WriteString(snippet.Text)
	}
	return filter.FilterInput(b.String())
}
