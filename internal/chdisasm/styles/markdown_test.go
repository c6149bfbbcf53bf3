package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMarkdownRenderer(t *testing.T) {
	r, err := GetMarkdownRenderer(80)
	require.NoError(t, err)

	out, err := r.Render("# sections\n\n| Name | Size |\n|---|---|\n| .text | 6 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "sections")
	assert.Contains(t, out, ".text")
}

func TestGetMarkdownStyle(t *testing.T) {
	style := GetMarkdownStyle()
	require.NotNil(t, style.Table.ColumnSeparator)
	assert.Equal(t, "│", *style.Table.ColumnSeparator)
	require.NotNil(t, style.H1.Bold)
	assert.True(t, *style.H1.Bold)
}
