package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripPrompts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no prompts is untouched",
			in:   "<p>prompt engineering</p>\n<br>",
			want: "<p>prompt engineering</p>\n<br>",
		},
		{
			name: "classic prompt at top level",
			in:   `<p>a</p><div class="prompt input_prompt">In [1]:</div><p>b</p>`,
			want: "<p>a</p><p>b</p>",
		},
		{
			name: "lab prompt nested in input area",
			in: `<div class="jp-InputArea"><div class="jp-InputPrompt jp-InputArea-prompt">In [2]:</div>` +
				`<pre>x = 1</pre></div>`,
			want: `<div class="jp-InputArea"><pre>x = 1</pre></div>`,
		},
		{
			name: "output prompts are kept",
			in:   `<div class="jp-OutputPrompt jp-OutputArea-prompt">Out[2]:</div>`,
			want: `<div class="jp-OutputPrompt jp-OutputArea-prompt">Out[2]:</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripPrompts(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripPrompts_FullDocument(t *testing.T) {
	in := `<!DOCTYPE html><html><head><title>t</title></head><body>` +
		`<div class="input_prompt">In [1]:</div><p>kept</p></body></html>`

	got, err := StripPrompts(in)
	require.NoError(t, err)
	assert.Contains(t, got, "<title>t</title>")
	assert.Contains(t, got, "<p>kept</p>")
	assert.NotContains(t, got, "In [1]:")
}

func TestStripPrompts_Deterministic(t *testing.T) {
	in := `<div class="jp-Cell"><div class="jp-InputPrompt">In [3]:</div><span a="1" b="2">x</span></div>`
	first, err := StripPrompts(in)
	require.NoError(t, err)
	second, err := StripPrompts(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
