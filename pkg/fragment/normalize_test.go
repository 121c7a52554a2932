package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain markdown untouched",
			in:   "# Whale\n\nA city on its back.\n- one\n- two",
			want: "# Whale\n\nA city on its back.\n- one\n- two",
		},
		{
			name: "obsidian comments",
			in:   "Keep this. %%private aside%%\n\n%%\nmulti\nline\n%%\nAnd this.",
			want: "Keep this.\n\nAnd this.",
		},
		{
			name: "wikilinks and embeds",
			in:   "See [[notes/whale]] and [[light house#Lamp|the lighthouse]].\n![[map.png]]",
			want: "See whale and the lighthouse.",
		},
		{
			name: "html comment",
			in:   "Before <!-- clipped from somewhere --> after",
			want: "Before  after",
		},
		{
			name: "inline tags",
			in:   `A <span style="color:red">red</span> word<br>next line`,
			want: "A red word\nnext line",
		},
		{
			name: "html block",
			in: "Intro\n\n<div><h2>Harbor</h2><p>The <b>tide</b> <a href=\"https://x\">turns</a>.</p>" +
				"<ul><li>gulls</li><li>rope</li></ul><img src=\"a.png\"><script>x()</script></div>\n\nOutro",
			want: "Intro\n\n## Harbor\n\nThe tide turns .\n\n- gulls\n- rope\n\nOutro",
		},
		{
			name: "only frontmatter",
			in:   "---\ntitle: Empty\n---\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Frontmatter(t *testing.T) {
	t.Run("list tags", func(t *testing.T) {
		body, fm := Normalize("---\ntitle: The Whale City\ntags: [sea, myth]\naliases:\n  - whale\n---\nA city on its back.")
		assert.Equal(t, "A city on its back.", body)
		assert.Equal(t, "The Whale City", fm.Title)
		assert.Equal(t, []string{"sea", "myth"}, []string(fm.Tags))
		assert.Equal(t, []string{"whale"}, []string(fm.Aliases))
	})

	t.Run("scalar tag", func(t *testing.T) {
		_, fm := Normalize("---\ntags: sea\n---\nbody")
		assert.Equal(t, []string{"sea"}, []string(fm.Tags))
	})

	t.Run("broken yaml is dropped", func(t *testing.T) {
		body, fm := Normalize("---\ntitle: [unclosed\n---\nbody")
		assert.Equal(t, "body", body)
		assert.Empty(t, fm.Title)
	})

	t.Run("horizontal rule is not frontmatter", func(t *testing.T) {
		body, fm := Normalize("body\n---\nmore")
		assert.Equal(t, "body\n---\nmore", body)
		assert.Empty(t, fm.Title)
	})

	t.Run("crlf", func(t *testing.T) {
		body, fm := Normalize("---\r\ntitle: Win\r\n---\r\nline one\r\nline two")
		assert.Equal(t, "line one\nline two", body)
		assert.Equal(t, "Win", fm.Title)
	})
}
