package markdown

import "testing"

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain passthrough", "no markers here", "no markers here"},
		{"escapes html", `see <b>this</b> & that`, "see &lt;b&gt;this&lt;/b&gt; &amp; that"},
		{"bold stars", "**bold**", "<strong>bold</strong>"},
		{"bold underscores", "__bold__", "<strong>bold</strong>"},
		{"italic star", "*italic*", "<em>italic</em>"},
		{"italic underscore", "_italic_", "<em>italic</em>"},
		{"bold before italic", "**a** *b*", "<strong>a</strong> <em>b</em>"},
		{"mixed inline", "say **hi** to _them_", "say <strong>hi</strong> to <em>them</em>"},
		{"unclosed star stays", "a * b", "a * b"},
		{"star pair spans spaces", "5 * 3 = 15*", "5 <em> 3 = 15</em>"},
		{"newline to break", "line one\nline two", "line one<br />line two"},
		{"bold across words", "**two words**", "<strong>two words</strong>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.in); got != tc.want {
				t.Fatalf("Render(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
