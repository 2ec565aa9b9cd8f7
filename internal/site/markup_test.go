package site_test

import (
	"testing"

	"flashbulb/internal/site"
)

func TestSafeMarkup(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "A & B", want: "A &amp; B"},
		{name: "allowed", in: "<b>bold</b> and <i>it</i>", want: "<b>bold</b> and <i>it</i>"},
		{name: "unclosed", in: "<em>open", want: "<em>open</em>"},
		{name: "attributes dropped", in: `<b style="color:red" onclick="x()">hi</b>`, want: "<b>hi</b>"},
		{name: "link", in: `<a href="https://example.com/a?b=1&amp;c=2">x</a>`, want: `<a href="https://example.com/a?b=1&amp;c=2" rel="nofollow">x</a>`},
		{name: "javascript href", in: `<a href="javascript:alert(1)">x</a>`, want: "<a>x</a>"},
		{name: "unknown tag", in: `<span class="x">text</span>`, want: "text"},
		{name: "break", in: "one<br>two<br/>three", want: "one<br>two<br>three"},
		{name: "stray close", in: "a</b>b", want: "ab"},
		{name: "interleaved", in: "<b><i>x</b>y</i>", want: "<b><i>x</i></b>y"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(site.SafeMarkup(tc.in)); got != tc.want {
				t.Fatalf("SafeMarkup(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSafeMarkupStripsScript(t *testing.T) {
	got := string(site.SafeMarkup(`<script>alert("x")</script>ok`))
	if got != "alert(&#34;x&#34;)ok" {
		t.Fatalf("unexpected output %q", got)
	}
}
