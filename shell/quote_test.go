package shell

import "testing"

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"foo":     "foo",
		"foo bar": "'foo bar'",
		"foo'bar": `"foo'bar"`,
		"":        "''",
		"$foo":    "'$foo'",
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrependIfSet(t *testing.T) {
	if got := PrependIfSet("-e", "foo"); got != "-e foo" {
		t.Errorf("got %q", got)
	}
	if got := PrependIfSet("-e", "$foo"); got != "-e '$foo'" {
		t.Errorf("got %q", got)
	}
}

func TestPrependAllIfSet(t *testing.T) {
	if got := PrependAllIfSet("-e", []string{"foo", "bar"}); got != "-e foo -e bar" {
		t.Errorf("got %q", got)
	}
	if got := PrependAllIfSet("-e", []string{"$foo", "bar"}); got != "-e '$foo' -e bar" {
		t.Errorf("got %q", got)
	}
	if got := PrependAllIfSet("-e", nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestQuoteJoin(t *testing.T) {
	if got := QuoteJoin([]string{"world", "hello there"}); got != "world 'hello there'" {
		t.Errorf("got %q", got)
	}
}
