package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	cases := map[string]string{
		"Getting Started with React":   "getting-started-with-react",
		"  Web   Development  ":        "web-development",
		"C++ & Go: a love story!":      "c-go-a-love-story",
		"already-a-slug":               "already-a-slug",
		"--Leading and trailing--":     "leading-and-trailing",
		"multiple --- hyphens - here":  "multiple-hyphens-here",
		"Ünïcödé Tïtle 2024":           "ncd-ttle-2024",
		"tabs\tand\nnewlines are gone": "tabsandnewlines-are-gone",
		"":                             "",
		"!!!":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Derive(in), "Derive(%q)", in)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	titles := []string{
		"Introduction to TypeScript",
		"  --Mixed   Case-- & Symbols ## ",
		"a - b - c",
		"100% Pure",
	}
	for _, title := range titles {
		once := Derive(title)
		assert.Equal(t, once, Derive(once), "derive should be idempotent for %q", title)
	}
}

func TestDerive_ValidSlugUnchanged(t *testing.T) {
	for _, s := range []string{"technology", "web-development", "a1-b2-c3", "x"} {
		assert.True(t, Valid(s), "%q should be valid", s)
		assert.Equal(t, s, Derive(s))
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"", "-a", "a-", "a--b", "A", "a b", "a_b"} {
		assert.False(t, Valid(s), "%q should be invalid", s)
	}
}
