// Package parser reads and writes article Markdown files: YAML front matter
// followed by the Markdown body.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// FrontMatter is the metadata block of an article file. Parent holds the
// slug of the parent article. Unknown keys are kept in Extra.
type FrontMatter struct {
	Title  string         `yaml:"title"`
	Slug   string         `yaml:"slug,omitempty"`
	Parent string         `yaml:"parent,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

// Result holds the output of parsing an article file.
type Result struct {
	FrontMatter
	Body  string
	Title string
}

// Parse splits data into front matter and body. Files without front matter
// are all body. The final line break belongs to the file, not the body, so
// Parse(Encode(fm, body)) yields body unchanged. Title falls back to the
// first H1 heading.
func Parse(data []byte) (*Result, error) {
	var fm FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return nil, fmt.Errorf("parser: front matter: %w", err)
	}
	res := &Result{
		FrontMatter: fm,
		Body:        strings.TrimSuffix(strings.TrimLeft(string(body), "\r\n"), "\n"),
	}
	res.Title = deriveTitle(fm, res.Body)
	return res, nil
}

// Encode renders an article file terminated by a line break. Extra is not
// written.
func Encode(fm FrontMatter, body string) ([]byte, error) {
	fm.Extra = nil
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("parser: encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	buf.WriteString(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// deriveTitle returns the front matter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm FrontMatter, body string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
