package mail

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Renderer loads `<name>.html` templates and substitutes {{token}} placeholders.
type Renderer struct {
	files fs.FS
}

// NewRenderer reads templates from dir on disk.
func NewRenderer(dir string) *Renderer {
	return NewRendererFS(os.DirFS(dir))
}

func NewRendererFS(files fs.FS) *Renderer {
	return &Renderer{files: files}
}

// Render returns the HTML body and its plaintext fallback. Unknown tokens
// render as empty strings. Values are HTML-escaped.
func (r *Renderer) Render(name string, fields map[string]string) (string, string, error) {
	raw, err := fs.ReadFile(r.files, name+".html")
	if err != nil {
		return "", "", fmt.Errorf("load email template %q: %w", name, err)
	}

	body := tokenPattern.ReplaceAllStringFunc(string(raw), func(tok string) string {
		key := tokenPattern.FindStringSubmatch(tok)[1]
		return html.EscapeString(fields[key])
	})

	text, err := PlainText(body)
	if err != nil {
		return "", "", fmt.Errorf("plaintext for %q: %w", name, err)
	}
	return body, text, nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "hr": true, "section": true, "footer": true, "header": true,
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// PlainText extracts readable text from an HTML document. Links keep their
// target in parentheses.
func PlainText(document string) (string, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "head", "style", "script", "title":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if n.Data == "a" {
				if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "mailto:") {
					fmt.Fprintf(&b, " (%s)", href)
				}
			}
			if blockElements[n.Data] {
				b.WriteString("\n")
			}
		}
	}
	walk(root)

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
