package extract

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Renderer turns markup into a queryable fragment.
type Renderer interface {
	Render(markup string) (Fragment, error)
}

// Fragment is rendered markup.
type Fragment interface {
	// Select returns the text content of the first element matching selector.
	// ok is false when the selector is invalid or matches nothing.
	Select(selector string) (text string, ok bool)
	// Text returns the text content of the whole fragment.
	Text() string
}

// HTMLRenderer parses markup as the body of a <div>, the way a browser
// treats innerHTML.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(markup string) (Fragment, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &htmlFragment{root: root}, nil
}

type htmlFragment struct {
	root *html.Node
}

func (f *htmlFragment) Select(selector string) (string, bool) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return "", false
	}
	n := cascadia.Query(f.root, sel)
	if n == nil {
		return "", false
	}
	return textContent(n), true
}

func (f *htmlFragment) Text() string {
	return textContent(f.root)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
