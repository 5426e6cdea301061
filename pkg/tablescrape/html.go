package tablescrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoTable is returned by ParseHTML when the document has no matching table
var ErrNoTable = errors.New("tablescrape: no table found")

// StaticTable is a Table over a parsed HTML document, used for saved pages
type StaticTable struct {
	headers []string
	rows    []*html.Node
}

// ParseHTML parses a document and returns its table with the given id, or the
// first table when id is empty. The parser inserts <tbody> the way a browser does.
func ParseHTML(r io.Reader, id string) (*StaticTable, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findTable(doc, id)
	if table == nil {
		if id != "" {
			return nil, fmt.Errorf("%w: id %q", ErrNoTable, id)
		}
		return nil, ErrNoTable
	}

	t := &StaticTable{}
	for _, section := range children(table) {
		switch section.DataAtom {
		case atom.Thead:
			// thead tr th
			for _, tr := range descendants(section, atom.Tr) {
				for _, th := range descendants(tr, atom.Th) {
					t.headers = append(t.headers, textContent(th))
				}
			}
		case atom.Tbody:
			t.rows = append(t.rows, descendants(section, atom.Tr)...)
		}
	}

	return t, nil
}

// HeaderTexts implements Table
func (t *StaticTable) HeaderTexts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.headers, nil
}

// BodyRows implements Table
func (t *StaticTable) BodyRows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]Row, len(t.rows))
	for i, tr := range t.rows {
		rows[i] = &staticRow{node: tr}
	}
	return rows, nil
}

type staticRow struct {
	node  *html.Node
	cells []*html.Node
}

func (r *staticRow) CellText(ctx context.Context, index int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.cells == nil {
		r.cells = descendants(r.node, atom.Td)
	}
	if index < 0 || index >= len(r.cells) {
		return "", ErrCellMissing
	}
	return textContent(r.cells[index]), nil
}

func findTable(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		if id == "" || attr(n, "id") == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTable(c, id); found != nil {
			return found
		}
	}
	return nil
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// descendants collects elements of kind a below n in document order, without
// entering nested tables.
func descendants(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == a {
				out = append(out, c)
			}
			if c.DataAtom == atom.Table {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// textContent concatenates descendant text verbatim, like the DOM property
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
			return
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
