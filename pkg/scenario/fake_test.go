package scenario

import (
	"context"
	"errors"
	"sync"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

type fakePage struct {
	title  string
	value  string
	text   string
	table  tablescrape.Table
	shot   []byte
	closed bool
}

func (p *fakePage) Goto(ctx context.Context, url string) error { return ctx.Err() }

func (p *fakePage) Title(ctx context.Context) (string, error) { return p.title, ctx.Err() }

func (p *fakePage) Locator(selector string) browser.Locator { return &fakeLocator{page: p} }

func (p *fakePage) ByRole(role browser.Role, name string, exact bool) browser.Locator {
	return &fakeLocator{page: p}
}

func (p *fakePage) ByPlaceholder(text string) browser.Locator { return &fakeLocator{page: p} }

func (p *fakePage) ByText(text string, exact bool) browser.Locator { return &fakeLocator{page: p} }

func (p *fakePage) Table(selector string) tablescrape.Table { return p.table }

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.shot == nil {
		return nil, errors.New("no screenshot")
	}
	return p.shot, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeLocator struct {
	page *fakePage
}

func (l *fakeLocator) Click(ctx context.Context) error { return ctx.Err() }

func (l *fakeLocator) Fill(ctx context.Context, value string) error {
	l.page.value = value
	return ctx.Err()
}

func (l *fakeLocator) TextContent(ctx context.Context) (string, error) { return l.page.text, ctx.Err() }

func (l *fakeLocator) InputValue(ctx context.Context) (string, error) { return l.page.value, ctx.Err() }

func (l *fakeLocator) Count(ctx context.Context) (int, error) { return 1, ctx.Err() }

func (l *fakeLocator) Nth(index int) browser.Locator { return l }

func (l *fakeLocator) First() browser.Locator { return l }

func (l *fakeLocator) Locator(selector string) browser.Locator { return l }

func (l *fakeLocator) ByRole(role browser.Role, name string, exact bool) browser.Locator {
	return l
}

// fakeOpener hands out pages built by newPage and remembers them
type fakeOpener struct {
	mu      sync.Mutex
	newPage func() *fakePage
	err     error
	pages   []*fakePage
}

func (o *fakeOpener) NewPage(ctx context.Context) (browser.Page, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	p := &fakePage{}
	if o.newPage != nil {
		p = o.newPage()
	}
	o.pages = append(o.pages, p)
	return p, nil
}

// seqTable serves successive snapshots, one per BodyRows call
type seqTable struct {
	headers   []string
	snapshots []tablescrape.Rows
	calls     int
}

func (t *seqTable) HeaderTexts(ctx context.Context) ([]string, error) {
	return t.headers, ctx.Err()
}

func (t *seqTable) BodyRows(ctx context.Context) ([]tablescrape.Row, error) {
	i := t.calls
	if i >= len(t.snapshots) {
		i = len(t.snapshots) - 1
	}
	t.calls++

	snapshot := t.snapshots[i]
	rows := make([]tablescrape.Row, len(snapshot))
	for r, cells := range snapshot {
		rows[r] = sliceRow(cells)
	}
	return rows, ctx.Err()
}

type sliceRow []string

func (r sliceRow) CellText(ctx context.Context, index int) (string, error) {
	if index >= len(r) {
		return "", tablescrape.ErrCellMissing
	}
	return r[index], nil
}
