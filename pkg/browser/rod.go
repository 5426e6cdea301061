package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

const pollInterval = 100 * time.Millisecond

// accessibleName approximates the computed accessible name of an element
const accessibleName = `() => this.getAttribute("aria-label") || this.innerText || this.value || this.textContent || ""`

// textMatcher returns the innermost elements whose text matches
const textMatcher = `(text, exact) => {
	const norm = s => (s || "").replace(/\s+/g, " ").trim();
	const want = norm(text);
	const match = el => {
		const got = norm(el.textContent);
		return exact ? got === want : got.toLowerCase().includes(want.toLowerCase());
	};
	return Array.from(document.body.querySelectorAll("*"))
		.filter(el => match(el) && !Array.from(el.children).some(match));
}`

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	logger   zerolog.Logger
}

func launchRod(ctx context.Context, cfg Config, logger zerolog.Logger) (*rodBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().Headless(cfg.Headless)

	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	if cfg.ChromePath != "" {
		l = l.Bin(cfg.ChromePath)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: "failed to launch Chrome",
			Err:     err,
		}
	}

	b := rod.New().ControlURL(url)
	if cfg.SlowMo > 0 {
		b = b.SlowMotion(cfg.SlowMo)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: "failed to connect to CDP",
			Err:     err,
		}
	}

	logger.Debug().Str("controlURL", url).Bool("headless", cfg.Headless).Msg("Browser launched")
	return &rodBrowser{browser: b, launcher: l, cfg: cfg, logger: logger}, nil
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: "failed to open page",
			Err:     err,
		}
	}
	// rebind so the page outlives ctx
	return &rodPage{page: page.Context(context.Background()), timeout: b.cfg.timeout()}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	if err != nil {
		return &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to close browser", Err: err}
	}
	return nil
}

type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

func (p *rodPage) Goto(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return &BrowserError{
			Code:    ErrCodeNavigation,
			Message: fmt.Sprintf("failed to navigate to %s", url),
			Err:     err,
		}
	}
	if err := page.WaitLoad(); err != nil {
		return &BrowserError{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("page load timeout: %s", url),
			Err:     err,
		}
	}
	return nil
}

func (p *rodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to read page info", Err: err}
	}
	return info.Title, nil
}

func (p *rodPage) Locator(selector string) Locator {
	return &rodLocator{page: p, kind: stepCSS, selector: selector}
}

func (p *rodPage) ByRole(role Role, name string, exact bool) Locator {
	return roleLocator(p, nil, role, name, exact)
}

func (p *rodPage) ByPlaceholder(text string) Locator {
	return &rodLocator{page: p, kind: stepCSS, selector: PlaceholderSelector(text)}
}

func (p *rodPage) ByText(text string, exact bool) Locator {
	return &rodLocator{page: p, kind: stepText, name: text, exact: exact}
}

func (p *rodPage) Table(selector string) tablescrape.Table {
	return &rodTable{loc: &rodLocator{page: p, kind: stepCSS, selector: selector}}
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return nil, &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to capture screenshot", Err: err}
	}
	return data, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type stepKind int

const (
	stepCSS stepKind = iota
	stepName
	stepText
	stepNth
)

// rodLocator is one step of a lazy locator chain
type rodLocator struct {
	page     *rodPage
	parent   *rodLocator
	kind     stepKind
	selector string
	name     string
	exact    bool
	index    int
	err      error
}

func roleLocator(p *rodPage, parent *rodLocator, role Role, name string, exact bool) *rodLocator {
	sel, err := RoleSelector(role)
	return &rodLocator{page: p, parent: parent, kind: stepName, selector: sel, name: name, exact: exact, err: err}
}

func (l *rodLocator) String() string {
	var step string
	switch l.kind {
	case stepNth:
		step = fmt.Sprintf("nth=%d", l.index)
	case stepName:
		step = fmt.Sprintf("%s [name=%q]", l.selector, l.name)
	case stepText:
		step = fmt.Sprintf("text=%q", l.name)
	default:
		step = l.selector
	}
	if l.parent == nil {
		return step
	}
	return l.parent.String() + " >> " + step
}

// resolve returns every element currently matching the chain, without waiting
func (l *rodLocator) resolve(ctx context.Context) ([]*rod.Element, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.kind == stepNth {
		els, err := l.parent.resolve(ctx)
		if err != nil {
			return nil, err
		}
		if l.index < 0 || l.index >= len(els) {
			return nil, nil
		}
		return els[l.index : l.index+1], nil
	}
	if l.kind == stepText {
		return l.page.page.Context(ctx).ElementsByJS(rod.Eval(textMatcher, l.name, l.exact))
	}

	var found []*rod.Element
	if l.parent == nil {
		els, err := l.page.page.Context(ctx).Elements(l.selector)
		if err != nil {
			return nil, err
		}
		found = els
	} else {
		roots, err := l.parent.resolve(ctx)
		if err != nil {
			return nil, err
		}
		for _, root := range roots {
			els, err := root.Context(ctx).Elements(l.selector)
			if err != nil {
				return nil, err
			}
			found = append(found, els...)
		}
	}

	if l.kind != stepName {
		return found, nil
	}

	matched := found[:0]
	for _, el := range found {
		name, err := elementName(ctx, el)
		if err != nil {
			return nil, err
		}
		if !MatchName(name, l.name, l.exact) {
			continue
		}
		// role queries skip hidden elements such as closed modals
		visible, err := el.Context(ctx).Visible()
		if err != nil {
			return nil, err
		}
		if visible {
			matched = append(matched, el)
		}
	}
	return matched, nil
}

func elementName(ctx context.Context, el *rod.Element) (string, error) {
	obj, err := el.Context(ctx).Eval(accessibleName)
	if err != nil {
		return "", err
	}
	return obj.Value.Str(), nil
}

// wait polls until the chain matches at least one element or the timeout ends
func (l *rodLocator) wait(ctx context.Context) (*rod.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.page.timeout)
	defer cancel()

	var lastErr error
	for {
		els, err := l.resolve(waitCtx)
		if err == nil && len(els) > 0 {
			return els[0], nil
		}
		if err != nil {
			var be *BrowserError
			if errors.As(err, &be) && be.Code == ErrCodeValidation {
				return nil, err
			}
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &BrowserError{
				Code:    ErrCodeElementNotFound,
				Message: fmt.Sprintf("no element matches %s within %s", l, l.page.timeout),
				Err:     lastErr,
			}
		case <-time.After(pollInterval):
		}
	}
}

// action binds a resolved element to the caller's context and the action timeout
func (l *rodLocator) action(ctx context.Context) (*rod.Element, error) {
	el, err := l.wait(ctx)
	if err != nil {
		return nil, err
	}
	return el.Context(ctx).Timeout(l.page.timeout), nil
}

func (l *rodLocator) Click(ctx context.Context) error {
	el, err := l.action(ctx)
	if err != nil {
		return err
	}
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &BrowserError{Code: ErrCodeInteraction, Message: fmt.Sprintf("failed to click %s", l), Err: err}
	}
	return nil
}

func (l *rodLocator) Fill(ctx context.Context, value string) error {
	el, err := l.action(ctx)
	if err != nil {
		return err
	}
	defer el.CancelTimeout()

	if err := el.SelectAllText(); err != nil {
		return &BrowserError{Code: ErrCodeInteraction, Message: fmt.Sprintf("failed to select %s", l), Err: err}
	}
	if err := el.Input(value); err != nil {
		return &BrowserError{Code: ErrCodeInteraction, Message: fmt.Sprintf("failed to fill %s", l), Err: err}
	}
	return nil
}

func (l *rodLocator) property(ctx context.Context, name string) (string, error) {
	el, err := l.action(ctx)
	if err != nil {
		return "", err
	}
	defer el.CancelTimeout()

	v, err := el.Property(name)
	if err != nil {
		return "", &BrowserError{Code: ErrCodeInteraction, Message: fmt.Sprintf("failed to read %s of %s", name, l), Err: err}
	}
	return v.Str(), nil
}

func (l *rodLocator) TextContent(ctx context.Context) (string, error) {
	return l.property(ctx, "textContent")
}

func (l *rodLocator) InputValue(ctx context.Context) (string, error) {
	return l.property(ctx, "value")
}

func (l *rodLocator) Count(ctx context.Context) (int, error) {
	els, err := l.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (l *rodLocator) Nth(index int) Locator {
	return &rodLocator{page: l.page, parent: l, kind: stepNth, index: index}
}

func (l *rodLocator) First() Locator {
	return l.Nth(0)
}

func (l *rodLocator) Locator(selector string) Locator {
	return &rodLocator{page: l.page, parent: l, kind: stepCSS, selector: selector}
}

func (l *rodLocator) ByRole(role Role, name string, exact bool) Locator {
	return roleLocator(l.page, l, role, name, exact)
}

// rodTable reads a live table through CDP
type rodTable struct {
	loc *rodLocator
}

func (t *rodTable) HeaderTexts(ctx context.Context) ([]string, error) {
	table, err := t.loc.wait(ctx)
	if err != nil {
		return nil, err
	}
	ths, err := table.Context(ctx).Elements("thead tr th")
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(ths))
	for i, th := range ths {
		if texts[i], err = textContent(ctx, th); err != nil {
			return nil, err
		}
	}
	return texts, nil
}

func (t *rodTable) BodyRows(ctx context.Context) ([]tablescrape.Row, error) {
	table, err := t.loc.wait(ctx)
	if err != nil {
		return nil, err
	}
	trs, err := table.Context(ctx).Elements("tbody tr")
	if err != nil {
		return nil, err
	}
	rows := make([]tablescrape.Row, len(trs))
	for i, tr := range trs {
		rows[i] = &rodRow{el: tr}
	}
	return rows, nil
}

type rodRow struct {
	el    *rod.Element
	cells rod.Elements
}

func (r *rodRow) CellText(ctx context.Context, index int) (string, error) {
	if r.cells == nil {
		cells, err := r.el.Context(ctx).Elements("td")
		if err != nil {
			return "", err
		}
		r.cells = cells
	}
	if index < 0 || index >= len(r.cells) {
		return "", tablescrape.ErrCellMissing
	}
	return textContent(ctx, r.cells[index])
}

func textContent(ctx context.Context, el *rod.Element) (string, error) {
	v, err := el.Context(ctx).Property("textContent")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

// ChromeAvailable reports whether a local Chrome binary exists, without downloading one
func ChromeAvailable() bool {
	_, ok := launcher.LookPath()
	return ok
}
