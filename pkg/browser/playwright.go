package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     Config
	logger  zerolog.Logger
}

func launchPlaywright(ctx context.Context, cfg Config, logger zerolog.Logger) (*pwBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: "failed to start playwright",
			Err:     err,
		}
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(cfg.SlowMo.Milliseconds()))
	}
	if cfg.ChromePath != "" {
		opts.ExecutablePath = playwright.String(cfg.ChromePath)
	}
	if cfg.NoSandbox {
		opts.ChromiumSandbox = playwright.Bool(false)
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: "failed to launch chromium",
			Err:     err,
		}
	}

	logger.Debug().Bool("headless", cfg.Headless).Msg("Browser launched")
	return &pwBrowser{pw: pw, browser: browser, cfg: cfg, logger: logger}, nil
}

func (b *pwBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := call(ctx, nil, func() (playwright.Page, error) {
		return b.browser.NewPage()
	})
	if err != nil {
		return nil, &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to open page", Err: err}
	}

	ms := float64(b.cfg.timeout().Milliseconds())
	page.SetDefaultTimeout(ms)
	page.SetDefaultNavigationTimeout(ms)
	return &pwPage{page: page, gate: newGate()}, nil
}

func (b *pwBrowser) Close() error {
	berr := b.browser.Close()
	serr := b.pw.Stop()
	if berr != nil {
		return &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to close browser", Err: berr}
	}
	if serr != nil {
		return &BrowserError{Code: ErrCodeBrowserCrash, Message: "failed to stop playwright", Err: serr}
	}
	return nil
}

// gate serializes the calls made on one page. A call abandoned when its
// context ends keeps the gate until playwright returns, so the next call on
// the same page, such as a failure screenshot, never overlaps it. Close does
// not take the gate; closing the page aborts an abandoned call.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

// call runs fn and returns early when ctx ends. playwright-go calls are bounded
// by the page default timeout, not by a context, so fn keeps running after an
// early return. A nil gate skips serialization.
func call[T any](ctx context.Context, g gate, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if g != nil {
		select {
		case g <- struct{}{}:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		if g != nil {
			defer func() { <-g }()
		}
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func do(ctx context.Context, g gate, fn func() error) error {
	_, err := call(ctx, g, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

type pwPage struct {
	page playwright.Page
	gate gate
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	err := do(ctx, p.gate, func() error {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
		})
		return err
	})
	if err != nil {
		return &BrowserError{
			Code:    ErrCodeNavigation,
			Message: fmt.Sprintf("failed to navigate to %s", url),
			Err:     err,
		}
	}
	return nil
}

func (p *pwPage) Title(ctx context.Context) (string, error) {
	return call(ctx, p.gate, p.page.Title)
}

func (p *pwPage) Locator(selector string) Locator {
	return &pwLocator{loc: p.page.Locator(selector), gate: p.gate, desc: selector}
}

func (p *pwPage) ByRole(role Role, name string, exact bool) Locator {
	return byRole(func(sel string) playwright.Locator { return p.page.Locator(sel) }, p.gate, role, name, exact, "")
}

func (p *pwPage) ByPlaceholder(text string) Locator {
	sel := PlaceholderSelector(text)
	return &pwLocator{loc: p.page.Locator(sel), gate: p.gate, desc: sel}
}

func (p *pwPage) ByText(text string, exact bool) Locator {
	desc := fmt.Sprintf("text=%q", text)
	return &pwLocator{loc: p.page.GetByText(namePattern(text, exact)), gate: p.gate, desc: desc}
}

func (p *pwPage) Table(selector string) tablescrape.Table {
	return &pwTable{loc: p.page.Locator(selector).First(), gate: p.gate}
}

func (p *pwPage) Screenshot(ctx context.Context) ([]byte, error) {
	return call(ctx, p.gate, func() ([]byte, error) {
		return p.page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(true),
		})
	})
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

type pwLocator struct {
	loc  playwright.Locator
	gate gate
	desc string
	err  error
}

func byRole(locate func(string) playwright.Locator, g gate, role Role, name string, exact bool, parent string) Locator {
	sel, err := RoleSelector(role)
	if err != nil {
		return &pwLocator{err: err, gate: g, desc: string(role)}
	}
	loc := locate(":is(" + sel + "):visible")
	if name != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: namePattern(name, exact)})
	}
	desc := fmt.Sprintf("role=%s [name=%q]", role, name)
	if parent != "" {
		desc = parent + " >> " + desc
	}
	return &pwLocator{loc: loc, gate: g, desc: desc}
}

func (l *pwLocator) String() string {
	return l.desc
}

func (l *pwLocator) wrap(err error, code, verb string) error {
	if err == nil {
		return nil
	}
	var be *BrowserError
	if errors.As(err, &be) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BrowserError{Code: code, Message: fmt.Sprintf("failed to %s %s", verb, l.desc), Err: err}
}

func (l *pwLocator) Click(ctx context.Context) error {
	if l.err != nil {
		return l.err
	}
	return l.wrap(do(ctx, l.gate, func() error { return l.loc.Click() }), ErrCodeInteraction, "click")
}

func (l *pwLocator) Fill(ctx context.Context, value string) error {
	if l.err != nil {
		return l.err
	}
	return l.wrap(do(ctx, l.gate, func() error { return l.loc.Fill(value) }), ErrCodeInteraction, "fill")
}

func (l *pwLocator) TextContent(ctx context.Context) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	text, err := call(ctx, l.gate, func() (string, error) { return l.loc.TextContent() })
	return text, l.wrap(err, ErrCodeElementNotFound, "read text of")
}

func (l *pwLocator) InputValue(ctx context.Context) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	value, err := call(ctx, l.gate, func() (string, error) { return l.loc.InputValue() })
	return value, l.wrap(err, ErrCodeElementNotFound, "read value of")
}

func (l *pwLocator) Count(ctx context.Context) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	return call(ctx, l.gate, l.loc.Count)
}

func (l *pwLocator) Nth(index int) Locator {
	if l.err != nil {
		return l
	}
	return &pwLocator{loc: l.loc.Nth(index), gate: l.gate, desc: fmt.Sprintf("%s >> nth=%d", l.desc, index)}
}

func (l *pwLocator) First() Locator {
	return l.Nth(0)
}

func (l *pwLocator) Locator(selector string) Locator {
	if l.err != nil {
		return l
	}
	return &pwLocator{loc: l.loc.Locator(selector), gate: l.gate, desc: l.desc + " >> " + selector}
}

func (l *pwLocator) ByRole(role Role, name string, exact bool) Locator {
	if l.err != nil {
		return l
	}
	return byRole(func(sel string) playwright.Locator { return l.loc.Locator(sel) }, l.gate, role, name, exact, l.desc)
}

// pwTable reads a live table through playwright locators
type pwTable struct {
	loc  playwright.Locator
	gate gate
}

func (t *pwTable) attached(ctx context.Context) error {
	return do(ctx, t.gate, func() error {
		return t.loc.WaitFor(playwright.LocatorWaitForOptions{
			State: playwright.WaitForSelectorStateAttached,
		})
	})
}

func (t *pwTable) HeaderTexts(ctx context.Context) ([]string, error) {
	if err := t.attached(ctx); err != nil {
		return nil, err
	}
	return call(ctx, t.gate, func() ([]string, error) {
		return t.loc.Locator("thead tr th").AllTextContents()
	})
}

func (t *pwTable) BodyRows(ctx context.Context) ([]tablescrape.Row, error) {
	if err := t.attached(ctx); err != nil {
		return nil, err
	}
	trs, err := call(ctx, t.gate, t.loc.Locator("tbody tr").All)
	if err != nil {
		return nil, err
	}
	rows := make([]tablescrape.Row, len(trs))
	for i, tr := range trs {
		rows[i] = &pwRow{cells: tr.Locator("td"), gate: t.gate}
	}
	return rows, nil
}

type pwRow struct {
	cells playwright.Locator
	gate  gate
	count int
	known bool
}

func (r *pwRow) CellText(ctx context.Context, index int) (string, error) {
	if !r.known {
		n, err := call(ctx, r.gate, r.cells.Count)
		if err != nil {
			return "", err
		}
		r.count, r.known = n, true
	}
	if index < 0 || index >= r.count {
		return "", tablescrape.ErrCellMissing
	}
	return call(ctx, r.gate, func() (string, error) {
		return r.cells.Nth(index).TextContent()
	})
}
