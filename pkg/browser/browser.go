// Package browser is the page-driving capability used by the scenarios.
//
// Two engines implement it: go-rod over the Chrome DevTools Protocol (the
// default) and playwright-go. Locators are lazy: they describe how to find
// elements and resolve on every action, waiting up to the configured timeout
// for a match.
package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

// Browser owns the browser process
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browser tab
type Page interface {
	Goto(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	Locator(selector string) Locator
	ByRole(role Role, name string, exact bool) Locator
	ByPlaceholder(text string) Locator
	ByText(text string, exact bool) Locator
	// Table returns the first table matching selector
	Table(selector string) tablescrape.Table
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Locator finds elements relative to a page or another locator
type Locator interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	TextContent(ctx context.Context) (string, error)
	InputValue(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
	Nth(index int) Locator
	First() Locator
	Locator(selector string) Locator
	ByRole(role Role, name string, exact bool) Locator
}

// Launch starts the configured engine
func Launch(ctx context.Context, cfg Config, logger zerolog.Logger) (Browser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.With().Str("component", "browser").Str("engine", engineName(cfg)).Logger()

	if cfg.Engine == EnginePlaywright {
		return launchPlaywright(ctx, cfg, logger)
	}
	return launchRod(ctx, cfg, logger)
}

func engineName(cfg Config) string {
	if cfg.Engine == "" {
		return EngineRod
	}
	return cfg.Engine
}

var roleSelectors = map[Role]string{
	RoleButton:  `button, input[type="button"], input[type="submit"], input[type="reset"], [role="button"]`,
	RoleLink:    `a[href], [role="link"]`,
	RoleRow:     `tr, [role="row"]`,
	RoleHeading: `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	RoleTextbox: `input:not([type]), input[type="text"], input[type="email"], input[type="password"], input[type="number"], input[type="search"], textarea, [role="textbox"]`,
}

// RoleSelector returns the CSS selector matching elements with the role
func RoleSelector(role Role) (string, error) {
	sel, ok := roleSelectors[role]
	if !ok {
		return "", &BrowserError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("unsupported role %q", role),
		}
	}
	return sel, nil
}

// PlaceholderSelector matches inputs whose placeholder contains text, ignoring case
func PlaceholderSelector(text string) string {
	return fmt.Sprintf(`[placeholder*=%s i]`, cssString(text))
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// NormalizeSpace collapses whitespace runs and trims, the way accessible names are computed
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MatchName reports whether an element's accessible name matches name.
// Exact compares whole normalized strings; otherwise a case-insensitive
// substring match is used. An empty name matches everything.
func MatchName(got, name string, exact bool) bool {
	if name == "" {
		return true
	}
	got, name = NormalizeSpace(got), NormalizeSpace(name)
	if exact {
		return got == name
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(name))
}

// namePattern is the playwright text filter equivalent of MatchName
func namePattern(name string, exact bool) *regexp.Regexp {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s+`)
	if exact {
		return regexp.MustCompile(`^\s*` + body + `\s*$`)
	}
	return regexp.MustCompile(`(?i)` + body)
}
