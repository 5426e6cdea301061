package pricepackage

import (
	"context"
	"fmt"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

// Form placeholders of the add and edit pages
const (
	fieldName        = "Enter package name"
	fieldDuration    = "Enter access duration in"
	fieldStatus      = "Status"
	fieldListPrice   = "Enter list price"
	fieldSalePercent = "Enter sale percentage"
	fieldSalePrice   = "Sale Price"
	fieldDescription = "Enter description"
)

// formStep fills one field and optionally submits the form afterwards
type formStep struct {
	field  string
	value  string
	submit bool
}

func login(ctx context.Context, env *scenario.Env, t Target) error {
	page := env.Page
	env.Logger.Debug().Str("user", t.AdminEmail).Msg("Logging in")

	if err := page.Goto(ctx, t.IndexURL()); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.ByRole(browser.RoleButton, "Login", false).Click(ctx); err != nil {
		return fmt.Errorf("login: open modal: %w", err)
	}
	if err := page.Locator(`input[name="username"]`).Fill(ctx, t.AdminEmail); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.Locator(`#loginModal input[name="password"]`).Fill(ctx, t.AdminPassword); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.Locator(`input[name="submit"]`).Click(ctx); err != nil {
		return fmt.Errorf("login: submit: %w", err)
	}
	return nil
}

// goToPricePackage searches the subject list and opens the first result's packages
func goToPricePackage(ctx context.Context, env *scenario.Env, subject string) error {
	page := env.Page
	env.Logger.Debug().Str("subject", subject).Msg("Opening price packages")

	steps := []struct {
		what string
		do   func() error
	}{
		{"close notice", func() error { return page.ByRole(browser.RoleButton, "Close", false).Click(ctx) }},
		{"open subject list", func() error { return page.ByRole(browser.RoleLink, "Subject List", false).Click(ctx) }},
		{"search", func() error { return page.ByPlaceholder("Subject Title").Fill(ctx, subject) }},
		{"submit search", func() error { return page.ByRole(browser.RoleButton, "Search", false).Click(ctx) }},
		{"open packages", func() error { return page.Locator(".text-end > .btn").First().Click(ctx) }},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			return fmt.Errorf("go to price package: %s: %w", step.what, err)
		}
	}
	return nil
}

func openPackagePage(ctx context.Context, env *scenario.Env, t Target) error {
	if err := env.Page.Goto(ctx, t.PackagePageURL()); err != nil {
		return fmt.Errorf("open package page: %w", err)
	}
	return nil
}

// packageRow is the nth data row of the package table
func packageRow(env *scenario.Env, n int) browser.Locator {
	return env.Page.Locator("table tbody tr").Nth(n)
}

func openEditForm(ctx context.Context, env *scenario.Env, t Target, row int) error {
	if err := openPackagePage(ctx, env, t); err != nil {
		return err
	}
	if err := packageRow(env, row).ByRole(browser.RoleLink, "", false).Click(ctx); err != nil {
		return fmt.Errorf("open edit form: %w", err)
	}
	return nil
}

func openAddForm(ctx context.Context, env *scenario.Env, t Target) error {
	if err := openPackagePage(ctx, env, t); err != nil {
		return err
	}
	if err := env.Page.ByRole(browser.RoleLink, "Add New Package", false).Click(ctx); err != nil {
		return fmt.Errorf("open add form: %w", err)
	}
	return nil
}

func fillForm(ctx context.Context, env *scenario.Env, submitButton string, steps []formStep) error {
	for _, step := range steps {
		if err := env.Page.ByPlaceholder(step.field).Fill(ctx, step.value); err != nil {
			return fmt.Errorf("fill %q: %w", step.field, err)
		}
		if !step.submit {
			continue
		}
		if err := env.Page.ByRole(browser.RoleButton, submitButton, true).Click(ctx); err != nil {
			return fmt.Errorf("submit %q: %w", submitButton, err)
		}
	}
	return nil
}

func expectValues(ctx context.Context, env *scenario.Env, want []formStep) error {
	for _, w := range want {
		if err := env.ExpectValue(ctx, w.field, env.Page.ByPlaceholder(w.field), w.value); err != nil {
			return err
		}
	}
	return nil
}

// newPackage is the form input of the edit and add scenarios
func newPackage(submit bool) []formStep {
	return []formStep{
		{field: fieldName, value: "haha"},
		{field: fieldDuration, value: "48"},
		{field: fieldListPrice, value: "10000"},
		{field: fieldSalePercent, value: "10"},
		{field: fieldDescription, value: "Hello world", submit: submit},
	}
}

// invalidInputs submits out-of-range values one field at a time and restores
// each field to a valid value before moving on
func invalidInputs() []formStep {
	return []formStep{
		{field: fieldName, value: "", submit: true},
		{field: fieldName, value: "         ", submit: true},
		{field: fieldName, value: "9 Month Premium"},
		{field: fieldDuration, value: "-1", submit: true},
		{field: fieldDuration, value: "150", submit: true},
		{field: fieldDuration, value: "9"},
		{field: fieldListPrice, value: "-9", submit: true},
		{field: fieldListPrice, value: "", submit: true},
		{field: fieldListPrice, value: "30000"},
		{field: fieldSalePercent, value: "-1", submit: true},
		{field: fieldSalePercent, value: "105", submit: true},
		{field: fieldSalePercent, value: "20"},
	}
}
