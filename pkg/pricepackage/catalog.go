package pricepackage

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixture names
const (
	FixtureCanonical   = "canonical"
	FixtureActivated   = "activated"
	FixtureDeactivated = "deactivated"
	FixtureEdited      = "edited"
	FixtureAdded       = "added"
)

// TableSelector locates the package table
const TableSelector = "table"

var (
	// Headers are the data columns of the package table
	Headers = []string{"ID", "Package", "Duration", "List Price", "Sale Price", "Status"}
	// HeadersWithoutID skips the ID column, which is not stable for added packages
	HeadersWithoutID = []string{"Package", "Duration", "List Price", "Sale Price", "Status"}
)

// Fixtures returns the expected tables bundled with the catalog
func Fixtures() (scenario.Fixtures, error) {
	return scenario.LoadFixtures(bytes.NewReader(fixturesYAML))
}

// Suite returns every price-package scenario. reseed runs before each one, so
// the suite is serial.
func Suite(t Target, reseed scenario.Hook) scenario.Suite {
	return scenario.Suite{
		Name:       "Price Package",
		Serial:     true,
		BeforeEach: reseed,
		Scenarios:  Scenarios(t),
	}
}

func name(n int) string {
	return fmt.Sprintf("Price Package-%d", n)
}

// Scenarios returns the catalog in execution order
func Scenarios(t Target) []scenario.Scenario {
	return []scenario.Scenario{
		{ID: "TC0", Name: name(0), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := login(ctx, env, t); err != nil {
				return err
			}
			if err := goToPricePackage(ctx, env, t.Subject); err != nil {
				return err
			}
			return env.ExpectTable(ctx, TableSelector, Headers, FixtureCanonical)
		}},

		{ID: "TC1", Name: name(1), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := login(ctx, env, t); err != nil {
				return err
			}
			if err := goToPricePackage(ctx, env, t.EmptySubject); err != nil {
				return err
			}
			return env.ExpectText(ctx, "table body", env.Page.Locator("table tbody"), "No results")
		}},

		{ID: "TC2", Name: name(2), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openPackagePage(ctx, env, t); err != nil {
				return err
			}
			if err := env.Page.ByRole(browser.RoleButton, "Activate", true).Click(ctx); err != nil {
				return fmt.Errorf("activate: %w", err)
			}
			if err := env.Page.Locator("#activateModal").ByRole(browser.RoleButton, "Activate", false).Click(ctx); err != nil {
				return fmt.Errorf("confirm activate: %w", err)
			}
			return env.ExpectTable(ctx, TableSelector, Headers, FixtureActivated)
		}},

		{ID: "TC3", Name: name(3), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openPackagePage(ctx, env, t); err != nil {
				return err
			}
			if err := packageRow(env, 1).ByRole(browser.RoleButton, "", false).Click(ctx); err != nil {
				return fmt.Errorf("deactivate: %w", err)
			}
			if err := env.Page.Locator("#deactivateModal").ByRole(browser.RoleButton, "Deactivate", false).Click(ctx); err != nil {
				return fmt.Errorf("confirm deactivate: %w", err)
			}
			return env.ExpectTable(ctx, TableSelector, Headers, FixtureDeactivated)
		}},

		{ID: "TC4", Name: name(4), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openEditForm(ctx, env, t, 1); err != nil {
				return err
			}
			return expectValues(ctx, env, []formStep{
				{field: fieldName, value: "9 Month Premium"},
				{field: fieldDuration, value: "9"},
				{field: fieldStatus, value: "Active"},
				{field: fieldListPrice, value: "30000"},
				{field: fieldSalePercent, value: "20"},
				{field: fieldSalePrice, value: "24000"},
				{field: fieldDescription, value: "Hello world"},
			})
		}},

		{ID: "TC5", Name: name(5), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openEditForm(ctx, env, t, 0); err != nil {
				return err
			}
			if err := fillForm(ctx, env, "Update", newPackage(true)); err != nil {
				return err
			}
			return env.ExpectTable(ctx, TableSelector, Headers, FixtureEdited)
		}},

		{ID: "TC6", Name: name(6), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openEditForm(ctx, env, t, 1); err != nil {
				return err
			}
			if err := fillForm(ctx, env, "Update", invalidInputs()); err != nil {
				return err
			}
			return env.ExpectTitle(ctx, "Edit Price Package")
		}},

		{ID: "TC7", Name: name(7), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openAddForm(ctx, env, t); err != nil {
				return err
			}
			return expectValues(ctx, env, []formStep{
				{field: fieldName, value: ""},
				{field: fieldDuration, value: "1"},
				{field: fieldListPrice, value: "1000"},
				{field: fieldSalePercent, value: "0"},
				{field: fieldSalePrice, value: "1000"},
			})
		}},

		{ID: "TC8", Name: name(8), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openAddForm(ctx, env, t); err != nil {
				return err
			}
			if err := fillForm(ctx, env, "Add", newPackage(true)); err != nil {
				return err
			}
			return env.ExpectTable(ctx, TableSelector, HeadersWithoutID, FixtureAdded)
		}},

		{ID: "TC9", Name: name(9), Run: func(ctx context.Context, env *scenario.Env) error {
			if err := openAddForm(ctx, env, t); err != nil {
				return err
			}
			if err := fillForm(ctx, env, "Add", invalidInputs()); err != nil {
				return err
			}
			return env.ExpectTitle(ctx, "Add Price Package")
		}},
	}
}
