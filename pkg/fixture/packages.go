package fixture

import (
	"context"
	"database/sql"
	"fmt"
)

// CanonicalSubjectID is the subject whose packages are reseeded
const CanonicalSubjectID = 1

// PricePackage is one row of the [Package] table
type PricePackage struct {
	ID        int     `json:"id" yaml:"id"`
	SubjectID int     `json:"subject_id" yaml:"subject_id"`
	Name      string  `json:"name" yaml:"name"`
	Duration  int     `json:"duration" yaml:"duration"` // months
	ListPrice float64 `json:"list_price" yaml:"list_price"`
	SalePrice float64 `json:"sale_price" yaml:"sale_price"`
	Active    bool    `json:"active" yaml:"active"`
}

// Canonical returns the records the reseed script writes, in identifier order.
// Keep in sync with reseed.sql and the expected tables in pkg/pricepackage.
func Canonical() []PricePackage {
	return []PricePackage{
		{ID: 1, SubjectID: CanonicalSubjectID, Name: "6 Month Premium", Duration: 6, ListPrice: 20, SalePrice: 16, Active: false},
		{ID: 2, SubjectID: CanonicalSubjectID, Name: "9 Month Premium", Duration: 9, ListPrice: 30, SalePrice: 24, Active: true},
		{ID: 3, SubjectID: CanonicalSubjectID, Name: "3 Month Premium", Duration: 3, ListPrice: 10, SalePrice: 9, Active: true},
	}
}

// Querier is satisfied by *sql.DB, *sql.Tx and *dbsession.Session
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// @p1 binds positionally on both go-mssqldb and go-sqlite3
const selectPackages = `
SELECT PackageId, SubjectId, PackageName, PackageDuration, ListPrice, SalePrice, CAST(Status AS INT)
FROM [Package]
WHERE SubjectId = @p1
ORDER BY PackageId`

// LoadPackages reads every package of a subject in identifier order
func LoadPackages(ctx context.Context, q Querier, subjectID int) ([]PricePackage, error) {
	rows, err := q.QueryContext(ctx, selectPackages, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	packages := make([]PricePackage, 0)
	for rows.Next() {
		var (
			p      PricePackage
			status int64
		)
		if err := rows.Scan(&p.ID, &p.SubjectID, &p.Name, &p.Duration, &p.ListPrice, &p.SalePrice, &status); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		p.Active = status != 0
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}

	return packages, nil
}
