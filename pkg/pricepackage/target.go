// Package pricepackage is the scenario catalog for the admin price-package page.
package pricepackage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/quizpractice/pkge2e/pkg/fixture"
)

// Target describes the application instance under test
type Target struct {
	BaseURL       string `json:"base_url" mapstructure:"base_url"`
	SubjectID     int    `json:"subject_id" mapstructure:"subject_id"`
	AdminEmail    string `json:"admin_email" mapstructure:"admin_email"`
	AdminPassword string `json:"admin_password" mapstructure:"admin_password"`
	// Subject is the title searched to reach the canonical packages
	Subject string `json:"subject" mapstructure:"subject"`
	// EmptySubject is a subject without packages
	EmptySubject string `json:"empty_subject" mapstructure:"empty_subject"`
}

// DefaultTarget returns the local development instance
func DefaultTarget() Target {
	return Target{
		BaseURL:       "http://localhost:8080/QuizPractice",
		SubjectID:     1,
		AdminEmail:    "day@gmail.com",
		AdminPassword: "123",
		Subject:       "College Algebra with the Math Sorcerer",
		EmptySubject:  "VAT",
	}
}

// IndexURL is the landing page
func (t Target) IndexURL() string {
	return strings.TrimRight(t.BaseURL, "/")
}

// PackagePageURL lists the packages of the target subject
func (t Target) PackagePageURL() string {
	q := url.Values{}
	q.Set("subjectId", fmt.Sprint(t.SubjectID))
	return t.IndexURL() + "/admin/subjectdetail/pricepackage?" + q.Encode()
}

// Validate checks that the target can be reached and logged into
func (t Target) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", t.BaseURL)
	}
	// the reseed batch only restores the canonical subject
	if t.SubjectID != fixture.CanonicalSubjectID {
		return fmt.Errorf("subject ID must be %d, the reseeded subject, got %d", fixture.CanonicalSubjectID, t.SubjectID)
	}
	if t.AdminEmail == "" {
		return fmt.Errorf("admin email is required")
	}
	return nil
}
