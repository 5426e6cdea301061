package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

// ErrFixtureNotFound is returned by Fixtures.Get for an unknown table name
var ErrFixtureNotFound = errors.New("fixture not found")

// Fixtures holds the expected tables scenarios compare against, by name
type Fixtures map[string]tablescrape.Rows

// fixtureFile is the on-disk layout of an expected-fixture document
type fixtureFile struct {
	// Tables maps a fixture name to its expected rows
	Tables map[string][][]string `yaml:"tables"`
}

// LoadFixtures parses an expected-fixture document. Unknown fields are
// rejected so a misspelled key fails loudly.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var file fixtureFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixtures{}, nil
		}
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	fixtures := make(Fixtures, len(file.Tables))
	for name, rows := range file.Tables {
		if name == "" {
			return nil, fmt.Errorf("invalid fixtures: empty table name")
		}
		table := make(tablescrape.Rows, len(rows))
		for i, row := range rows {
			if row == nil {
				row = []string{}
			}
			table[i] = row
		}
		fixtures[name] = table
	}
	return fixtures, nil
}

// LoadFixturesFile reads fixtures from path
func LoadFixturesFile(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return LoadFixtures(bytes.NewReader(data))
}

// Get returns a copy of the named table
func (f Fixtures) Get(name string) (tablescrape.Rows, error) {
	rows, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFixtureNotFound, name)
	}
	out := make(tablescrape.Rows, len(rows))
	for i, row := range rows {
		out[i] = append([]string{}, row...)
	}
	return out, nil
}

// Names returns the fixture names in sorted order
func (f Fixtures) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
