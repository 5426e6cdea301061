package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const savedPage = "../../pkg/tablescrape/testdata/pricepackages.html"

func TestExtractCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, _, err := execute(t, "extract", "--file", savedPage)
		require.NoError(t, err)

		assert.Equal(t,
			"1 | 6 Month Premium | 6 | 20000 VND | 16000 VND | Inactive\n"+
				"2 | 9 Month Premium | 9 | 30000 VND | 24000 VND | Active\n"+
				"3 | 3 Month Premium | 3 | 10000 VND | 9000 VND | Active\n",
			out)
	})

	t.Run("json with selected headers", func(t *testing.T) {
		out, _, err := execute(t, "extract", "-f", savedPage, "--headers", "Package, Status", "-o", "json")
		require.NoError(t, err)

		var rows [][]string
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		assert.Equal(t, [][]string{
			{"6 Month Premium", "Inactive"},
			{"9 Month Premium", "Active"},
			{"3 Month Premium", "Active"},
		}, rows)
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := execute(t, "extract", "-f", savedPage, "--headers", "ID", "-o", "yaml")
		require.NoError(t, err)

		var rows [][]string
		require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
		assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, rows)
	})

	t.Run("unknown headers yield empty rows", func(t *testing.T) {
		out, _, err := execute(t, "extract", "-f", savedPage, "--headers", "Nope", "-o", "json")
		require.NoError(t, err)

		var rows [][]string
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		assert.Equal(t, [][]string{{}, {}, {}}, rows)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "extract", "-f", savedPage, "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "extract", "-f", "does-not-exist.html")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open page")
	})

	t.Run("file flag required", func(t *testing.T) {
		_, _, err := execute(t, "extract")
		assert.Error(t, err)
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"List Price", "Status"}, splitList(" List Price ,Status,, "))
	assert.Nil(t, splitList(""))
}
