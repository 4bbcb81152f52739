package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/productstudio/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildForm(t *testing.T) {
	t.Run("csv reads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "items.csv")
		require.NoError(t, os.WriteFile(path, []byte("name\nOat Milk\n"), 0o644))

		form, err := buildForm(options{mode: "CSV", category: "Drinks", file: path, brandURL: "https://brand.example"})

		require.NoError(t, err)
		assert.Equal(t, domain.SourceCSV, form.Mode)
		require.NotNil(t, form.File)
		assert.Equal(t, "items.csv", form.File.Filename)
		assert.Equal(t, "name\nOat Milk\n", string(form.File.Content))
		assert.Equal(t, "https://brand.example", form.BrandURL)
	})

	t.Run("csv with unreadable file", func(t *testing.T) {
		_, err := buildForm(options{mode: "csv", file: filepath.Join(t.TempDir(), "missing.csv")})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("search keeps every criterion", func(t *testing.T) {
		form, err := buildForm(options{mode: "search", category: "Groceries", sku: "ABC123", text: "oil"})

		require.NoError(t, err)
		assert.Equal(t, domain.SearchCriteria{SKU: "ABC123", Text: "oil"}, form.Criteria)
	})

	t.Run("url", func(t *testing.T) {
		form, err := buildForm(options{mode: "url", url: "https://shop.example/p/1"})

		require.NoError(t, err)
		assert.Equal(t, "https://shop.example/p/1", form.URL)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := buildForm(options{mode: "fax"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
