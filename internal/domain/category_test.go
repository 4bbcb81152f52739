package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input  string
		want   Category
		wantOK bool
	}{
		{"Groceries", CategoryGroceries, true},
		{"  Body Care ", CategoryBodyCare, true},
		{"Household and Non-Food", CategoryHousehold, true},
		{"groceries", "", false},
		{"Toys", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCategory(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategories(t *testing.T) {
	assert.Len(t, Categories, 9)
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
		assert.NotEmpty(t, c.Subcategories(), c)
	}
	assert.False(t, Category("Toys").Valid())
	assert.Empty(t, Category("Toys").Subcategories())
}

func TestSubcategoriesReturnsCopy(t *testing.T) {
	subs := CategoryDrinks.Subcategories()
	subs[0] = "changed"

	assert.NotEqual(t, "changed", CategoryDrinks.Subcategories()[0])
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
		wantName string
	}{
		{"validation", NewValidationError("bad %s", "input"), ErrValidation, "validation"},
		{"wrapped timeout", fmt.Errorf("run: %w", &Error{Kind: ErrTimeout}), ErrTimeout, "timeout"},
		{"bare sentinel", ErrBlocked, ErrBlocked, "blocked"},
		{"product not found", &Error{Kind: ErrProductNotFound}, ErrProductNotFound, "not_found"},
		{"plain error", errors.New("boom"), nil, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.wantName, KindName(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad input", NewValidationError("bad %s", "input").Error())
	assert.Equal(t, ErrRemote.Error(), (&Error{Kind: ErrRemote}).Error())
}
