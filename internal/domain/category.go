package domain

import "strings"

// Category is one of the nine fixed department labels
type Category string

const (
	CategoryGroceries        Category = "Groceries"
	CategoryFresh            Category = "Fresh"
	CategoryDrinks           Category = "Drinks"
	CategoryFrozen           Category = "Frozen"
	CategoryHousehold        Category = "Household and Non-Food"
	CategoryBodyCare         Category = "Body Care"
	CategoryHealth           Category = "Health"
	CategoryPromoSeasonal    Category = "Promo and Seasonal"
	CategoryEarthfareKitchen Category = "Earthfare Kitchen"
)

// Categories lists every accepted category in display order
var Categories = []Category{
	CategoryGroceries,
	CategoryFresh,
	CategoryDrinks,
	CategoryFrozen,
	CategoryHousehold,
	CategoryBodyCare,
	CategoryHealth,
	CategoryPromoSeasonal,
	CategoryEarthfareKitchen,
}

// subcategories maps each department to its shelf-level subcategories
var subcategories = map[Category][]string{
	CategoryGroceries: {
		"Ambient Grocery", "Baking & Home Cooking", "Breakfast & Cereals",
		"Condiments & Sauces", "Cooking Oils & Vinegars", "Herbs, Spices & Seasonings",
		"Jams, Honey & Spreads", "Pasta, Rice & Grains", "Snacks & Treats",
		"Tinned & Jarred Foods", "World Foods",
	},
	CategoryFresh: {
		"Bakery", "Cheese", "Chilled Deli", "Dairy & Alternatives",
		"Fresh Fruit & Veg", "Meat & Fish Alternatives", "Ready Meals & Fresh Pasta",
	},
	CategoryDrinks: {
		"Coffee & Tea", "Fruit Juices & Smoothies", "Soft Drinks & Cordials",
		"Water", "Wine, Beer & Spirits",
	},
	CategoryFrozen: {
		"Frozen Desserts", "Frozen Fruit & Veg", "Frozen Meals & Pizza",
		"Frozen Meat Alternatives", "Ice Cream & Lollies",
	},
	CategoryHousehold: {
		"Cleaning Products", "Kitchen & Household", "Laundry",
		"Pet Food & Care", "Stationery & Gifts",
	},
	CategoryBodyCare: {
		"Baby & Child", "Bath & Shower", "Dental Care", "Deodorants",
		"Face & Skincare", "Hair Care", "Hand & Body", "Men's Grooming",
		"Period Care", "Sun Care",
	},
	CategoryHealth: {
		"First Aid & Medical", "Supplements & Vitamins", "Wellness & Natural Remedies",
	},
	CategoryPromoSeasonal: {
		"Christmas", "Easter", "Gift Sets", "Seasonal Specials",
	},
	CategoryEarthfareKitchen: {
		"Hot Food", "Sandwiches & Wraps", "Salads & Sides", "Cakes & Pastries",
	},
}

// ParseCategory returns the category matching s exactly (after trimming)
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is one of the nine accepted labels
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Subcategories returns a copy of the subcategory list for c
func (c Category) Subcategories() []string {
	return append([]string(nil), subcategories[c]...)
}
