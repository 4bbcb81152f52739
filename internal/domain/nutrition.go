package domain

// Nutrition label keys shown on a product, in label order
const (
	NutrientEnergyKcal    = "energy_kcal"
	NutrientFat           = "fat"
	NutrientSaturates     = "saturates"
	NutrientCarbohydrates = "carbohydrates"
	NutrientSugars        = "sugars"
	NutrientFibre         = "fibre"
	NutrientProtein       = "protein"
	NutrientSalt          = "salt"
)

// NutritionFields is the ordered set of label fields, with display label and unit
var NutritionFields = []struct {
	Key   string
	Label string
	Unit  string
}{
	{NutrientEnergyKcal, "Energy", "kcal"},
	{NutrientFat, "Fat", "g"},
	{NutrientSaturates, "of which saturates", "g"},
	{NutrientCarbohydrates, "Carbohydrates", "g"},
	{NutrientSugars, "of which sugars", "g"},
	{NutrientFibre, "Fibre", "g"},
	{NutrientProtein, "Protein", "g"},
	{NutrientSalt, "Salt", "g"},
}

// Nutrition holds per-100g values as strings, keyed by nutrient.
// Keys outside NutritionFields (e.g. energy_kj, sodium) are kept as received.
type Nutrition map[string]string

// NutritionValue is one displayed line of a nutrition label
type NutritionValue struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Lines returns the label fields present in n, in label order
func (n Nutrition) Lines() []NutritionValue {
	var lines []NutritionValue
	for _, f := range NutritionFields {
		v, ok := n[f.Key]
		if !ok || v == "" {
			continue
		}
		lines = append(lines, NutritionValue{Key: f.Key, Label: f.Label, Value: v, Unit: f.Unit})
	}
	return lines
}

// Allergens groups allergen declarations
type Allergens struct {
	Contains   []string `json:"contains,omitempty"`
	MayContain []string `json:"may_contain,omitempty"`
	FreeFrom   []string `json:"free_from,omitempty"`
}
