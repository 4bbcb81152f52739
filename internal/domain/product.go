package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Descriptions holds the three generated copy fields of a product
type Descriptions struct {
	ShortDescription string `json:"shortDescription"`
	MetaDescription  string `json:"metaDescription"`
	LongDescription  string `json:"longDescription"`
}

// Description sub-field names, as used on the wire
const (
	DescriptionShort = "shortDescription"
	DescriptionMeta  = "metaDescription"
	DescriptionLong  = "longDescription"
)

// Product is the canonical, editable product record.
//
// Optional fields are pointers, maps or slices and stay nil when the backend
// did not send them, so an absent field round-trips as absent. Keys the
// backend sends that are not modelled here are kept in Extra and written back
// on every outbound call.
type Product struct {
	ID                 string
	Name               string
	Brand              string
	SKU                string
	Barcode            *string
	Category           *Category
	Source             string
	Descriptions       *Descriptions
	Specifications     map[string]interface{}
	Features           []string
	DietaryPreferences []string
	DietaryInfo        []string
	Allergens          *Allergens
	Ingredients        *string
	IngredientsSource  *string
	Nutrition          Nutrition
	NutritionSource    *string
	DataSources        []string
	DataSourceURL      *string
	Extra              map[string]interface{}
}

var knownProductKeys = map[string]bool{
	"id": true, "name": true, "brand": true, "sku": true, "barcode": true,
	"category": true, "source": true, "descriptions": true, "specifications": true,
	"features": true, "dietary_preferences": true, "dietary_info": true,
	"allergens": true, "ingredients": true, "ingredients_source": true,
	"nutrition": true, "nutrition_source": true, "data_sources": true,
	"data_source_url": true,
}

// ProductFromMap builds a Product from a decoded JSON object.
// Decoding is lenient: numbers in text fields are rendered in plain decimal
// and values of an unexpected shape are treated as absent.
func ProductFromMap(m map[string]interface{}) Product {
	p := Product{}
	p.ID, _ = asString(m["id"])
	p.Name, _ = asString(m["name"])
	p.Brand, _ = asString(m["brand"])
	p.SKU, _ = asString(m["sku"])
	p.Source, _ = asString(m["source"])
	p.Barcode = optString(m, "barcode")
	if v, ok := asString(m["category"]); ok && v != "" {
		c := Category(v)
		p.Category = &c
	}
	if d, ok := m["descriptions"].(map[string]interface{}); ok {
		p.Descriptions = &Descriptions{}
		p.Descriptions.ShortDescription, _ = asString(d[DescriptionShort])
		p.Descriptions.MetaDescription, _ = asString(d[DescriptionMeta])
		p.Descriptions.LongDescription, _ = asString(d[DescriptionLong])
	}
	if s, ok := m["specifications"].(map[string]interface{}); ok {
		p.Specifications = s
	}
	p.Features = asStringList(m["features"])
	p.DietaryPreferences = asStringList(m["dietary_preferences"])
	p.DietaryInfo = asStringList(m["dietary_info"])
	if a, ok := m["allergens"].(map[string]interface{}); ok {
		p.Allergens = &Allergens{
			Contains:   asStringList(a["contains"]),
			MayContain: asStringList(a["may_contain"]),
			FreeFrom:   asStringList(a["free_from"]),
		}
	} else if list := asStringList(m["allergens"]); list != nil {
		// some scrapers send a flat list of declared allergens
		p.Allergens = &Allergens{Contains: list}
	}
	p.Ingredients = optString(m, "ingredients")
	p.IngredientsSource = optString(m, "ingredients_source")
	if n, ok := m["nutrition"].(map[string]interface{}); ok {
		p.Nutrition = Nutrition{}
		for k, v := range n {
			if s, ok := asString(v); ok {
				p.Nutrition[k] = s
			}
		}
	}
	p.NutritionSource = optString(m, "nutrition_source")
	p.DataSources = asStringList(m["data_sources"])
	p.DataSourceURL = optString(m, "data_source_url")

	for k, v := range m {
		if knownProductKeys[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]interface{})
		}
		p.Extra[k] = v
	}
	return p
}

// ToMap renders the product as a JSON-ready object, omitting absent fields
func (p Product) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(p.Extra)+20)
	for k, v := range p.Extra {
		m[k] = v
	}
	if p.ID != "" {
		m["id"] = p.ID
	}
	m["name"] = p.Name
	m["sku"] = p.SKU
	if p.Brand != "" {
		m["brand"] = p.Brand
	}
	if p.Source != "" {
		m["source"] = p.Source
	}
	putString(m, "barcode", p.Barcode)
	if p.Category != nil {
		m["category"] = string(*p.Category)
	}
	if p.Descriptions != nil {
		m["descriptions"] = *p.Descriptions
	}
	if p.Specifications != nil {
		m["specifications"] = p.Specifications
	}
	putList(m, "features", p.Features)
	putList(m, "dietary_preferences", p.DietaryPreferences)
	putList(m, "dietary_info", p.DietaryInfo)
	if p.Allergens != nil {
		m["allergens"] = *p.Allergens
	}
	putString(m, "ingredients", p.Ingredients)
	putString(m, "ingredients_source", p.IngredientsSource)
	if p.Nutrition != nil {
		m["nutrition"] = map[string]string(p.Nutrition)
	}
	putString(m, "nutrition_source", p.NutritionSource)
	putList(m, "data_sources", p.DataSources)
	putString(m, "data_source_url", p.DataSourceURL)
	return m
}

// MarshalJSON implements json.Marshaler
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Product) UnmarshalJSON(data []byte) error {
	m, err := DecodeObject(data)
	if err != nil {
		return err
	}
	*p = ProductFromMap(m)
	return nil
}

// Clone returns a deep copy of p
func (p Product) Clone() Product {
	data, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var c Product
	if err := json.Unmarshal(data, &c); err != nil {
		return p
	}
	return c
}

// CategoryValue returns the category label or "" when unset
func (p Product) CategoryValue() Category {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// DietaryTags merges dietary_preferences and dietary_info for display.
// Duplicates are dropped case-insensitively; the first spelling wins.
func (p Product) DietaryTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, list := range [][]string{p.DietaryPreferences, p.DietaryInfo} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if tag == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// DecodeObject decodes a JSON object keeping numbers exact
func DecodeObject(data []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func asString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asStringList(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := asString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string{}, t...)
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	default:
		return nil
	}
}

func optString(m map[string]interface{}, key string) *string {
	v, present := m[key]
	if !present || v == nil {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		list := asStringList(v)
		if list == nil {
			return nil
		}
		s = strings.Join(list, ", ")
	}
	return &s
}

func putString(m map[string]interface{}, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putList(m map[string]interface{}, key string, v []string) {
	if v != nil {
		m[key] = v
	}
}
