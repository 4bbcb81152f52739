package backend

import (
	"bytes"
	"encoding/json"

	"github.com/productstudio/backend/internal/domain"
)

// Envelope field names the backend wraps product lists in
const (
	productsField = "products"
	dataField     = "data"
)

// ExtractProducts reduces a parsed JSON value to its product objects.
//
// Resolution order, first match wins:
//  1. {"products": [...]}
//  2. {"data": {"products": [...]}} or {"data": [...]}
//  3. a bare top-level array
//  4. anything else yields no products
//
// Elements that are not JSON objects are skipped.
func ExtractProducts(v interface{}) []map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if list, ok := t[productsField].([]interface{}); ok {
			return objects(list)
		}
		switch data := t[dataField].(type) {
		case map[string]interface{}:
			if list, ok := data[productsField].([]interface{}); ok {
				return objects(list)
			}
		case []interface{}:
			return objects(data)
		}
		return nil
	case []interface{}:
		return objects(t)
	default:
		return nil
	}
}

// DecodeProducts parses a response body and normalizes it into products.
// A body that is not valid JSON yields no products.
func DecodeProducts(body []byte) []domain.Product {
	v, err := decodeValue(body)
	if err != nil {
		return nil
	}
	raw := ExtractProducts(v)
	products := make([]domain.Product, 0, len(raw))
	for _, m := range raw {
		products = append(products, domain.ProductFromMap(m))
	}
	return products
}

func objects(list []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func decodeValue(body []byte) (interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
