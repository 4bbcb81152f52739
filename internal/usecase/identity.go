package usecase

import (
	"fmt"
	"strings"

	"github.com/productstudio/backend/internal/domain"
)

// AssignIDs gives every product without an id, or with an id already taken
// earlier in the list, the id "<sku or product>-<token>-<index>".
// Ids in the result are non-empty and pairwise distinct.
func AssignIDs(products []domain.Product, token string) {
	taken := make(map[string]bool, len(products))
	for i := range products {
		id := strings.TrimSpace(products[i].ID)
		if id != "" && !taken[id] {
			products[i].ID = id
			taken[id] = true
			continue
		}

		prefix := strings.Join(strings.Fields(products[i].SKU), "-")
		if prefix == "" {
			prefix = "product"
		}
		id = fmt.Sprintf("%s-%s-%d", prefix, token, i)
		for n := 1; taken[id]; n++ {
			id = fmt.Sprintf("%s-%s-%d-%d", prefix, token, i, n)
		}
		products[i].ID = id
		taken[id] = true
	}
}
