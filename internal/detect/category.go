package detect

import "strings"

// Column categories.
const (
	CategoryTracking = "tracking"
	CategoryOrder    = "order"
	CategoryCustomer = "customer"
	CategoryStatus   = "status"
	CategoryUnknown  = "unknown"
)

// categoryPatterns is checked in order; the first category with a matching
// substring wins. Italian terms come from the logistics exports this tool
// is used with.
var categoryPatterns = []struct {
	category string
	patterns []string
}{
	{CategoryTracking, []string{"tracking", "track", "awb", "courier", "shipment", "spedizione"}},
	{CategoryOrder, []string{"order", "ordine", "numero", "reference", "rif", "comando"}},
	{CategoryCustomer, []string{"customer", "cliente", "client", "conto", "account"}},
	{CategoryStatus, []string{"status", "stato", "state", "delivery", "consegna"}},
}

// ColumnCategory classifies a column name into a business category.
func ColumnCategory(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range categoryPatterns {
		for _, p := range c.patterns {
			if strings.Contains(lower, p) {
				return c.category
			}
		}
	}
	return CategoryUnknown
}
