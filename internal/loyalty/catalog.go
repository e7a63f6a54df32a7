// AngelaMos | 2026
// catalog.go

package loyalty

type CatalogItem struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
	Image       string `json:"image"`
}

var catalog = []CatalogItem{
	{
		ID:          1,
		Name:        "Voucher Diskon 10%",
		Description: "Dapatkan diskon 10% untuk pembelian berikutnya",
		Points:      1000,
		Image:       "/rewards/discount-10.png",
	},
	{
		ID:          2,
		Name:        "Voucher Diskon 20%",
		Description: "Dapatkan diskon 20% untuk pembelian berikutnya",
		Points:      2500,
		Image:       "/rewards/discount-20.png",
	},
	{
		ID:          3,
		Name:        "Voucher Gratis 1 Porsi",
		Description: "Gratis 1 porsi ayam goreng tulang lunak",
		Points:      5000,
		Image:       "/rewards/free-1.png",
	},
	{
		ID:          4,
		Name:        "Voucher Gratis 2 Porsi",
		Description: "Gratis 2 porsi ayam goreng tulang lunak",
		Points:      10000,
		Image:       "/rewards/free-2.png",
	},
}

// Catalog returns a copy of the reward catalog. Both the catalog endpoint
// and redemption read from here.
func Catalog() []CatalogItem {
	out := make([]CatalogItem, len(catalog))
	copy(out, catalog)
	return out
}

func LookupReward(id int) (CatalogItem, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}
