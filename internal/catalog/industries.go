// ABOUTME: Industry taxonomy for store setup
// ABOUTME: Fixed list of selectable industries, one to three per store

package catalog

// MaxIndustries caps how many industries one store may select.
const MaxIndustries = 3

// Industries is the fixed set of selectable store industries, in display
// order.
var Industries = []string{
	"Fashion & Apparel",
	"Electronics",
	"Home & Furniture",
	"Beauty & Personal Care",
	"Food & Beverages",
	"Health & Wellness",
	"Digital Products",
	"Arts & Crafts",
	"Sports & Outdoors",
	"Toys & Games",
	"Jewelry & Accessories",
	"Books & Media",
	"Automotive",
	"Pet Supplies",
	"Office Supplies",
}

var industrySet = func() map[string]bool {
	set := make(map[string]bool, len(Industries))
	for _, ind := range Industries {
		set[ind] = true
	}
	return set
}()

// ValidIndustry reports whether name is one of the selectable industries.
func ValidIndustry(name string) bool {
	return industrySet[name]
}
