package enums

import (
	"fmt"
	"strings"
)

// ClothingCategory is the canonical closed category enum. Free-text labels
// from clients are normalized into it at the data-entry boundary; the raw
// label is kept alongside for display.
type ClothingCategory string

const (
	CategoryTop       ClothingCategory = "top"
	CategoryBottom    ClothingCategory = "bottom"
	CategoryShoes     ClothingCategory = "shoes"
	CategoryOuterwear ClothingCategory = "outerwear"
	CategoryAccessory ClothingCategory = "accessory"
	CategoryOther     ClothingCategory = "other"
)

var validClothingCategories = []ClothingCategory{
	CategoryTop,
	CategoryBottom,
	CategoryShoes,
	CategoryOuterwear,
	CategoryAccessory,
	CategoryOther,
}

// categoryAliases maps known label variants (including the Turkish labels
// historical clients submitted) to the canonical category.
var categoryAliases = map[string]ClothingCategory{
	"top":       CategoryTop,
	"tops":      CategoryTop,
	"shirt":     CategoryTop,
	"t-shirt":   CategoryTop,
	"tshirt":    CategoryTop,
	"blouse":    CategoryTop,
	"sweater":   CategoryTop,
	"hoodie":    CategoryTop,
	"üst":       CategoryTop,
	"üst giyim": CategoryTop,

	"bottom":    CategoryBottom,
	"bottoms":   CategoryBottom,
	"pants":     CategoryBottom,
	"trousers":  CategoryBottom,
	"jeans":     CategoryBottom,
	"skirt":     CategoryBottom,
	"shorts":    CategoryBottom,
	"alt":       CategoryBottom,
	"alt giyim": CategoryBottom,

	"shoe":     CategoryShoes,
	"shoes":    CategoryShoes,
	"footwear": CategoryShoes,
	"sneaker":  CategoryShoes,
	"sneakers": CategoryShoes,
	"boots":    CategoryShoes,
	"ayakkabı": CategoryShoes,

	"outerwear": CategoryOuterwear,
	"jacket":    CategoryOuterwear,
	"coat":      CategoryOuterwear,
	"dış giyim": CategoryOuterwear,

	"accessory":   CategoryAccessory,
	"accessories": CategoryAccessory,
	"aksesuar":    CategoryAccessory,

	"other": CategoryOther,
	"diğer": CategoryOther,
}

// substring fallbacks are checked in order after exact alias lookup fails,
// so "Winter Jacket" still lands in outerwear.
var categorySubstrings = []struct {
	fragment string
	category ClothingCategory
}{
	{"shoe", CategoryShoes},
	{"sneaker", CategoryShoes},
	{"boot", CategoryShoes},
	{"ayakkab", CategoryShoes},
	{"jacket", CategoryOuterwear},
	{"coat", CategoryOuterwear},
	{"dış", CategoryOuterwear},
	{"pant", CategoryBottom},
	{"jean", CategoryBottom},
	{"skirt", CategoryBottom},
	{"alt giyim", CategoryBottom},
	{"bottom", CategoryBottom},
	{"shirt", CategoryTop},
	{"üst", CategoryTop},
	{"top", CategoryTop},
	{"accessor", CategoryAccessory},
	{"aksesuar", CategoryAccessory},
}

// String returns the literal string for the category.
func (c ClothingCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is canonical.
func (c ClothingCategory) IsValid() bool {
	for _, candidate := range validClothingCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClothingCategory converts a canonical string into a ClothingCategory.
func ParseClothingCategory(value string) (ClothingCategory, error) {
	for _, candidate := range validClothingCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid clothing category %q", value)
}

// NormalizeClothingCategory maps a free-text label to the canonical enum.
// Unknown labels normalize to CategoryOther rather than failing; the raw
// label is preserved separately by the caller.
func NormalizeClothingCategory(raw string) ClothingCategory {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return CategoryOther
	}
	if category, ok := categoryAliases[label]; ok {
		return category
	}
	for _, rule := range categorySubstrings {
		if strings.Contains(label, rule.fragment) {
			return rule.category
		}
	}
	return CategoryOther
}
