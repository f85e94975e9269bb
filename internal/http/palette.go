package http

import "spendlens/internal/core"

// FallbackColor is used for categories missing from a palette.
const FallbackColor = "#A9A9A9"

// Palette maps category names to chart colors.
type Palette map[string]string

func DefaultPalette() Palette {
	return Palette{
		core.CategoryGrocery:        "#FF6384",
		core.CategoryFuel:           "#36A2EB",
		core.CategoryTextile:        "#FFCE56",
		core.CategoryEntertainment:  "#4BC0C0",
		core.CategoryDining:         "#9966FF",
		core.CategoryTravel:         "#FF9F40",
		core.CategoryUtilities:      "#C9CBCF",
		core.CategoryHousing:        "#7CFC00",
		core.CategoryHealthcare:     "#8A2BE2",
		core.CategoryTransportation: "#00FFFF",
		core.CategoryShopping:       "#FF7F50",
		core.CategoryEducation:      "#6495ED",
		core.CategoryPersonalCare:   "#DC143C",
		core.CategorySubscriptions:  "#00FF7F",
		core.CategoryInsurance:      "#FF4500",
		core.CategoryGifts:          "#DA70D6",
		core.CategoryFinancial:      "#1E90FF",
		core.CategoryPayment:        "#808080",
		core.CategoryOther:          FallbackColor,
	}
}

func (p Palette) Color(category string) string {
	if c, ok := p[category]; ok && c != "" {
		return c
	}
	return FallbackColor
}

// ColorsFor returns a color for each name.
func (p Palette) ColorsFor(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = p.Color(n)
	}
	return out
}
