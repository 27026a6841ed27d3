package vector

var baseOrder = []string{
	"vodka",
	"gin",
	"rum",
	"tequila",
	"mezcal",
	"whiskey",
	"brandy_cognac",
	"aperitif_liqueur",
	"vermouth_fortified",
	"wine_sparkling",
	"beer_cider",
	"nonalcoholic_modifier",
}

var styleOrder = []string{
	"spirit_forward",
	"sour",
	"highball",
	"collins",
	"fizz",
	"smash_julep",
	"tiki_exotic",
	"flip_nogg",
	"hot",
	"dessert_after_dinner",
	"punch_large_format",
	"low_abv_aperitivo",
	"frozen_blended",
	"shot_layered",
}

var flavorOrder = []string{
	"sweet",
	"sour",
	"bitter",
	"salty",
	"umami",
	"boozy",
	"fruity",
	"herbal",
	"spicy",
	"smoky",
	"creamy",
	"effervescent",
}

// CanonicalOrder returns a copy of the built-in label order for d.
// Unknown dimensions return nil.
func CanonicalOrder(d Dimension) []string {
	var src []string
	switch d {
	case Base:
		src = baseOrder
	case Style:
		src = styleOrder
	case Flavor:
		src = flavorOrder
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
