package item

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/mixdex/internal/domain/vector"
)

// MaxIDLength is the maximum allowed item identifier length.
const MaxIDLength = 256

// Ingredient is a single recipe component.
type Ingredient struct {
	Name   string  `json:"name" yaml:"name" toml:"name"`
	Amount float64 `json:"amount,omitempty" yaml:"amount,omitempty" toml:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty" yaml:"unit,omitempty" toml:"unit,omitempty"`
}

// Item is a catalog entry: tagged labels, preparation fields and up to three vector blocks.
// Items are value snapshots; the ranking engine never mutates them.
type Item struct {
	ID          string       `json:"id" yaml:"id" toml:"id"`
	Name        string       `json:"name" yaml:"name" toml:"name"`
	Base        string       `json:"base" yaml:"base" toml:"base"`
	Style       string       `json:"style" yaml:"style" toml:"style"`
	Flavor      []string     `json:"flavor" yaml:"flavor" toml:"flavor"`
	ABV         *float64     `json:"abv,omitempty" yaml:"abv,omitempty" toml:"abv,omitempty"` // nil when unknown
	Ice         string       `json:"ice,omitempty" yaml:"ice,omitempty" toml:"ice,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty" toml:"ingredients,omitempty"`
	Steps       []string     `json:"steps,omitempty" yaml:"steps,omitempty" toml:"steps,omitempty"`
	Glass       string       `json:"glass,omitempty" yaml:"glass,omitempty" toml:"glass,omitempty"`
	Garnish     []string     `json:"garnish,omitempty" yaml:"garnish,omitempty" toml:"garnish,omitempty"`

	BaseVector   *vector.Block `json:"base_vector,omitempty" yaml:"base_vector,omitempty" toml:"base_vector,omitempty"`
	StyleVector  *vector.Block `json:"style_vector,omitempty" yaml:"style_vector,omitempty" toml:"style_vector,omitempty"`
	FlavorVector *vector.Block `json:"flavor_vector,omitempty" yaml:"flavor_vector,omitempty" toml:"flavor_vector,omitempty"`
}

// Block returns the vector block for d, or nil when absent.
func (it *Item) Block(d vector.Dimension) *vector.Block {
	switch d {
	case vector.Base:
		return it.BaseVector
	case vector.Style:
		return it.StyleVector
	case vector.Flavor:
		return it.FlavorVector
	}
	return nil
}

// SearchText returns the lower-cased keyword blob:
// name, base, style, flavor tags, ingredient names, steps and garnish, space-joined in that order.
func (it *Item) SearchText() string {
	parts := make([]string, 0, 3+len(it.Flavor)+len(it.Ingredients)+len(it.Steps)+len(it.Garnish))
	parts = append(parts, it.Name, it.Base, it.Style)
	parts = append(parts, it.Flavor...)
	for _, ing := range it.Ingredients {
		parts = append(parts, ing.Name)
	}
	parts = append(parts, it.Steps...)
	parts = append(parts, it.Garnish...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Validate checks the fields a catalog entry must carry.
// Vector blocks are not validated: misaligned blocks score 0 instead of failing.
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item ID is required")
	}
	if len(it.ID) > MaxIDLength {
		return fmt.Errorf("item ID too long (max %d)", MaxIDLength)
	}
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("item %q: name is required", it.ID)
	}
	return nil
}
