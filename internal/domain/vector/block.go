package vector

// Dimension names one of the three scored vector spaces of an item.
type Dimension string

const (
	// Base is the base spirit / liquid category space.
	Base Dimension = "base"
	// Style is the drink style space.
	Style Dimension = "style"
	// Flavor is the flavor profile space.
	Flavor Dimension = "flavor"
)

// Dimensions lists every dimension in scoring order.
var Dimensions = []Dimension{Flavor, Style, Base}

// Block is an ordered numeric fingerprint plus the labels it is indexed by.
// A nil *Block on an item means the block is absent.
type Block struct {
	Scale   string    `json:"scale,omitempty" yaml:"scale,omitempty" toml:"scale,omitempty"`
	Order   []string  `json:"order" yaml:"order" toml:"order"`
	Vector  []float64 `json:"vector" yaml:"vector" toml:"vector"`
	Version int       `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
}

// Valid reports whether the block is present and its order and vector are aligned.
func (b *Block) Valid() bool {
	return b != nil && len(b.Order) == len(b.Vector)
}

// Values returns the numeric vector, or nil for an absent block.
func (b *Block) Values() []float64 {
	if b == nil {
		return nil
	}
	return b.Vector
}
