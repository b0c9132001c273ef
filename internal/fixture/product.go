package fixture

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

// Product types accepted by the back office product form.
const (
	TypeStandard = "Standard product"
	TypePack     = "Pack of products"
	TypeVirtual  = "Virtual product"
)

// Spec declares the product to create.
type Spec struct {
	Type     string
	Quantity int
	// Name overrides the generated name when set.
	Name string
}

func (s Spec) Validate() error {
	switch s.Type {
	case TypeStandard, TypePack, TypeVirtual:
	default:
		return fmt.Errorf("unsupported product type %q", s.Type)
	}
	if s.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative, got %d", s.Quantity)
	}
	return nil
}

// Product is a synthetic catalog record.
type Product struct {
	Name      string
	Reference string
	Type      string
	Quantity  int
	Price     float64
}

var (
	adjectives = []string{"Ceramic", "Linen", "Walnut", "Copper", "Woolen", "Marble", "Bamboo", "Leather"}
	nouns      = []string{"Mug", "Notebook", "Cushion", "Lamp", "Poster", "Tote Bag", "Coaster", "Frame"}
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate builds the product for spec from a generator seeded with runID,
// so a run id always yields the same product and different runs do not collide.
func Generate(runID string, spec Spec) Product {
	h := fnv.New64a()
	_, _ = h.Write([]byte(runID))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("%s %s %s", adjectives[rng.IntN(len(adjectives))], nouns[rng.IntN(len(nouns))], shortID(runID))
	}

	var ref strings.Builder
	ref.WriteString("CC")
	for range 6 {
		ref.WriteByte(referenceAlphabet[rng.IntN(len(referenceAlphabet))])
	}

	return Product{
		Name:      name,
		Reference: ref.String(),
		Type:      spec.Type,
		Quantity:  spec.Quantity,
		Price:     float64(500+rng.IntN(9500)) / 100,
	}
}

func shortID(runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
