package scraper

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DeriveSKU turns a recipe name into a human-readable storage key segment:
// uppercased, spaces replaced with hyphens, apostrophes stripped. An empty
// name yields an empty SKU; callers that need the SKU as a path segment must
// skip that step rather than fail. The SKU is not globally unique, two names
// that normalize identically collide.
func DeriveSKU(name string) string {
	if name == "" {
		return ""
	}
	sku := strings.ToUpper(name)
	sku = strings.ReplaceAll(sku, " ", "-")
	sku = strings.ReplaceAll(sku, "'", "")
	return sku
}

// NewRecordID returns a random v4 UUID string. Every record gets exactly one,
// assigned at extraction time, regardless of how many fields extracted.
func NewRecordID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return id.String(), nil
}
