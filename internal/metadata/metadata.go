// Package metadata resolves product references to the manufacturer and
// product name used by the quantity rules.
//
// The reconciliation core treats metadata as an external collaborator that
// may fail; callers degrade to an unknown ProductInfo in that case.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a product reference is not known.
var ErrNotFound = errors.New("product not found")

// ProductInfo holds the attributes of a product relevant to quantity rules.
type ProductInfo struct {
	Manufacturer string `yaml:"manufacturer" json:"manufacturer"`
	ProductName  string `yaml:"product_name" json:"product_name"`
}

// Known reports whether any attribute is set.
func (p ProductInfo) Known() bool {
	return p.Manufacturer != "" || p.ProductName != ""
}

// Lookup resolves a product reference.
type Lookup interface {
	Lookup(ctx context.Context, ref string) (ProductInfo, error)
}

// Catalog is a Lookup backed by a static product table.
type Catalog struct {
	products map[string]ProductInfo
}

type catalogFile struct {
	Products map[string]ProductInfo `yaml:"products"`
}

// NewCatalog creates a Catalog from a map of reference to product.
// References are matched case-insensitively.
func NewCatalog(products map[string]ProductInfo) *Catalog {
	c := &Catalog{products: make(map[string]ProductInfo, len(products))}
	for ref, info := range products {
		c.products[catalogKey(ref)] = info
	}
	return c
}

// ParseCatalog decodes a YAML catalog:
//
//	products:
//	  "4711":
//	    manufacturer: NetApp
//	    product_name: FAS2750
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Products), nil
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Lookup implements Lookup.
func (c *Catalog) Lookup(ctx context.Context, ref string) (ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return ProductInfo{}, err
	}
	info, ok := c.products[catalogKey(ref)]
	if !ok {
		return ProductInfo{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return info, nil
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.products)
}

func catalogKey(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}
