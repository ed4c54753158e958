package models

import "fmt"

// Collection identifies a local record partition
type Collection string

const (
	CollectionProducts       Collection = "items"
	CollectionSales          Collection = "receipts"
	CollectionStockMovements Collection = "stockMovements"
	CollectionSuppliers      Collection = "suppliers"
	CollectionPurchaseOrders Collection = "purchaseOrders"
)

// Collections lists every known collection in a stable order
var Collections = []Collection{
	CollectionProducts,
	CollectionSales,
	CollectionStockMovements,
	CollectionSuppliers,
	CollectionPurchaseOrders,
}

// ParseCollection validates a collection name. Remote names are accepted too,
// so "products" resolves to the local "items" collection.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s || c.RemoteName() == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Valid reports whether c is one of the known collections
func (c Collection) Valid() bool {
	_, err := NewRecord(c)
	return err == nil
}

// RemoteName maps a local collection to the name used by the cloud store.
func (c Collection) RemoteName() string {
	switch c {
	case CollectionProducts:
		return "products"
	case CollectionSales:
		return "sales"
	case CollectionStockMovements:
		return "stockMovements"
	case CollectionSuppliers:
		return "suppliers"
	case CollectionPurchaseOrders:
		return "purchaseOrders"
	default:
		return string(c)
	}
}

// Index names. Indexes are derived lookups only.
const (
	IndexByBrand     = "by-brand"
	IndexByDate      = "by-date"
	IndexByProduct   = "by-product"
	IndexByTimestamp = "by-timestamp"
	IndexByName      = "by-name"
	IndexByStatus    = "by-status"
	IndexBySupplier  = "by-supplier"
)

var collectionIndexes = map[Collection]map[string]string{
	CollectionProducts: {
		IndexByBrand: "brand",
	},
	CollectionSales: {
		IndexByDate: "date",
	},
	CollectionStockMovements: {
		IndexByProduct:   "productId",
		IndexByTimestamp: "timestamp",
	},
	CollectionSuppliers: {
		IndexByName: "name",
	},
	CollectionPurchaseOrders: {
		IndexByStatus:   "status",
		IndexBySupplier: "supplierId",
	},
}

// IndexField returns the JSON field backing a secondary index.
func (c Collection) IndexField(index string) (string, bool) {
	f, ok := collectionIndexes[c][index]
	return f, ok
}

// Indexes returns index name -> JSON field for c.
func (c Collection) Indexes() map[string]string {
	out := make(map[string]string, len(collectionIndexes[c]))
	for k, v := range collectionIndexes[c] {
		out[k] = v
	}
	return out
}
