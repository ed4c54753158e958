// Package models defines the domain records, collections and sync queue types
// shared by the local store, the repository and the sync engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeedType is the product category sold by the shop
type FeedType string

const (
	FeedStarter  FeedType = "Starter"
	FeedGrower   FeedType = "Grower"
	FeedFinisher FeedType = "Finisher"
	FeedNursery  FeedType = "Nursery"
)

// Role is a user's permission level
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleSales      Role = "Sales"
)

// ParseRole returns the matching role, defaulting to Sales for unknown input.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleSales:
		return Role(s)
	default:
		return RoleSales
	}
}

// MovementType is the direction of a stock movement
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// POStatus is the lifecycle state of a purchase order
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusSent      POStatus = "sent"
	POStatusReceived  POStatus = "received"
	POStatusCancelled POStatus = "cancelled"
)

// Record is implemented by every entity that lives in a Collection.
// The set of implementations is closed: Product, Sale, StockMovement,
// Supplier and PurchaseOrder.
type Record interface {
	RecordID() string
	Collection() Collection
	isRecord()
}

// Product is a bag of feed stocked by the shop
type Product struct {
	ID                string    `json:"id" validate:"required"`
	Brand             string    `json:"brand" validate:"required"`
	Type              FeedType  `json:"type" validate:"required,oneof=Starter Grower Finisher Nursery"`
	ParticleSize      string    `json:"particleSize"`
	ProteinPercent    float64   `json:"proteinPercent" validate:"gte=0,lte=100"`
	WeightKg          float64   `json:"weightKg" validate:"gte=0"`
	PricePerBag       float64   `json:"pricePerBag" validate:"gte=0"`
	Stock             int       `json:"stock" validate:"gte=0"`
	MinStockThreshold int       `json:"minStockThreshold" validate:"gte=0"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// Sale is a completed point-of-sale transaction line
type Sale struct {
	ID           string  `json:"id" validate:"required"`
	ProductID    string  `json:"productId" validate:"required"`
	ProductName  string  `json:"productName"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	TotalPrice   float64 `json:"totalPrice" validate:"gte=0"`
	CustomerName string  `json:"customerName"`
	Date         string  `json:"date" validate:"required"`
}

// StockMovement records a change to a product's stock level
type StockMovement struct {
	ID          string       `json:"id" validate:"required"`
	ProductID   string       `json:"productId" validate:"required"`
	ProductName string       `json:"productName"`
	Type        MovementType `json:"type" validate:"required,oneof=in out adjustment"`
	Quantity    int          `json:"quantity" validate:"gt=0"`
	Notes       string       `json:"notes,omitempty"`
	Timestamp   string       `json:"timestamp" validate:"required"`
}

// Supplier is a vendor products are purchased from
type Supplier struct {
	ID            string   `json:"id" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	ContactPerson string   `json:"contactPerson" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone,omitempty"`
	Address       string   `json:"address,omitempty"`
	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	ZipCode       string   `json:"zipCode,omitempty"`
	Products      []string `json:"products,omitempty"`
	PricePerBag   float64  `json:"pricePerBag" validate:"gte=0"`
	PaymentTerms  string   `json:"paymentTerms,omitempty"`
}

// POItem is a single line of a purchase order
type POItem struct {
	ProductID   string  `json:"productId" validate:"required"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID                   string   `json:"id" validate:"required"`
	PONumber             string   `json:"poNumber" validate:"required"`
	SupplierID           string   `json:"supplierId" validate:"required"`
	SupplierName         string   `json:"supplierName"`
	Items                []POItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount          float64  `json:"totalAmount" validate:"gte=0"`
	Status               POStatus `json:"status" validate:"required,oneof=draft sent received cancelled"`
	OrderDate            string   `json:"orderDate" validate:"required"`
	ExpectedDeliveryDate string   `json:"expectedDeliveryDate,omitempty"`
	Notes                string   `json:"notes,omitempty"`
}

func (p *Product) RecordID() string       { return p.ID }
func (p *Product) Collection() Collection { return CollectionProducts }
func (*Product) isRecord()                {}

func (s *Sale) RecordID() string       { return s.ID }
func (s *Sale) Collection() Collection { return CollectionSales }
func (*Sale) isRecord()                {}

func (m *StockMovement) RecordID() string       { return m.ID }
func (m *StockMovement) Collection() Collection { return CollectionStockMovements }
func (*StockMovement) isRecord()                {}

func (s *Supplier) RecordID() string       { return s.ID }
func (s *Supplier) Collection() Collection { return CollectionSuppliers }
func (*Supplier) isRecord()                {}

func (o *PurchaseOrder) RecordID() string       { return o.ID }
func (o *PurchaseOrder) Collection() Collection { return CollectionPurchaseOrders }
func (*PurchaseOrder) isRecord()                {}

// IsLowStock reports whether the product is at or below its reorder threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStockThreshold
}

// Total sums the item lines of the order
func (o *PurchaseOrder) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

// NewRecord returns an empty record of the kind stored in c.
func NewRecord(c Collection) (Record, error) {
	switch c {
	case CollectionProducts:
		return &Product{}, nil
	case CollectionSales:
		return &Sale{}, nil
	case CollectionStockMovements:
		return &StockMovement{}, nil
	case CollectionSuppliers:
		return &Supplier{}, nil
	case CollectionPurchaseOrders:
		return &PurchaseOrder{}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", string(c))
	}
}

// DecodeRecord unmarshals JSON into the record type owned by c.
func DecodeRecord(c Collection, data []byte) (Record, error) {
	rec, err := NewRecord(c)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", c, err)
	}
	return rec, nil
}

// CachedProfile mirrors a remote user so login can continue offline
type CachedProfile struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CachedAt     time.Time `json:"cachedAt"`
}

// BusinessStats summarizes sales and inventory
type BusinessStats struct {
	TotalRevenue        float64 `json:"totalRevenue"`
	TotalSales          int     `json:"totalSales"`
	LowStockItems       int     `json:"lowStockItems"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
}
