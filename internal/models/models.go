package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// OrderStatuses is the closed set of valid order statuses.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// ValidOrderStatus reports whether s is a member of the closed status set.
func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods
const (
	PaymentMethodCashOnDelivery = "cash_on_delivery"
	PaymentMethodCard           = "card"
	PaymentMethodBankTransfer   = "bank_transfer"
	PaymentMethodWallet         = "wallet"
)

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodWallet:
		return true
	}
	return false
}

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// CustomerInfo is the contact snapshot captured on an order at checkout.
// It is stored by value so later profile edits never alter historical orders.
type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// Value implements driver.Valuer so the snapshot persists as a JSON column.
func (c CustomerInfo) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *CustomerInfo) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// ShippingAddress is the address snapshot captured on an order at checkout.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// PaymentDetails holds the redacted card info kept for card orders.
type PaymentDetails struct {
	Last4    string `json:"last4"`
	CardType string `json:"cardType"`
}

// NullPaymentDetails is PaymentDetails with a validity flag, analogous to
// decimal.NullDecimal, so the column can be NULL for non-card orders.
type NullPaymentDetails struct {
	Details PaymentDetails
	Valid   bool
}

// CardDetails returns a valid NullPaymentDetails for a card order.
func CardDetails(last4, cardType string) NullPaymentDetails {
	return NullPaymentDetails{Details: PaymentDetails{Last4: last4, CardType: cardType}, Valid: true}
}

func (n NullPaymentDetails) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return json.Marshal(n.Details)
}

func (n *NullPaymentDetails) Scan(src interface{}) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return scanJSON(src, &n.Details)
}

func (n NullPaymentDetails) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Details)
}

func (n *NullPaymentDetails) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return json.Unmarshal(b, &n.Details)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
}

// Order represents a customer order. Customer and address fields are
// snapshots, not references.
type Order struct {
	ID                string             `db:"id" json:"id"`
	OrderNumber       int64              `db:"order_number" json:"orderNumber"`
	Status            string             `db:"status" json:"status"`
	PaymentStatus     string             `db:"payment_status" json:"paymentStatus"`
	PaymentMethod     string             `db:"payment_method" json:"paymentMethod"`
	PaymentDetails    NullPaymentDetails `db:"payment_details" json:"paymentDetails"`
	CustomerInfo      CustomerInfo       `db:"customer_info" json:"customerInfo"`
	ShippingAddress   ShippingAddress    `db:"shipping_address" json:"shippingAddress"`
	Subtotal          decimal.Decimal    `db:"subtotal" json:"subtotal"`
	Tax               decimal.Decimal    `db:"tax" json:"tax"`
	Shipping          decimal.Decimal    `db:"shipping" json:"shipping"`
	Discount          decimal.Decimal    `db:"discount" json:"discount"`
	Total             decimal.Decimal    `db:"total" json:"total"`
	TrackingNumber    string             `db:"tracking_number" json:"trackingNumber"`
	EstimatedDelivery time.Time          `db:"estimated_delivery" json:"estimatedDelivery"`
	ActualDelivery    *time.Time         `db:"actual_delivery" json:"actualDelivery,omitempty"`
	PaymentDate       *time.Time         `db:"payment_date" json:"paymentDate,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updatedAt"`
}

// OrderItem is one line of an order with the product snapshot taken at
// order time.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"orderId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Image     string          `db:"image" json:"image,omitempty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Total     decimal.Decimal `db:"total" json:"total"`
}

// OrderEvent is one entry in the append-only status audit log.
type OrderEvent struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    string    `db:"order_id" json:"orderId"`
	FromStatus string    `db:"from_status" json:"fromStatus"`
	ToStatus   string    `db:"to_status" json:"toStatus"`
	Note       string    `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Product categories (closed enumeration)
const (
	CategoryEducationalToys  = "educational-toys"
	CategoryMotherEssential  = "mother-essential"
	CategoryNewBornEssential = "new-born-essential"
	CategoryArtToys          = "art-toys"
	CategoryBabyCareHygiene  = "baby-care-hygiene"
	CategorySleepComfort     = "sleep-comfort"
)

// AgeGroups is the closed set of product age groups.
var AgeGroups = []string{
	"0-12 months",
	"1-2 years",
	"3-5 years",
	"6-8 years",
	"9-12 years",
	"13+ years",
	"adult",
}

// Product represents a catalog product. Products are deactivated, never
// deleted, because order items reference them.
type Product struct {
	ID            int64               `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description,omitempty"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	OriginalPrice decimal.NullDecimal `db:"original_price" json:"originalPrice,omitempty"`
	Category      string              `db:"category" json:"category"`
	AgeGroup      string              `db:"age_group" json:"ageGroup"`
	Image         string              `db:"image" json:"image,omitempty"`
	StockQuantity int                 `db:"stock_quantity" json:"stockQuantity"`
	InStock       bool                `db:"in_stock" json:"inStock"`
	Rating        float64             `db:"rating" json:"rating"`
	ReviewCount   int                 `db:"review_count" json:"reviewCount"`
	IsFeatured    bool                `db:"is_featured" json:"isFeatured"`
	IsActive      bool                `db:"is_active" json:"isActive"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}

// User is an account in the auth registry. The password hash never leaves
// the service layer.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Phone        string     `json:"phone,omitempty"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
