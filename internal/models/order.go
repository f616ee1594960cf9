package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCanceled   OrderStatus = "canceled"
	StatusRefunded   OrderStatus = "refunded"
)

var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCanceled,
	StatusRefunded,
}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	PaymentCreditCard     = "credit_card"
	PaymentPayPal         = "paypal"
	PaymentCashOnDelivery = "cash_on_delivery"
)

func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCreditCard, PaymentPayPal, PaymentCashOnDelivery:
		return true
	}
	return false
}

// OrderItem represents a single product entry within an order.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

type ShippingAddress struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

// PaymentResult is the snapshot stored when an order is paid.
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"updateTime,omitempty" json:"updateTime,omitempty"`
	EmailAddress string `bson:"emailAddress,omitempty" json:"emailAddress,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderNumber     string              `bson:"orderNumber" json:"orderNumber"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	Items           []OrderItem         `bson:"items" json:"orderItems"`
	ShippingAddress ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string              `bson:"paymentMethod" json:"paymentMethod"`
	PaymentResult   *PaymentResult      `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	ItemsPrice      float64             `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice        float64             `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   float64             `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64             `bson:"totalPrice" json:"totalPrice"`
	Status          OrderStatus         `bson:"status" json:"status"`
	IsPaid          bool                `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool                `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	IsCanceled      bool                `bson:"isCanceled" json:"isCanceled"`
	CanceledAt      *time.Time          `bson:"canceledAt,omitempty" json:"canceledAt,omitempty"`
	CanceledBy      *primitive.ObjectID `bson:"canceledBy,omitempty" json:"canceledBy,omitempty"`
	RefundReason    string              `bson:"refundReason,omitempty" json:"refundReason,omitempty"`
	RefundNotes     string              `bson:"refundNotes,omitempty" json:"refundNotes,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// OrderStats is the admin reporting view over all orders.
type OrderStats struct {
	TotalOrders     int64                 `json:"totalOrders"`
	TotalRevenue    float64               `json:"totalRevenue"`
	GrossOrderValue float64               `json:"grossOrderValue"`
	OrdersByStatus  map[OrderStatus]int64 `json:"ordersByStatus"`
	RecentOrders    []Order               `json:"recentOrders"`
}
