package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories is the closed set of catalog categories.
var Categories = []string{
	"electronics",
	"clothing",
	"footwear",
	"outdoor",
	"sports",
	"accessories",
	"home",
	"books",
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type ProductVariant struct {
	Name    string   `bson:"name" json:"name"`
	Options []string `bson:"options" json:"options"`
}

type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Price          float64            `bson:"price" json:"price"`
	Description    string             `bson:"description" json:"description"`
	Category       string             `bson:"category" json:"category"`
	Brand          string             `bson:"brand" json:"brand"`
	Images         StringList         `bson:"images" json:"images"`
	Rating         float64            `bson:"rating" json:"rating"`
	ReviewCount    int                `bson:"reviewCount" json:"reviewCount"`
	Stock          int                `bson:"stock" json:"stock"`
	InStock        bool               `bson:"-" json:"inStock"`
	Specifications map[string]string  `bson:"specifications,omitempty" json:"specifications,omitempty"`
	Features       StringList         `bson:"features,omitempty" json:"features,omitempty"`
	Tags           StringList         `bson:"tags,omitempty" json:"tags,omitempty"`
	Variants       []ProductVariant   `bson:"variants,omitempty" json:"variants,omitempty"`
	IsDeleted      bool               `bson:"isDeleted" json:"-"`
	DeletedAt      *time.Time         `bson:"deletedAt,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
