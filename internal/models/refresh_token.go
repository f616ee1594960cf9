package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken is one link of a rotation chain. Only the sha256 of the
// opaque token is stored.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"userId" json:"userId"`
	TokenHash  string              `bson:"tokenHash" json:"-"`
	IssuedAt   time.Time           `bson:"createdAt" json:"issuedAt"`
	ExpiresAt  time.Time           `bson:"expiresAt" json:"expiresAt"`
	Revoked    bool                `bson:"revoked" json:"revoked"`
	RevokedAt  *time.Time          `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	ReplacedBy *primitive.ObjectID `bson:"replacedByToken,omitempty" json:"replacedBy,omitempty"`
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}
