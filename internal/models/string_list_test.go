package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStringListDecodesLegacyString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"name": "Summit Jacket", "images": "/uploads/a.jpg, /uploads/b.jpg", "tags": bson.A{"rain", "alpine"}})
	require.NoError(t, err)

	var p Product
	require.NoError(t, bson.Unmarshal(raw, &p))
	assert.Equal(t, StringList{"/uploads/a.jpg", "/uploads/b.jpg"}, p.Images)
	assert.Equal(t, StringList{"rain", "alpine"}, p.Tags)
	assert.Equal(t, "/uploads/a.jpg", p.Images.First())
}

func TestStringListMarshalsNilAsEmptyArray(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"images": StringList(nil)})
	require.NoError(t, err)

	var out bson.M
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, bson.A{}, out["images"])
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, IsValidPaymentMethod(PaymentCashOnDelivery))
	assert.False(t, IsValidPaymentMethod("bitcoin"))
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &RefreshToken{ExpiresAt: now.Add(time.Hour)}

	assert.True(t, token.Active(now))
	assert.False(t, token.Active(now.Add(2*time.Hour)))

	token.Revoked = true
	assert.False(t, token.Active(now))

	var missing *RefreshToken
	assert.False(t, missing.Active(now))
}
