package cart

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func product(price float64, stock int) models.Product {
	return models.Product{
		ID:     primitive.NewObjectID(),
		Name:   "Trail Runner",
		Price:  price,
		Stock:  stock,
		Images: models.StringList{"/uploads/products/trail.jpg", "/uploads/products/trail-2.jpg"},
	}
}

func TestAddMergesExistingLine(t *testing.T) {
	p := product(10, 5)
	c := New(primitive.NewObjectID(), now)

	require.NoError(t, Add(c, p, 2, now))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 20.0, c.Subtotal)
	assert.Equal(t, "/uploads/products/trail.jpg", c.Items[0].Image)

	require.NoError(t, Add(c, p, 1, now))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 30.0, c.Subtotal)
}

func TestAddRejectsOverStock(t *testing.T) {
	p := product(10, 3)
	c := New(primitive.NewObjectID(), now)
	require.NoError(t, Add(c, p, 2, now))

	err := Add(c, p, 2, now)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 20.0, c.Subtotal)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := New(primitive.NewObjectID(), now)
	assert.Error(t, Add(c, product(10, 5), 0, now))
}

func TestSubtotalTracksEveryMutation(t *testing.T) {
	a, b := product(19.99, 10), product(5.5, 10)
	c := New(primitive.NewObjectID(), now)

	require.NoError(t, Add(c, a, 3, now))
	require.NoError(t, Add(c, b, 2, now))
	assert.Equal(t, 70.97, c.Subtotal)

	require.NoError(t, SetQuantity(c, a.ID, 1, now))
	assert.Equal(t, 30.99, c.Subtotal)

	require.NoError(t, Remove(c, b.ID, now))
	assert.Equal(t, 19.99, c.Subtotal)

	require.NoError(t, Replace(c, []models.CartItem{
		{ProductID: a.ID, Price: 19.99, Quantity: 2},
		{ProductID: b.ID, Price: 5.5, Quantity: 4},
	}, now))
	assert.Equal(t, 61.98, c.Subtotal)
	assert.Equal(t, Subtotal(c.Items), c.Subtotal)

	Clear(c, now)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0.0, c.Subtotal)
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	p := product(10, 5)
	c := New(primitive.NewObjectID(), now)
	require.NoError(t, Add(c, p, 2, now))

	require.NoError(t, SetQuantity(c, p.ID, 0, now))
	assert.Empty(t, c.Items)
}

func TestSetQuantityMissingItem(t *testing.T) {
	c := New(primitive.NewObjectID(), now)
	err := SetQuantity(c, primitive.NewObjectID(), 2, now)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}

func TestReplaceValidatesItems(t *testing.T) {
	id := primitive.NewObjectID()
	c := New(primitive.NewObjectID(), now)

	assert.Error(t, Replace(c, []models.CartItem{{ProductID: id, Price: 1, Quantity: 0}}, now))
	assert.Error(t, Replace(c, []models.CartItem{{Price: 1, Quantity: 1}}, now))
	assert.Error(t, Replace(c, []models.CartItem{
		{ProductID: id, Price: 1, Quantity: 1},
		{ProductID: id, Price: 1, Quantity: 2},
	}, now))
}
