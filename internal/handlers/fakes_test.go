package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/auth"
	"peakhive/internal/catalog"
	"peakhive/internal/models"
	"peakhive/internal/orders"
	"peakhive/internal/pagination"
	"peakhive/internal/store"
)

// memDB backs every fake store. Reads hand out copies so handlers cannot
// mutate stored documents without calling a write method.
type memDB struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]models.User
	tokens    map[primitive.ObjectID]models.RefreshToken
	products  map[primitive.ObjectID]models.Product
	carts     map[primitive.ObjectID]models.Cart
	orders    map[primitive.ObjectID]models.Order
	reviews   map[primitive.ObjectID]models.Review
	payments  map[primitive.ObjectID]models.Payment
	wishlists map[primitive.ObjectID]models.Wishlist
	contacts  map[primitive.ObjectID]models.ContactMessage

	// orderNumberClashes makes the next Place calls fail on the unique index.
	orderNumberClashes int
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[primitive.ObjectID]models.User{},
		tokens:    map[primitive.ObjectID]models.RefreshToken{},
		products:  map[primitive.ObjectID]models.Product{},
		carts:     map[primitive.ObjectID]models.Cart{},
		orders:    map[primitive.ObjectID]models.Order{},
		reviews:   map[primitive.ObjectID]models.Review{},
		payments:  map[primitive.ObjectID]models.Payment{},
		wishlists: map[primitive.ObjectID]models.Wishlist{},
		contacts:  map[primitive.ObjectID]models.ContactMessage{},
	}
}

func paginate[T any](items []T, page pagination.Page) []T {
	start := page.Skip()
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + page.Limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

type fakeUsers struct{ db *memDB }

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.users {
		if existing.Email == u.Email {
			return fmt.Errorf("insert user: %w", store.ErrDuplicate)
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.db.users[u.ID] = *u
	return nil
}

func (f fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.db.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f fakeUsers) Update(_ context.Context, u *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	f.db.users[u.ID] = *u
	return nil
}

func (f fakeUsers) matching(term string) []models.User {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.User, 0)
	for _, u := range f.db.users {
		if term == "" || strings.Contains(strings.ToLower(u.Name), term) || strings.Contains(u.Email, term) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f fakeUsers) List(_ context.Context, search string, page pagination.Page) ([]models.User, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.matching(search)
	return paginate(all, page), int64(len(all)), nil
}

func (f fakeUsers) SearchIDs(_ context.Context, term string) ([]primitive.ObjectID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0)
	for _, u := range f.matching(term) {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (f fakeUsers) Count(_ context.Context) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.users)), nil
}

func (f fakeUsers) Delete(_ context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[id]; !ok {
		return nil, store.ErrNotFound
	}
	delete(f.db.users, id)
	delete(f.db.carts, id)
	delete(f.db.wishlists, id)

	reviewed := make([]primitive.ObjectID, 0)
	for rid, r := range f.db.reviews {
		if r.UserID == id {
			reviewed = append(reviewed, r.ProductID)
			delete(f.db.reviews, rid)
		}
	}
	for tid, t := range f.db.tokens {
		if t.UserID == id {
			delete(f.db.tokens, tid)
		}
	}
	for oid, o := range f.db.orders {
		if o.UserID != id {
			continue
		}
		for pid, p := range f.db.payments {
			if p.OrderID == oid {
				delete(f.db.payments, pid)
			}
		}
		delete(f.db.orders, oid)
	}
	for pid, p := range f.db.payments {
		if p.UserID == id {
			delete(f.db.payments, pid)
		}
	}
	return reviewed, nil
}

type fakeTokens struct{ db *memDB }

func (f fakeTokens) Create(_ context.Context, t *models.RefreshToken) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t.ID = primitive.NewObjectID()
	f.db.tokens[t.ID] = *t
	return nil
}

func (f fakeTokens) FindActive(_ context.Context, hash string) (*models.RefreshToken, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.tokens {
		if t.TokenHash == hash && t.Active(time.Now()) {
			found := t
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f fakeTokens) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	t.Revoked, t.RevokedAt = true, &now
	t.ReplacedBy = replacedBy
	f.db.tokens[id] = t
	return nil
}

type fakeProducts struct{ db *memDB }

func (f fakeProducts) live() []models.Product {
	out := make([]models.Product, 0, len(f.db.products))
	for _, p := range f.db.products {
		if !p.IsDeleted {
			p.InStock = p.Stock > 0
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f fakeProducts) List(_ context.Context, q catalog.Query) ([]models.Product, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	matched := make([]models.Product, 0)
	for _, p := range f.live() {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Keyword)) {
			continue
		}
		if q.InStock && p.Stock <= 0 {
			continue
		}
		matched = append(matched, p)
	}
	return paginate(matched, q.Page), int64(len(matched)), nil
}

func (f fakeProducts) Top(_ context.Context, limit int64) ([]models.Product, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	rated := make([]models.Product, 0)
	for _, p := range f.live() {
		if p.ReviewCount > 0 {
			rated = append(rated, p)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Rating > rated[j].Rating })
	if int64(len(rated)) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}

func (f fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	p.InStock = p.Stock > 0
	return &p, nil
}

func (f fakeProducts) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.db.products[id]; ok && !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.InStock = p.Stock > 0
	f.db.products[p.ID] = *p
	return nil
}

func (f fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	existing, ok := f.db.products[p.ID]
	if !ok || existing.IsDeleted {
		return store.ErrNotFound
	}
	updated := *p
	updated.Rating, updated.ReviewCount = existing.Rating, existing.ReviewCount
	f.db.products[p.ID] = updated
	return nil
}

func (f fakeProducts) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.products[id]
	if !ok || p.IsDeleted {
		return store.ErrNotFound
	}
	now := time.Now()
	p.IsDeleted, p.DeletedAt = true, &now
	f.db.products[id] = p
	return nil
}

func (f fakeProducts) SetRating(_ context.Context, id primitive.ObjectID, rating float64, count int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p := f.db.products[id]
	p.Rating, p.ReviewCount = rating, count
	f.db.products[id] = p
	return nil
}

func (f fakeProducts) Count(_ context.Context) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.live())), nil
}

func (f fakeProducts) LowStock(_ context.Context, threshold int, limit int64) ([]models.Product, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Product, 0)
	for _, p := range f.live() {
		if p.Stock <= threshold {
			out = append(out, p)
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCarts struct{ db *memDB }

func (f fakeCarts) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.carts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c, nil
}

func (f fakeCarts) Save(_ context.Context, c *models.Cart) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	saved := *c
	saved.Items = append([]models.CartItem{}, c.Items...)
	f.db.carts[c.UserID] = saved
	return nil
}

func (f fakeCarts) Clear(_ context.Context, userID primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if c, ok := f.db.carts[userID]; ok {
		c.Items, c.Subtotal = []models.CartItem{}, 0
		f.db.carts[userID] = c
	}
	return nil
}

type fakeOrders struct{ db *memDB }

func (f fakeOrders) Place(_ context.Context, productIDs []primitive.ObjectID, build func(map[primitive.ObjectID]models.Product) (*models.Order, error)) (*models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	byID := map[primitive.ObjectID]models.Product{}
	for _, id := range productIDs {
		if p, ok := f.db.products[id]; ok && !p.IsDeleted {
			byID[id] = p
		}
	}
	order, err := build(byID)
	if err != nil {
		return nil, err
	}
	if f.db.orderNumberClashes > 0 {
		f.db.orderNumberClashes--
		return nil, fmt.Errorf("insert order: %w", store.ErrDuplicate)
	}
	for _, o := range f.db.orders {
		if o.OrderNumber == order.OrderNumber {
			return nil, fmt.Errorf("insert order: %w", store.ErrDuplicate)
		}
	}
	for _, item := range order.Items {
		if f.db.products[item.ProductID].Stock < item.Quantity {
			return nil, apperror.BadRequest("Insufficient stock for %s", item.Name)
		}
	}
	for _, item := range order.Items {
		p := f.db.products[item.ProductID]
		p.Stock -= item.Quantity
		f.db.products[item.ProductID] = p
	}
	order.ID = primitive.NewObjectID()
	f.db.orders[order.ID] = *order
	return order, nil
}

func (f fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o, ok := f.db.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (f fakeOrders) sorted(keep func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range f.db.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f fakeOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.sorted(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (f fakeOrders) List(_ context.Context, filter store.OrderFilter, page pagination.Page) ([]models.Order, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	owners := map[primitive.ObjectID]bool{}
	for _, id := range filter.UserIDs {
		owners[id] = true
	}
	all := f.sorted(func(o models.Order) bool {
		if filter.Status != "" && string(o.Status) != filter.Status {
			return false
		}
		if term != "" && !strings.Contains(strings.ToLower(o.OrderNumber), term) && o.ID.Hex() != term {
			return false
		}
		if filter.UserIDs != nil && !owners[o.UserID] {
			return false
		}
		return true
	})
	return paginate(all, page), int64(len(all)), nil
}

func (f fakeOrders) Save(_ context.Context, o *models.Order) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	f.db.orders[o.ID] = *o
	return nil
}

func (f fakeOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.orders, id)
	return nil
}

func (f fakeOrders) Stats(_ context.Context) (*models.OrderStats, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stats := &models.OrderStats{OrdersByStatus: map[models.OrderStatus]int64{}}
	for _, s := range models.OrderStatuses {
		stats.OrdersByStatus[s] = 0
	}
	all := f.sorted(func(models.Order) bool { return true })
	for i := range all {
		o := all[i]
		stats.TotalOrders++
		stats.GrossOrderValue += o.TotalPrice
		stats.OrdersByStatus[o.Status]++
		if orders.CountsTowardRevenue(&o) {
			stats.TotalRevenue += o.TotalPrice
		}
	}
	if len(all) > 5 {
		all = all[:5]
	}
	stats.RecentOrders = all
	return stats, nil
}

type fakeReviews struct{ db *memDB }

func (f fakeReviews) Create(_ context.Context, r *models.Review) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.reviews {
		if existing.UserID == r.UserID && existing.ProductID == r.ProductID {
			return fmt.Errorf("insert review: %w", store.ErrDuplicate)
		}
	}
	r.ID = primitive.NewObjectID()
	f.db.reviews[r.ID] = *r
	return nil
}

func (f fakeReviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.reviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (f fakeReviews) Exists(_ context.Context, userID, productID primitive.ObjectID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.reviews {
		if r.UserID == userID && r.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeReviews) filter(keep func(models.Review) bool) []models.Review {
	out := make([]models.Review, 0)
	for _, r := range f.db.reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f fakeReviews) ListByProduct(_ context.Context, productID primitive.ObjectID, page pagination.Page) ([]models.Review, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.filter(func(r models.Review) bool { return r.ProductID == productID })
	return paginate(all, page), int64(len(all)), nil
}

func (f fakeReviews) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.filter(func(r models.Review) bool { return r.UserID == userID }), nil
}

func (f fakeReviews) Delete(_ context.Context, id primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.reviews, id)
	return nil
}

func (f fakeReviews) Ratings(_ context.Context, productID primitive.ObjectID) ([]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]int, 0)
	for _, r := range f.db.reviews {
		if r.ProductID == productID {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

type fakePayments struct{ db *memDB }

func (f fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p.ID = primitive.NewObjectID()
	f.db.payments[p.ID] = *p
	return nil
}

func (f fakePayments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f fakePayments) List(_ context.Context, status models.PaymentStatus, page pagination.Page) ([]models.Payment, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]models.Payment, 0)
	for _, p := range f.db.payments {
		if status == "" || p.Status == status {
			all = append(all, p)
		}
	}
	return paginate(all, page), int64(len(all)), nil
}

func (f fakePayments) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Payment, 0)
	for _, p := range f.db.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakePayments) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.PaymentStatus, now time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.payments[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status, p.UpdatedAt = status, now
	f.db.payments[id] = p
	return nil
}

type fakeWishlists struct{ db *memDB }

func (f fakeWishlists) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Wishlist, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wishlists[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	w.Products = append([]primitive.ObjectID{}, w.Products...)
	return &w, nil
}

func (f fakeWishlists) AddProduct(_ context.Context, userID, productID primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w := f.db.wishlists[userID]
	w.UserID = userID
	if !w.Contains(productID) {
		w.Products = append(w.Products, productID)
	}
	f.db.wishlists[userID] = w
	return nil
}

func (f fakeWishlists) RemoveProduct(_ context.Context, userID, productID primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wishlists[userID]
	if !ok {
		return nil
	}
	kept := make([]primitive.ObjectID, 0, len(w.Products))
	for _, id := range w.Products {
		if id != productID {
			kept = append(kept, id)
		}
	}
	w.Products = kept
	f.db.wishlists[userID] = w
	return nil
}

func (f fakeWishlists) Clear(_ context.Context, userID primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if w, ok := f.db.wishlists[userID]; ok {
		w.Products = []primitive.ObjectID{}
		f.db.wishlists[userID] = w
	}
	return nil
}

type fakeContacts struct{ db *memDB }

func (f fakeContacts) Create(_ context.Context, m *models.ContactMessage) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m.ID = primitive.NewObjectID()
	f.db.contacts[m.ID] = *m
	return nil
}

func (f fakeContacts) FindByID(_ context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (f fakeContacts) List(_ context.Context, status string, page pagination.Page) ([]models.ContactMessage, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]models.ContactMessage, 0)
	for _, m := range f.db.contacts {
		if status == "" || m.Status == status {
			all = append(all, m)
		}
	}
	return paginate(all, page), int64(len(all)), nil
}

func (f fakeContacts) Update(_ context.Context, m *models.ContactMessage) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.contacts[m.ID]; !ok {
		return store.ErrNotFound
	}
	f.db.contacts[m.ID] = *m
	return nil
}

func (f fakeContacts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.contacts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.contacts, id)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// testEnv drives the real router against the in-memory stores.
type testEnv struct {
	t      *testing.T
	db     *memDB
	deps   *Deps
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	db := newMemDB()

	deps := &Deps{
		Users:     fakeUsers{db},
		Tokens:    fakeTokens{db},
		Products:  fakeProducts{db},
		Carts:     fakeCarts{db},
		Orders:    fakeOrders{db},
		Reviews:   fakeReviews{db},
		Payments:  fakePayments{db},
		Wishlists: fakeWishlists{db},
		Contacts:  fakeContacts{db},
		Health:    fakePinger{},

		Issuer:     auth.NewIssuer("handler-test-secret", time.Hour),
		RefreshTTL: 24 * time.Hour,
		Pricing: orders.Pricing{
			TaxRate:               0.15,
			ShippingFee:           10,
			FreeShippingThreshold: 100,
		},
		LowStockThreshold: 5,
		UploadDir:         t.TempDir(),
		Timeout:           time.Second,
		Log:               logger,
		Now:               time.Now,
	}
	return &testEnv{t: t, db: db, deps: deps, router: NewRouter(deps)}
}

func (e *testEnv) addUser(name, role string) (*models.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(e.t, err)
	u := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        strings.ToLower(name) + "@peakhive.test",
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(e.t, e.deps.Users.Create(context.Background(), u))
	token, err := e.deps.Issuer.Issue(u.ID)
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) addProduct(name string, price float64, stock int) *models.Product {
	e.t.Helper()
	p := &models.Product{
		Name:      name,
		Price:     price,
		Category:  "outdoor",
		Brand:     "PeakHive",
		Images:    models.StringList{"/uploads/products/" + strings.ReplaceAll(strings.ToLower(name), " ", "-") + ".jpg"},
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(e.t, e.deps.Products.Create(context.Background(), p))
	return p
}

func (e *testEnv) putOrder(o models.Order) models.Order {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = orders.NewOrderNumber()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	e.db.orders[o.ID] = o
	return o
}

func (e *testEnv) storedOrder(id primitive.ObjectID) models.Order {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return e.db.orders[id]
}

func (e *testEnv) storedProduct(id primitive.ObjectID) models.Product {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return e.db.products[id]
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Message string `json:"message"`
	}](t, w).Message
}

func shippingAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Street:  "1 Summit Way",
		City:    "Boulder",
		State:   "CO",
		ZipCode: "80302",
		Country: "US",
	}
}

func checkoutBody(items ...interface{}) gin.H {
	return gin.H{
		"orderItems":      items,
		"shippingAddress": shippingAddress(),
		"paymentMethod":   models.PaymentCreditCard,
	}
}
