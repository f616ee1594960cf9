package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/auth"
	"peakhive/internal/catalog"
	"peakhive/internal/config"
	"peakhive/internal/models"
	"peakhive/internal/orders"
	"peakhive/internal/pagination"
	"peakhive/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, search string, page pagination.Page) ([]models.User, int64, error)
	SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error)
}

type TokenStore interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	FindActive(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
}

type ProductStore interface {
	List(ctx context.Context, q catalog.Query) ([]models.Product, int64, error)
	Top(ctx context.Context, limit int64) ([]models.Product, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64, count int) error
	Count(ctx context.Context) (int64, error)
	LowStock(ctx context.Context, threshold int, limit int64) ([]models.Product, error)
}

type CartStore interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type OrderStore interface {
	Place(ctx context.Context, productIDs []primitive.ObjectID, build func(map[primitive.ObjectID]models.Product) (*models.Order, error)) (*models.Order, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	List(ctx context.Context, f store.OrderFilter, page pagination.Page) ([]models.Order, int64, error)
	Save(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}

type ReviewStore interface {
	Create(ctx context.Context, r *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	Exists(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID, page pagination.Page) ([]models.Review, int64, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Ratings(ctx context.Context, productID primitive.ObjectID) ([]int, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	List(ctx context.Context, status models.PaymentStatus, page pagination.Page) ([]models.Payment, int64, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus, now time.Time) error
}

type WishlistStore interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Wishlist, error)
	AddProduct(ctx context.Context, userID, productID primitive.ObjectID) error
	RemoveProduct(ctx context.Context, userID, productID primitive.ObjectID) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type ContactStore interface {
	Create(ctx context.Context, m *models.ContactMessage) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error)
	List(ctx context.Context, status string, page pagination.Page) ([]models.ContactMessage, int64, error)
	Update(ctx context.Context, m *models.ContactMessage) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the HTTP layer needs. Handlers are closures over it.
type Deps struct {
	Users     UserStore
	Tokens    TokenStore
	Products  ProductStore
	Carts     CartStore
	Orders    OrderStore
	Reviews   ReviewStore
	Payments  PaymentStore
	Wishlists WishlistStore
	Contacts  ContactStore
	Health    Pinger

	Issuer            *auth.Issuer
	RefreshTTL        time.Duration
	Pricing           orders.Pricing
	LowStockThreshold int
	UploadDir         string
	Debug             bool
	Timeout           time.Duration
	Log               logrus.FieldLogger
	Now               func() time.Time
}

// NewDeps wires the Mongo stores and configuration into Deps.
func NewDeps(st *store.Store, cfg config.Config, logger logrus.FieldLogger) *Deps {
	return &Deps{
		Users:     st.Users,
		Tokens:    st.Tokens,
		Products:  st.Products,
		Carts:     st.Carts,
		Orders:    st.Orders,
		Reviews:   st.Reviews,
		Payments:  st.Payments,
		Wishlists: st.Wishlists,
		Contacts:  st.Contacts,
		Health:    st,

		Issuer:     auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		RefreshTTL: cfg.RefreshTokenTTL,
		Pricing: orders.Pricing{
			TaxRate:               cfg.TaxRate,
			ShippingFee:           cfg.ShippingFee,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
		},
		LowStockThreshold: cfg.LowStockThreshold,
		UploadDir:         cfg.UploadDir,
		Debug:             cfg.IsDevelopment(),
		Timeout:           cfg.DBTimeout,
		Log:               logger,
		Now:               time.Now,
	}
}

func (d *Deps) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
