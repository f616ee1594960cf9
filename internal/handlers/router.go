package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"peakhive/internal/logging"
	"peakhive/internal/middleware"
)

// NewRouter mounts every route under /api and serves uploaded images from
// /uploads.
func NewRouter(d *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(d.Log))
	r.Static("/uploads", filepath.Clean(d.UploadDir))

	requireUser := middleware.Auth(d.Issuer, d.Users, d.Log)
	optionalUser := middleware.OptionalAuth(d.Issuer, d.Users, d.Log)
	adminOnly := middleware.AdminOnly()

	api := r.Group("/api")
	api.GET("/health", Health(d))

	users := api.Group("/users")
	{
		users.POST("", Register(d))
		users.POST("/login", Login(d))
		users.POST("/refresh", Refresh(d))
		users.POST("/logout", Logout(d))
		users.GET("/profile", requireUser, GetProfile(d))
		users.PUT("/profile", requireUser, UpdateProfile(d))

		users.GET("", requireUser, adminOnly, ListUsers(d))
		users.GET("/:id", requireUser, adminOnly, GetUser(d))
		users.PUT("/:id", requireUser, adminOnly, UpdateUser(d))
		users.DELETE("/:id", requireUser, adminOnly, DeleteUser(d))
	}

	products := api.Group("/products")
	{
		products.GET("", ListProducts(d))
		products.GET("/top", TopProducts(d))
		products.GET("/categories", ProductCategories(d))
		products.GET("/:id", GetProduct(d))

		products.POST("", requireUser, adminOnly, CreateProduct(d))
		products.PUT("/:id", requireUser, adminOnly, UpdateProduct(d))
		products.DELETE("/:id", requireUser, adminOnly, DeleteProduct(d))
	}

	api.POST("/upload", requireUser, adminOnly, UploadImage(d))

	cartRoutes := api.Group("/cart", requireUser)
	{
		cartRoutes.GET("", GetCart(d))
		cartRoutes.POST("", ReplaceCart(d))
		cartRoutes.POST("/add", AddToCart(d))
		cartRoutes.PUT("/items/:productId", UpdateCartItem(d))
		cartRoutes.DELETE("/items/:productId", RemoveCartItem(d))
		cartRoutes.DELETE("", ClearCart(d))
	}

	orderRoutes := api.Group("/orders", requireUser)
	{
		orderRoutes.POST("", CreateOrder(d))
		orderRoutes.GET("", adminOnly, ListOrders(d))
		orderRoutes.GET("/myorders", MyOrders(d))
		orderRoutes.GET("/stats", adminOnly, OrderStats(d))
		orderRoutes.GET("/:id", GetOrder(d))
		orderRoutes.PUT("/:id", adminOnly, UpdateOrderStatus(d))
		orderRoutes.PUT("/:id/pay", PayOrder(d))
		orderRoutes.PUT("/:id/cancel", CancelOrder(d))
		orderRoutes.PUT("/:id/refund", adminOnly, RefundOrder(d))
		orderRoutes.DELETE("/:id", DeleteOrder(d))
	}

	reviewRoutes := api.Group("/reviews")
	{
		reviewRoutes.GET("", ListProductReviews(d))
		reviewRoutes.POST("", requireUser, CreateReview(d))
		reviewRoutes.GET("/myreviews", requireUser, MyReviews(d))
		reviewRoutes.DELETE("/:id", requireUser, DeleteReview(d))
	}

	paymentRoutes := api.Group("/payment", requireUser)
	{
		paymentRoutes.POST("", CreatePayment(d))
		paymentRoutes.GET("/mypayments", MyPayments(d))
		paymentRoutes.GET("/:id", GetPayment(d))
		paymentRoutes.GET("", adminOnly, ListPayments(d))
		paymentRoutes.PUT("/:id/status", adminOnly, UpdatePaymentStatus(d))
	}

	wishlistRoutes := api.Group("/wishlist", requireUser)
	{
		wishlistRoutes.GET("", GetWishlist(d))
		wishlistRoutes.POST("", AddToWishlist(d))
		wishlistRoutes.DELETE("/:productId", RemoveFromWishlist(d))
		wishlistRoutes.DELETE("", ClearWishlist(d))
	}

	contactRoutes := api.Group("/contact")
	{
		contactRoutes.POST("", optionalUser, SubmitContact(d))
		contactRoutes.GET("", requireUser, adminOnly, ListContacts(d))
		contactRoutes.GET("/:id", requireUser, adminOnly, GetContact(d))
		contactRoutes.PUT("/:id", requireUser, adminOnly, UpdateContact(d))
		contactRoutes.DELETE("/:id", requireUser, adminOnly, DeleteContact(d))
	}

	api.GET("/admin/dashboard", requireUser, adminOnly, Dashboard(d))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found - " + c.Request.URL.Path})
	})
	return r
}
