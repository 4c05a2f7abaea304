package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libris_back_end/internal/handlers/invoice"
	"libris_back_end/internal/handlers/order"
	"libris_back_end/internal/handlers/payment"
	"libris_back_end/internal/handlers/product"
	"libris_back_end/internal/handlers/user"
	"libris_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	// Health check
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ================== AUTH ==================
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", middleware.RegisterRateLimit(), user.Register)
		auth.POST("/login", middleware.LoginRateLimit(), user.Login)
		auth.POST("/forgot-password", middleware.ForgotPasswordRateLimit(), user.ForgotPassword)
		auth.PUT("/reset-password/:resetToken", user.ResetPassword)

		// OAuth (Google / Facebook)
		auth.GET("/:provider", user.BeginOAuth)
		auth.GET("/:provider/callback", user.OAuthCallback)
	}

	// ================== USERS ==================
	users := r.Group("/api/users", middleware.AuthRequired())
	{
		users.GET("/me", user.GetProfile)
		users.PUT("/me/password", user.ChangePassword)
	}

	// ================== PRODUCTS ==================
	products := r.Group("/api/products")
	{
		products.GET("", product.GetProducts)
		products.GET("/top", product.GetTopProducts)
		products.GET("/search", product.SearchProducts)
		products.GET("/category/:id", product.GetProductsByCategory)
		products.GET("/:id", product.GetProductByID)
		products.GET("/:id/reviews", product.GetProductReviews)
		products.GET("/:id/cover", product.GetCoverURL)

		products.POST("/:id/reviews", middleware.AuthRequired(), product.CreateReview)
		products.PUT("/:id/reviews/:reviewId", middleware.AuthRequired(), product.UpdateReview)
		products.DELETE("/:id/reviews/:reviewId", middleware.AuthRequired(), product.DeleteReview)

		admin := products.Group("", middleware.AuthRequired(), middleware.RequireAdmin)
		{
			admin.POST("", product.CreateProduct)
			admin.PUT("/:id", product.UpdateProduct)
			admin.DELETE("/:id", product.DeleteProduct)
			admin.POST("/:id/cover", product.UploadCover)
		}
	}

	// ================== CATEGORIES ==================
	categories := r.Group("/api/categories")
	{
		categories.GET("", product.GetAllCategories)

		admin := categories.Group("", middleware.AuthRequired(), middleware.RequireAdmin)
		{
			admin.POST("", product.CreateCategory)
			admin.PUT("/:id", product.UpdateCategory)
			admin.DELETE("/:id", product.DeleteCategory)
		}
	}

	// ================== CARTS ==================
	carts := r.Group("/api/carts", middleware.AuthRequired())
	{
		carts.GET("", user.GetCart)
		carts.POST("/add", user.AddToCart)
		carts.DELETE("/clear", user.ClearCart)
		carts.PUT("/:productId", user.UpdateCartItem)
		carts.DELETE("/:productId", user.RemoveFromCart)
		carts.GET("/ws", user.CartWebSocket)
	}

	// ================== ORDERS ==================
	ordersGroup := r.Group("/api/orders", middleware.AuthRequired())
	{
		ordersGroup.POST("", order.CreateOrder)
		ordersGroup.GET("/myorders", order.GetMyOrders)
		ordersGroup.GET("/:id", order.GetOrderByID)
		ordersGroup.PUT("/:id/pay", order.UpdateOrderToPaid)
		ordersGroup.PUT("/:id/cancel", order.CancelOrder)

		admin := ordersGroup.Group("", middleware.RequireAdmin)
		{
			admin.GET("", order.GetOrders)
			admin.PUT("/:id/status", order.UpdateOrderStatus)
		}
	}

	// ================== PAYMENTS ==================
	payments := r.Group("/api/payments")
	{
		payments.POST("/create-intent", middleware.AuthRequired(), payment.CreatePaymentIntent)
		payments.POST("/webhook", payment.StripeWebhook) // signé par Stripe, pas par nous
	}

	// ================== INVOICES ==================
	r.POST("/api/invoice/:id/send", middleware.AuthRequired(), invoice.SendInvoice)
}
