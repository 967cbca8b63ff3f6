package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shopsmart_v1_202610/internal/controller"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/model"

	_ "shopsmart_v1_202610/docs"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Auth    *controller.AuthController
	User    *controller.UserController
	Catalog *controller.CatalogController
	Console *controller.ConsoleController
	Shop    *controller.ShopController
	Order   *controller.OrderController
	Stock   *controller.StockController
}

// Options 路由选项
type Options struct {
	Limiter          *middleware.Cooldown
	SubmitCooldown   time.Duration
	CheckoutCooldown time.Duration
	UploadDir        string // 本地存储目录，为空时不挂载 /uploads
	UploadURL        string
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, c Controllers, opts Options) {
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewCooldown()
	}

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.UploadDir != "" {
		url := opts.UploadURL
		if url == "" {
			url = "/uploads"
		}
		r.Static(url, opts.UploadDir)
	}

	adminOnly := middleware.RequireRole(model.RoleAdmin)
	submitThrottle := middleware.Throttle(opts.Limiter, opts.SubmitCooldown, func(ctx *gin.Context) string {
		return middleware.SubmitKey(middleware.GetSessionID(ctx))
	})
	checkoutThrottle := middleware.ThrottleOnSuccess(opts.Limiter, opts.CheckoutCooldown, func(ctx *gin.Context) string {
		if id := middleware.GetUserID(ctx); id > 0 {
			return middleware.CheckoutKey(id)
		}
		return ""
	})

	// 2. API 路由组
	api := r.Group("/api")
	// 带 token 的请求先解析身份，供审计回调记录操作人
	api.Use(middleware.OptionalAuth(), middleware.AuditContext())
	{
		// auth 登录与会话
		auth := api.Group("/auth")
		{
			auth.POST("/login", c.Auth.Login)
			auth.POST("/register", c.Auth.Register)
			auth.POST("/refresh", c.Auth.RefreshToken)

			authed := auth.Group("", middleware.JWTAuth())
			authed.GET("/profile", c.Auth.GetProfile)
			authed.POST("/logout", c.Auth.Logout)
			authed.PUT("/password", c.Auth.ChangePassword)
		}

		// console 控制台与商品向导
		console := api.Group("/console", middleware.JWTAuth())
		{
			console.GET("/gate", c.Console.Gate)
			console.GET("/products", c.Console.Products)
			console.GET("/categories", c.Console.Categories)

			// 已持久化商品的图片/变体维护，编辑模式下使用
			stored := console.Group("/products/:id", adminOnly)
			{
				stored.DELETE("", c.Console.DeleteProduct)
				stored.GET("/images", c.Console.ProductImages)
				stored.DELETE("/images/:image_id", c.Console.DeleteProductImage)
				stored.GET("/variants", c.Console.ProductVariants)
				stored.DELETE("/variants/:variant_id", c.Console.DeleteProductVariant)
			}

			wizard := console.Group("/wizard", adminOnly)
			{
				wizard.POST("/open", c.Console.OpenWizard)
				wizard.GET("", c.Console.GetWizard)
				wizard.PUT("/basic", c.Console.SetBasicInfo)
				wizard.POST("/stage", c.Console.GoTo)
				wizard.POST("/next", c.Console.Next)
				wizard.POST("/images", c.Console.AddImage)
				wizard.DELETE("/images/:key", c.Console.RemoveImage)
				wizard.POST("/images/:key/principal", c.Console.SetPrincipalImage)
				wizard.PUT("/variant-form", c.Console.SetVariantForm)
				wizard.POST("/variant-form/sizes/:size", c.Console.ToggleSize)
				wizard.POST("/variants", c.Console.AddVariants)
				wizard.DELETE("/variants/:key", c.Console.RemoveVariant)
				wizard.POST("/submit", submitThrottle, c.Console.Submit)
				wizard.POST("/cancel", c.Console.CancelWizard)
			}
		}

		// shop 店面；访客先通过 /shop/session 获取 token
		api.POST("/shop/session", c.Auth.Guest)
		shop := api.Group("/shop", middleware.JWTAuth())
		{
			shop.GET("/products", c.Shop.Products)
			shop.GET("/cart", c.Shop.Cart)
			shop.POST("/cart", c.Shop.AddToCart)
			shop.DELETE("/cart", c.Shop.ClearCart)
			shop.DELETE("/cart/:cart_id", c.Shop.RemoveFromCart)
			shop.POST("/checkout", checkoutThrottle, c.Shop.Checkout)
			shop.GET("/orders", c.Shop.MyOrders)
			shop.POST("/orders/:id/pay", c.Shop.Pay)
			shop.GET("/orders/:id/track", c.Shop.Track)
		}

		// catalog 读公开，写仅管理员
		catalog := api.Group("/catalog")
		{
			catalog.GET("/categories", c.Catalog.ListCategories)
			catalog.GET("/categories/:id", c.Catalog.GetCategory)
			catalog.GET("/products", c.Catalog.ListProducts)
			catalog.GET("/products/:id", c.Catalog.GetProduct)
			catalog.GET("/images", c.Catalog.ListImages)
			catalog.GET("/variants", c.Catalog.ListVariants)

			write := catalog.Group("", middleware.JWTAuth(), adminOnly)
			write.POST("/categories", c.Catalog.CreateCategory)
			write.PUT("/categories/:id", c.Catalog.UpdateCategory)
			write.DELETE("/categories/:id", c.Catalog.DeleteCategory)
			write.POST("/products", c.Catalog.CreateProduct)
			write.PUT("/products/:id", c.Catalog.UpdateProduct)
			write.DELETE("/products/:id", c.Catalog.DeleteProduct)
			write.POST("/images", c.Catalog.AddImage)
			write.PUT("/images/:id/principal", c.Catalog.SetPrincipalImage)
			write.DELETE("/images/:id", c.Catalog.DeleteImage)
			write.POST("/variants", c.Catalog.CreateVariant)
			write.PUT("/variants/:id", c.Catalog.UpdateVariant)
			write.DELETE("/variants/:id", c.Catalog.DeleteVariant)
		}

		// admin 后台
		admin := api.Group("/admin", middleware.JWTAuth())
		{
			// 销售模块卖家也可见
			orders := admin.Group("/orders", middleware.RequireRole(model.RoleAdmin, model.RoleSeller))
			orders.GET("", c.Order.List)
			orders.GET("/:id", c.Order.GetByID)
			orders.GET("/:id/track", c.Order.Track)
			orders.PUT("/:id/status", c.Order.UpdateStatus)
			admin.POST("/sales", middleware.RequireRole(model.RoleAdmin, model.RoleSeller), c.Order.InStoreSale)

			users := admin.Group("/users", adminOnly)
			users.GET("", c.User.ListUsers)
			users.POST("", c.User.CreateUser)
			users.GET("/:id", c.User.GetUser)
			users.PUT("/:id", c.User.UpdateUser)
			users.PUT("/:id/role", c.User.AssignRole)
			users.PUT("/:id/password", c.User.ResetPassword)
			users.DELETE("/:id", c.User.DeleteUser)

			roles := admin.Group("/roles", adminOnly)
			roles.GET("", c.User.ListRoles)
			roles.POST("", c.User.CreateRole)
			roles.PUT("/:name", c.User.UpdateRole)
			roles.DELETE("/:name", c.User.DeleteRole)

			stock := admin.Group("/stock", adminOnly)
			stock.GET("/movements", c.Stock.Movements)
			stock.POST("/movements", c.Stock.Move)
			stock.GET("/low", c.Stock.LowStock)
			stock.GET("/export", c.Stock.Export)

			admin.GET("/forecast", adminOnly, c.Stock.Forecast)
		}
	}
}
