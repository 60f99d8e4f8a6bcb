package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "estate_listing_v1/docs"
	"estate_listing_v1/internal/controller"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/model"
)

// Options 可选路由
type Options struct {
	// 本地存储根目录，非空时挂载 /uploads
	UploadsDir string
	// 是否挂载 /swagger 文档页，生产环境关闭
	Swagger bool
	// 非空时挂载 /api/admin/tasks（仅管理员）
	Tasks *controller.TaskController
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	listingCtl *controller.ListingController,
	userCtl *controller.UserController,
	opts Options) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Swagger {
		// 访问 http://localhost:8080/swagger/index.html 即可查看
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}

	api := r.Group("/api")
	{
		// user 用户
		user := api.Group("/user")
		{
			user.POST("/signup", userCtl.Signup)
			user.POST("/login", userCtl.Login)
			user.POST("/logout", userCtl.Logout)
			user.GET("/me", middleware.JWTAuth(), userCtl.Me)
		}

		// rent-posts 出租
		rent := api.Group("/rent-posts")
		{
			// GET /api/rent-posts?page=0&page_size=12
			rent.GET("", listingCtl.ListRentPosts)
			rent.GET("/:id", listingCtl.GetRentPost)
			rent.POST("", middleware.JWTAuth(), listingCtl.CreateRentPost)
		}

		// sell-posts 出售
		sell := api.Group("/sell-posts")
		{
			sell.GET("", listingCtl.ListSellPosts)
			sell.GET("/:id", listingCtl.GetSellPost)
			sell.POST("", middleware.JWTAuth(), listingCtl.CreateSellPost)
		}

		// admin 管理员
		if opts.Tasks != nil {
			admin := api.Group("/admin", middleware.JWTAuth(), middleware.RequireRole(model.UserRoleAdmin))
			{
				admin.GET("/tasks", opts.Tasks.Status)
				admin.POST("/tasks/audit", opts.Tasks.TriggerAudit)
			}
		}
	}
}
