package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// Handlers bundles every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth            *AuthHandler
	Users           *UserHandler
	Districts       *DistrictHandler
	Drivers         *DriverHandler
	WasteCategories *WasteCategoryHandler
	WasteRequests   *WasteRequestHandler
	Payments        *PaymentHandler
	Reports         *ReportHandler
	Metrics         *MetricsHandler
}

var (
	adminOnly   = middleware.RequireRoles(models.RoleAdmin)
	adminDriver = middleware.RequireRoles(models.RoleAdmin, models.RoleDriver)
	adminUser   = middleware.RequireRoles(models.RoleAdmin, models.RoleUser)
	driverOnly  = middleware.RequireRoles(models.RoleDriver)
	userOnly    = middleware.RequireRoles(models.RoleUser)
)

// RegisterRoutes mounts the API on api. authenticate must populate middleware.ContextUserKey.
func RegisterRoutes(api gin.IRouter, h Handlers, authenticate gin.HandlerFunc) {
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(authenticate)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)
	secured.PUT("/auth/profile", h.Auth.UpdateProfile)

	users := secured.Group("/users")
	users.GET("", adminOnly, h.Users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.Users.Get)
	users.POST("", adminOnly, h.Users.Create)
	users.PUT("/:id", adminOnly, h.Users.Update)
	users.DELETE("/:id", adminOnly, h.Users.Delete)

	districts := secured.Group("/districts")
	districts.GET("/get", h.Districts.List)
	districts.GET("/get/:id", h.Districts.Get)
	districts.POST("/create", adminOnly, h.Districts.Create)
	districts.PUT("/update/:id", adminOnly, h.Districts.Update)
	districts.DELETE("/delete/:id", adminOnly, h.Districts.Delete)

	// Signed tokens authorise image downloads on their own.
	api.GET("/drivers/image-download/:token", h.Drivers.DownloadImage)

	drivers := secured.Group("/drivers")
	drivers.GET("/get", adminDriver, h.Drivers.List)
	drivers.GET("/get/:id", adminDriver, h.Drivers.Get)
	drivers.POST("/create", adminOnly, h.Drivers.Create)
	drivers.PUT("/update/:id", adminOnly, h.Drivers.Update)
	drivers.DELETE("/delete/:id", adminOnly, h.Drivers.Delete)
	drivers.POST("/images/:id", adminOnly, h.Drivers.UploadImage)
	drivers.GET("/images/:id/:index", adminDriver, h.Drivers.ImageLink)

	categories := secured.Group("/waste-categories")
	categories.GET("/get", h.WasteCategories.List)
	categories.GET("/get/:id", h.WasteCategories.Get)
	categories.POST("/create", adminOnly, h.WasteCategories.Create)
	categories.PUT("/update/:id", adminOnly, h.WasteCategories.Update)
	categories.DELETE("/delete/:id", adminOnly, h.WasteCategories.Delete)

	requests := secured.Group("/waste-requests")
	requests.POST("/create", adminUser, h.WasteRequests.Create)
	requests.GET("/get", h.WasteRequests.List)
	requests.GET("/get/:id", h.WasteRequests.Get)
	requests.PUT("/update/:id", adminUser, h.WasteRequests.Update)
	requests.DELETE("/delete/:id", adminUser, h.WasteRequests.Delete)
	requests.PUT("/assign-driver/:id", adminOnly, h.WasteRequests.AssignDriver)
	requests.PUT("/update-status/:id", adminOnly, h.WasteRequests.UpdateStatus)
	requests.PUT("/driver-response/:id", driverOnly, h.WasteRequests.DriverResponse)
	requests.PUT("/confirm-collection", adminDriver, h.WasteRequests.ConfirmCollection)
	requests.PUT("/feedback", userOnly, h.WasteRequests.Feedback)

	payments := secured.Group("/payments")
	payments.GET("/get", h.Payments.List)
	payments.GET("/get/:id", h.Payments.Get)
	payments.PUT("/update/:id", adminUser, h.Payments.Update)
	payments.DELETE("/delete/:id", adminOnly, h.Payments.Delete)

	reports := secured.Group("/reports", adminOnly)
	reports.POST("/waste-requests", h.Reports.WasteRequests)
	reports.POST("/payments", h.Reports.Payments)
	reports.POST("/drivers", h.Reports.Drivers)
	reports.POST("/districts", h.Reports.Districts)

	if h.Metrics != nil {
		secured.GET("/metrics/snapshot", adminOnly, h.Metrics.Snapshot)
	}
}
