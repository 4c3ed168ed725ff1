package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/controllers"
)

// UserRoutes builds the HTTP API
func UserRoutes(allowedOrigins []string) *gin.Engine {
	//creates a new Gin engine instance with default configurations
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	// event streams must not be buffered by the compressor
	r.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{"/api/notifications/stream"})))

	api := r.Group("/api")
	auth := authentication.AuthMiddleware()
	admin := authentication.AdminMiddleware()

	//token routes
	api.POST("/token/", controllers.Login)
	api.POST("/token/refresh/", controllers.RefreshToken)

	//user routes
	users := api.Group("/users")
	{
		users.POST("/", controllers.Register)
		users.POST("/verify_email/", controllers.VerifyEmail)
		users.POST("/resend_verification/", controllers.ResendVerification)
		users.GET("/me/", auth, controllers.Me)
		users.PATCH("/me/", auth, controllers.UpdateMe)
		users.POST("/change_password/", auth, controllers.ChangePassword)
		users.POST("/phone/send_code/", auth, controllers.SendPhoneCode)
		users.POST("/phone/verify/", auth, controllers.VerifyPhone)
		users.GET("/", auth, admin, controllers.ListUsers)
		users.GET("/:id", auth, admin, controllers.GetUser)
		users.PATCH("/:id", auth, admin, controllers.UpdateUser)
		users.DELETE("/:id", auth, admin, controllers.DeleteUser)
		users.POST("/:id/impersonate/", auth, admin, controllers.Impersonate)
	}

	//doctor routes
	doctors := api.Group("/doctors")
	{
		doctors.GET("/", controllers.ListDoctors)
		doctors.GET("/:id", controllers.GetDoctor)
		doctors.GET("/:id/slots", controllers.DoctorSlots)
		doctors.POST("/", auth, controllers.CreateDoctor)
		doctors.PATCH("/:id", auth, controllers.UpdateDoctor)
		doctors.DELETE("/:id", auth, admin, controllers.DeleteDoctor)
		doctors.POST("/:id/verify/", auth, admin, controllers.VerifyDoctor)
	}

	schedules := api.Group("/schedules")
	{
		schedules.GET("/", controllers.ListSchedules)
		schedules.POST("/", auth, controllers.CreateSchedule)
		schedules.DELETE("/bulk_delete/", auth, controllers.BulkDeleteSchedules)
		schedules.DELETE("/:id", auth, controllers.DeleteSchedule)
	}

	//booking routes
	bookings := api.Group("/bookings")
	{
		bookings.GET("/taken_slots/", controllers.TakenSlots)
		bookings.GET("/", auth, controllers.ListBookings)
		bookings.POST("/", auth, controllers.CreateBooking)
		bookings.GET("/:id", auth, controllers.GetBooking)
		bookings.POST("/:id/cancel/", auth, controllers.CancelBooking)
		bookings.POST("/:id/status/", auth, controllers.UpdateBookingStatus)
		bookings.GET("/:id/invoice", auth, controllers.BookingInvoice)
	}

	//payment routes
	payments := api.Group("/payments")
	{
		payments.POST("/notify/", controllers.PayFastNotify)
		payments.POST("/initiate/", auth, controllers.InitiatePayment)
		for _, path := range []string{"/membership/", "/create-membership/", "/create/", "/payfast/"} {
			payments.POST(path, auth, controllers.CreateMembershipPayment)
		}
		payments.GET("/transactions/", auth, controllers.ListTransactions)
		payments.GET("/transactions/export", auth, admin, controllers.ExportTransactions)
		payments.GET("/transactions/:id", auth, controllers.GetTransaction)
	}

	memberships := api.Group("/memberships")
	{
		memberships.GET("/plans/", controllers.ListPlans)
		memberships.GET("/", auth, admin, controllers.ListMemberships)
		memberships.GET("/me/", auth, controllers.MyMembership)
		memberships.POST("/cancel/", auth, controllers.CancelMembership)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("/", controllers.ListNotifications)
		notifications.GET("/unread_count/", controllers.UnreadCount)
		notifications.POST("/mark_all_read/", controllers.MarkAllNotificationsRead)
		notifications.POST("/:id/mark_read/", controllers.MarkNotificationRead)
		notifications.GET("/stream", controllers.StreamNotifications)
		notifications.POST("/devices/", controllers.RegisterDevice)
	}

	chat := api.Group("/chat/sessions", auth)
	{
		chat.GET("/", controllers.ListChatSessions)
		chat.POST("/", controllers.CreateChatSession)
		chat.GET("/:id/messages/", controllers.ChatMessages)
		chat.POST("/:id/send_message/", controllers.SendChatMessage)
		chat.POST("/:id/end/", controllers.EndChatSession)
	}

	settings := api.Group("/system/settings", auth)
	{
		settings.GET("/", controllers.ListSettings)
		settings.POST("/", admin, controllers.SaveSetting)
		settings.DELETE("/:id", admin, controllers.DeleteSetting)
		settings.GET("/admin_stats/", admin, controllers.AdminStats)
		settings.GET("/analytics_dashboard/", admin, controllers.AnalyticsDashboard)
	}

	telecom := api.Group("/telecommunications")
	{
		telecom.POST("/call/", auth, controllers.MakeCall)
		telecom.POST("/voice/incoming/", controllers.IncomingCall)
		telecom.POST("/voice/connect/", controllers.ConnectCall)
	}

	return r
}
