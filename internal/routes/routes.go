package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/controllers"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/services"
)

// Services is everything the HTTP layer dispatches to.
type Services struct {
	Auth        services.AuthService
	Admin       services.AdminService
	Accounts    services.AccountService
	Catalog     services.CatalogService
	Enrollments services.EnrollmentService
	Reviews     services.ReviewService
	Questions   services.QuestionService
	Interests   services.InterestService
	Banners     services.BannerService
	Contacts    services.ContactService
	Meetings    services.MeetingService
}

func SetupRoutes(app *fiber.App, svc Services) {
	requireUser := middleware.RequireUser(svc.Auth)
	requireAdmin := middleware.RequireAdmin(svc.Admin)
	optionalUser := middleware.OptionalUser(svc.Auth)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// User auth and profile routes
	authController := controllers.NewAuthController(svc.Auth)
	userController := controllers.NewUserController(svc.Accounts, svc.Catalog, svc.Enrollments)
	users := api.Group("/users")
	users.Post("/otp", authController.RequestOTP)
	users.Post("/verify-otp", authController.VerifyOTP)
	users.Post("/register", authController.Register)
	users.Post("/login", authController.Login)
	users.Post("/forgot-password", authController.ForgotPassword)
	users.Post("/reset-password", authController.ResetPassword)
	users.Post("/logout", requireUser, authController.Logout)
	users.Get("/me", requireUser, userController.GetMe)
	users.Put("/profile", requireUser, userController.UpdateProfile)
	users.Delete("/me", requireUser, userController.DeleteMe)
	users.Get("/favourites", requireUser, userController.GetFavourites)
	users.Get("/enrollments", requireUser, userController.GetEnrollments)
	users.Get("/enrollments/:courseId", requireUser, userController.GetEnrollment)
	users.Patch("/enrollments/:enrollmentId/lessons/:lessonId", requireUser, userController.CompleteLesson)

	// Course routes
	coursesController := controllers.NewCoursesController(svc.Catalog, svc.Enrollments, svc.Reviews)
	courses := api.Group("/courses", optionalUser)
	courses.Get("/", coursesController.GetCourses)
	courses.Get("/popular", coursesController.GetPopularCourses)
	courses.Get("/latest", coursesController.GetLatestCourses)
	courses.Get("/filter", coursesController.FilterCourses)
	courses.Get("/search", coursesController.SearchCourses)
	courses.Get("/online-lessons", coursesController.GetOnlineLessons)
	courses.Get("/:id", coursesController.GetCourse)
	courses.Get("/:id/lessons", coursesController.GetLessons)
	courses.Get("/:id/lessons/:lessonId", coursesController.GetLesson)
	courses.Post("/:id/favourite", requireUser, coursesController.ToggleFavourite)
	courses.Post("/:id/enroll", requireUser, coursesController.Enroll)
	courses.Delete("/:id/enroll", requireUser, coursesController.Unenroll)
	courses.Post("/:id/reviews", requireUser, coursesController.SubmitReview)

	// Public content
	contentController := controllers.NewContentController(svc.Interests, svc.Banners, svc.Contacts)
	questionController := controllers.NewQuestionController(svc.Questions)
	api.Get("/interests", contentController.GetInterests)
	api.Get("/interests/all", contentController.GetAllInterests)
	api.Get("/interests/:id", contentController.GetInterest)
	api.Get("/banners", contentController.GetBanners)
	api.Get("/banners/:id", contentController.GetBanner)
	api.Post("/contact", contentController.CreateContact)
	api.Get("/faqs", questionController.GetFAQs)

	// Community questions, open to users and admins
	questions := api.Group("/questions", middleware.RequireAny(svc.Auth, svc.Admin))
	questions.Get("/", questionController.GetQuestions)
	questions.Post("/", questionController.Create)
	questions.Post("/:id/answers", questionController.Answer)
	questions.Delete("/:id", questionController.Delete)
	questions.Delete("/:id/answers/:answerId", questionController.DeleteAnswer)

	// Admin routes
	adminController := controllers.NewAdminController(svc.Admin, svc.Accounts, svc.Reviews, svc.Meetings)
	courseAdminController := controllers.NewCourseAdminController(svc.Catalog)
	admin := api.Group("/admin")
	admin.Post("/register", adminController.Register)
	admin.Post("/login", adminController.Login)
	admin.Post("/logout", requireAdmin, adminController.Logout)
	admin.Get("/me", requireAdmin, adminController.GetMe)
	admin.Get("/reviews", requireAdmin, adminController.GetReviews)
	admin.Post("/meetings", requireAdmin, adminController.CreateMeeting)

	adminUsers := admin.Group("/users", requireAdmin)
	adminUsers.Get("/", adminController.GetUsers)
	adminUsers.Get("/:id", adminController.GetUser)
	adminUsers.Delete("/:id", adminController.DeleteUser)

	adminCourses := admin.Group("/courses", requireAdmin)
	adminCourses.Get("/", courseAdminController.GetCourses)
	adminCourses.Post("/", courseAdminController.CreateCourse)
	adminCourses.Put("/:id", courseAdminController.UpdateCourse)
	adminCourses.Delete("/:id", courseAdminController.DeleteCourse)
	adminCourses.Post("/:id/lessons", courseAdminController.AddLesson)
	adminCourses.Put("/:id/lessons/:lessonId", courseAdminController.UpdateLesson)
	adminCourses.Delete("/:id/lessons/:lessonId", courseAdminController.DeleteLesson)
	adminCourses.Patch("/:id/reviews/:reviewId", adminController.SetReviewApproval)

	adminInterests := admin.Group("/interests", requireAdmin)
	adminInterests.Get("/", contentController.GetInterests)
	adminInterests.Post("/", contentController.CreateInterest)
	adminInterests.Put("/:id", contentController.UpdateInterest)
	adminInterests.Delete("/:id", contentController.DeleteInterest)

	adminBanners := admin.Group("/banners", requireAdmin)
	adminBanners.Get("/", contentController.GetBanners)
	adminBanners.Post("/", contentController.CreateBanner)
	adminBanners.Put("/:id", contentController.UpdateBanner)
	adminBanners.Delete("/:id", contentController.DeleteBanner)

	adminContacts := admin.Group("/contacts", requireAdmin)
	adminContacts.Get("/", contentController.GetContacts)
	adminContacts.Delete("/:id", contentController.DeleteContact)

	adminQuestions := admin.Group("/questions", requireAdmin)
	adminQuestions.Get("/", questionController.GetAdminQuestions)
	adminQuestions.Post("/", questionController.Create)
	adminQuestions.Put("/:id", questionController.Update)
}
