package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/handlers"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"github.com/yukikurage/crm-pipeline-api/internal/middleware"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"gorm.io/gorm"
)

// Options carries everything Setup needs besides the database.
type Options struct {
	SessionStore sessions.Store
	CORSOrigins  []string
	// Metrics may be nil; /metrics is then not mounted.
	Metrics   *metrics.Metrics
	AIService *services.AIService
	StaleDays int
}

// Setup wires repositories, services and handlers and mounts every route.
func Setup(db *gorm.DB, opts Options) *gin.Engine {
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	contactRepo := repository.NewContactRepository(db)
	dealRepo := repository.NewDealRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	taskRepo := repository.NewDealTaskRepository(db)

	authService := services.NewAuthService(userRepo)
	orgService := services.NewOrganizationService(orgRepo, invitationRepo, userRepo)
	companyService := services.NewCompanyService(companyRepo)
	contactService := services.NewContactService(contactRepo, companyRepo)
	dealService := services.NewDealService(dealRepo, orgRepo, contactRepo, companyRepo, opts.Metrics)
	activityService := services.NewActivityService(activityRepo, dealRepo)
	taskService := services.NewDealTaskService(taskRepo, dealRepo, opts.AIService)
	dashboardService := services.NewDashboardService(dealRepo, activityRepo, taskRepo, opts.StaleDays)

	authHandler := handlers.NewAuthHandler(authService, orgService)
	orgHandler := handlers.NewOrganizationHandler(orgService)
	companyHandler := handlers.NewCompanyHandler(companyService)
	contactHandler := handlers.NewContactHandler(contactService)
	dealHandler := handlers.NewDealHandler(dealService)
	activityHandler := handlers.NewActivityHandler(activityService)
	taskHandler := handlers.NewTaskHandler(taskService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	gate := authz.NewGate(orgRepo)
	m := opts.Metrics
	can := func(permission authz.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(gate, permission, m)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(m))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "CRM Pipeline API is running",
		})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), middleware.ResolveOrganization(), authHandler.GetCurrentUser)
		}

		protected := api.Group("", middleware.RequireAuth(), middleware.ResolveOrganization())

		orgs := protected.Group("/organizations")
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.POST("/join", orgHandler.JoinOrganization)
			orgs.POST("/:id/activate", orgHandler.ActivateOrganization)

			current := orgs.Group("/current")
			current.GET("", can(authz.PermDealView), orgHandler.GetCurrentOrganization)
			current.PUT("", can(authz.PermOrganizationEdit), orgHandler.UpdateCurrentOrganization)
			current.DELETE("", can(authz.PermOrganizationDelete), orgHandler.DeleteCurrentOrganization)
			current.POST("/regenerate-code", can(authz.PermMemberInvite), orgHandler.RegenerateInviteCode)
			current.GET("/invitations", can(authz.PermMemberInvite), orgHandler.ListInvitations)
			current.POST("/invitations", can(authz.PermMemberInvite), orgHandler.InviteUser)
			current.PATCH("/members/:user_id", can(authz.PermMemberEditRole), orgHandler.UpdateMember)
			current.DELETE("/members/:user_id", can(authz.PermMemberRemove), orgHandler.RemoveMember)
			current.POST("/members/remove", can(authz.PermMemberRemove), orgHandler.RemoveMembers)
		}

		protected.POST("/invitations/:token/accept", orgHandler.AcceptInvitation)

		companies := protected.Group("/companies")
		{
			companies.GET("", can(authz.PermDealView), companyHandler.ListCompanies)
			companies.POST("", can(authz.PermCompanyCreate), companyHandler.CreateCompany)
			companies.GET("/:id", can(authz.PermDealView), companyHandler.GetCompany)
			companies.PATCH("/:id", can(authz.PermCompanyEdit), companyHandler.UpdateCompany)
			companies.DELETE("/:id", can(authz.PermCompanyDelete), companyHandler.DeleteCompany)
		}

		contacts := protected.Group("/contacts")
		{
			contacts.GET("", can(authz.PermDealView), contactHandler.ListContacts)
			contacts.POST("", can(authz.PermContactCreate), contactHandler.CreateContact)
			contacts.GET("/:id", can(authz.PermDealView), contactHandler.GetContact)
			contacts.PATCH("/:id", can(authz.PermContactEdit), contactHandler.UpdateContact)
			contacts.DELETE("/:id", can(authz.PermContactDelete), contactHandler.DeleteContact)
		}

		deals := protected.Group("/deals")
		{
			deals.GET("/board", can(authz.PermDealView), dealHandler.GetBoard)
			deals.POST("", can(authz.PermDealCreate), dealHandler.CreateDeal)
			deals.GET("/:id", can(authz.PermDealView), dealHandler.GetDeal)
			deals.PATCH("/:id", can(authz.PermDealEdit), dealHandler.UpdateDeal)
			deals.DELETE("/:id", can(authz.PermDealDelete), dealHandler.DeleteDeal)
			deals.POST("/:id/stage", can(authz.PermDealEdit), dealHandler.UpdateDealStage)
			deals.POST("/:id/move", can(authz.PermDealEdit), dealHandler.MoveDeal)
			deals.GET("/:id/activities", can(authz.PermDealView), activityHandler.ListActivities)
			deals.POST("/:id/activities", can(authz.PermActivityCreate), activityHandler.CreateActivity)
			deals.POST("/:id/tasks", can(authz.PermTaskCreate), taskHandler.CreateTask)
			deals.POST("/:id/tasks/generate", can(authz.PermTaskCreate), taskHandler.GenerateTasks)
		}

		activities := protected.Group("/activities")
		{
			activities.PATCH("/:id", can(authz.PermActivityCreate), activityHandler.UpdateActivity)
			activities.DELETE("/:id", can(authz.PermActivityCreate), activityHandler.DeleteActivity)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", can(authz.PermDealView), taskHandler.ListTasks)
			tasks.GET("/:id", can(authz.PermDealView), taskHandler.GetTask)
			tasks.PATCH("/:id", can(authz.PermTaskEdit), taskHandler.UpdateTask)
			tasks.POST("/:id/toggle", can(authz.PermTaskEdit), taskHandler.ToggleTaskStatus)
			tasks.DELETE("/:id", can(authz.PermTaskDelete), taskHandler.DeleteTask)
		}

		protected.GET("/dashboard", can(authz.PermDashboardView), dashboardHandler.GetDashboard)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, constants.HeaderOrganizationID, constants.HeaderTraceID)
	cfg.ExposeHeaders = []string{constants.HeaderTraceID}
	return cfg
}
