package routes

import (
	"team-match-backend/internal/api/handlers"
	"team-match-backend/internal/auth"
	"team-match-backend/internal/cache"
	"team-match-backend/internal/config"
	"team-match-backend/internal/lock"
	"team-match-backend/internal/repository"
	"team-match-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services bundles the wired service layer so the caller can hand parts of
// it to the background job runner.
type Services struct {
	Roster    *service.RosterService
	Teams     *service.TeamService
	Users     *service.UserService
	Requests  *service.JoinRequestService
	Query     *service.QueryService
	Recommend *service.RecommendService
	Locks     lock.Service
}

// SetupRoutes wires repositories, services and handlers onto a gin engine
func SetupRoutes(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) (*gin.Engine, *Services) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	validate := validator.New()

	// Infrastructure
	store := cache.NewRedisStore(redisClient, cfg.CacheTTLJitter)
	locks := lock.NewRedisLockService(redisClient, cfg.LockLease)

	// Repositories
	teamRepo := repository.NewTeamRepository(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewJoinRequestRepository(db)

	// Services
	authService := auth.NewAuthService(cfg.JWTSecret, cfg.SessionTTL)
	rosterService := service.NewRosterService(teamRepo, userRepo, locks, store)
	teamService := service.NewTeamService(teamRepo, userRepo, rosterService, locks, store, validate, cfg.PasswordSalt, cfg.MaxTeamMembers)
	userService := service.NewUserService(userRepo, authService, validate, cfg.PasswordSalt)
	requestService := service.NewJoinRequestService(requestRepo, teamRepo, rosterService, locks, validate, cfg.RequestTTL, cfg.ReapplyCooldown)
	queryService := service.NewQueryService(teamRepo, userRepo, store, cfg.CacheTTL)
	recommendService := service.NewRecommendService(teamRepo, userRepo, store, cfg.CacheTTL, cfg.PinnedTTL)

	// Handlers
	authMiddleware := auth.NewAuthMiddleware(authService)
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	userHandler := handlers.NewUserHandler(userService, queryService, recommendService)
	teamHandler := handlers.NewTeamHandler(teamService, queryService, recommendService)
	requestHandler := handlers.NewJoinRequestHandler(requestService)

	// Health endpoints
	health := router.Group("/health")
	{
		health.GET("", healthHandler.Health)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/live", healthHandler.Live)
	}

	v1 := router.Group("/api/v1")

	// Authentication
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", userHandler.Register)
		authGroup.POST("/login", userHandler.Login)
	}

	// Users
	users := v1.Group("/users")
	users.Use(authMiddleware.RequireAuth())
	{
		users.GET("/me", userHandler.GetSelf)
		users.PATCH("/me", userHandler.UpdateProfile)
		users.GET("/match", userHandler.MatchUsers)
		users.GET("/search", userHandler.SearchUsers)
		users.GET("/tags", userHandler.SearchUsersByTags)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
	}

	// Team endpoints safe for anonymous access: the basic profile and the
	// caller's membership role, which reads as an outsider without a token.
	teamsPublic := v1.Group("/teams")
	teamsPublic.Use(authMiddleware.OptionalAuth())
	{
		teamsPublic.GET("/:id/basic", teamHandler.GetTeamBasic)
		teamsPublic.GET("/:id/role", teamHandler.GetMembershipRole)
	}

	// Teams
	teams := v1.Group("/teams")
	teams.Use(authMiddleware.RequireAuth())
	{
		teams.POST("", teamHandler.CreateTeam)
		teams.GET("", teamHandler.ListTeams)
		teams.GET("/mine", teamHandler.ListMyTeams)
		teams.GET("/search", teamHandler.SearchTeams)
		teams.GET("/hot", teamHandler.HotTeams)
		teams.GET("/new", teamHandler.NewTeams)
		teams.GET("/recommend", teamHandler.RecommendTeams)
		teams.GET("/:id", teamHandler.GetTeam)
		teams.GET("/:id/requests", requestHandler.ListByTeam)
		teams.PATCH("/:id", teamHandler.UpdateTeam)
		teams.DELETE("/:id", teamHandler.DisbandTeam)
		teams.POST("/:id/join", teamHandler.JoinTeam)
		teams.POST("/:id/quit", teamHandler.QuitTeam)
		teams.POST("/:id/kick/:userId", teamHandler.KickMember)
		teams.POST("/:id/transfer/:userId", teamHandler.TransferLeadership)
	}

	// Join requests
	requests := v1.Group("/requests")
	requests.Use(authMiddleware.RequireAuth())
	{
		requests.POST("/apply", requestHandler.Apply)
		requests.POST("/invite", requestHandler.Invite)
		requests.GET("/mine", requestHandler.ListMine)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/approve", requestHandler.Approve)
		requests.POST("/:id/reject", requestHandler.Reject)
		requests.POST("/:id/cancel", requestHandler.Cancel)
	}

	// Admin
	admin := v1.Group("/admin")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
	{
		admin.PUT("/users/:id/pinned", teamHandler.PinRecommendation)
		admin.DELETE("/users/:id/pinned", teamHandler.UnpinRecommendation)
	}

	services := &Services{
		Roster:    rosterService,
		Teams:     teamService,
		Users:     userService,
		Requests:  requestService,
		Query:     queryService,
		Recommend: recommendService,
		Locks:     locks,
	}
	return router, services
}
