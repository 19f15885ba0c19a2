package handler

import (
	"group-vault/internal/adapter/http/middleware"
	redisStore "group-vault/internal/adapter/storage/redis"
	"group-vault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	VaultSvc       ports.VaultService
	ApprovalSvc    ports.ApprovalService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	OpenAPISpec    []byte
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/swagger", SwaggerUI)
	r.GET("/swagger/spec", SwaggerSpec(deps.OpenAPISpec))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// Every API route needs a caller identity.
	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	if deps.AuditSvc != nil {
		v1.Use(middleware.AuditLog(deps.AuditSvc))
	}

	vaultHandler := NewVaultHandler(deps.VaultSvc, deps.ReportingSvc)
	memberHandler := NewMemberHandler(deps.VaultSvc)
	walletHandler := NewWalletHandler(deps.ApprovalSvc)
	approvalHandler := NewApprovalHandler(deps.ApprovalSvc)

	vaults := v1.Group("/vaults")
	{
		vaults.POST("", rl("write"), vaultHandler.Create)
		vaults.GET("", rl("read"), vaultHandler.List)
		vaults.GET("/:id", rl("read"), vaultHandler.Get)
		vaults.DELETE("/:id", rl("write"), vaultHandler.Delete)

		vaults.POST("/:id/deposits", rl("ledger"), vaultHandler.Deposit)
		vaults.POST("/:id/withdrawals", rl("ledger"), vaultHandler.Withdraw)
		vaults.GET("/:id/transactions", rl("read"), vaultHandler.ListTransactions)
		vaults.GET("/:id/stats", rl("read"), vaultHandler.GetStats)

		vaults.POST("/:id/members", rl("write"), memberHandler.Invite)
		vaults.POST("/:id/members/accept", rl("write"), memberHandler.Accept)
		vaults.PUT("/:id/members/:userId/role", rl("write"), memberHandler.ChangeRole)
		vaults.PUT("/:id/members/:userId/limits", rl("write"), memberHandler.UpdateLimits)
		vaults.DELETE("/:id/members/:userId", rl("write"), memberHandler.Remove)

		vaults.POST("/:id/wallets", rl("write"), walletHandler.Create)
	}

	wallets := v1.Group("/wallets")
	{
		wallets.GET("/:id", rl("read"), walletHandler.Get)
		wallets.POST("/:id/parties", rl("write"), walletHandler.AddParty)
		wallets.DELETE("/:id/parties/:partyId", rl("write"), walletHandler.DeactivateParty)
		wallets.POST("/:id/proposals", rl("proposals"), approvalHandler.Propose)
		wallets.GET("/:id/proposals", rl("read"), approvalHandler.List)
	}

	proposals := v1.Group("/proposals")
	{
		proposals.GET("/:id", rl("read"), approvalHandler.Get)
		proposals.POST("/:id/votes", rl("votes"), approvalHandler.Vote)
		proposals.POST("/:id/cancel", rl("votes"), approvalHandler.Cancel)
	}

	return r
}
