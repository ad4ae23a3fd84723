package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/interfaces/http/handler"
	"github.com/neuronek/backend/internal/interfaces/http/middleware"
)

// Permission codes checked by the API routes. Roles may grant them
// through wildcards such as "role:*".
const (
	PermAccountRead    = "account:read"
	PermRoleRead       = "role:read"
	PermRoleWrite      = "role:write"
	PermRoleAssign     = "role:assign"
	PermSubstanceWrite = "substance:write"
	PermSystemRead     = "system:read"
	PermSystemWrite    = "system:write"
)

// Handlers bundles the HTTP handlers mounted under the API prefix
type Handlers struct {
	Auth      *handler.AuthHandler
	Account   *handler.AccountHandler
	Role      *handler.RoleHandler
	Substance *handler.SubstanceHandler
	Effect    *handler.EffectHandler
	Journal   *handler.JournalHandler
	Outbox    *handler.OutboxHandler
	System    *handler.SystemHandler
}

// Guards holds the per-route middleware shared across groups. A nil
// AuthLimiter or Idempotency disables that guard.
type Guards struct {
	Permission  middleware.PermissionConfig
	AuthLimiter *middleware.RateLimiter
	Idempotency gin.HandlerFunc
}

func (g Guards) require(permission string) gin.HandlerFunc {
	return middleware.RequirePermissionWithConfig(permission, g.Permission)
}

// chain prepends the configured guards to a handler, skipping disabled ones
func chain(h gin.HandlerFunc, guards ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return append(out, h)
}

func (g Guards) authLimit() gin.HandlerFunc {
	if g.AuthLimiter == nil {
		return nil
	}
	return middleware.RateLimit(g.AuthLimiter)
}

// APIGroups builds the domain groups served under /api/<version>
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	return []*DomainGroup{
		authRoutes(h, g),
		accountRoutes(h, g),
		roleRoutes(h, g),
		substanceRoutes(h, g),
		effectRoutes(h, g),
		catalogueRoutes(h),
		journalRoutes(h, g),
		systemRoutes(h, g),
	}
}

func authRoutes(h Handlers, g Guards) *DomainGroup {
	dg := NewDomainGroup("auth", "/auth")
	dg.POST("/login", chain(h.Auth.Login, g.authLimit())...)
	dg.POST("/refresh", chain(h.Auth.Refresh, g.authLimit())...)
	dg.POST("/logout", h.Auth.Logout)
	dg.GET("/me", h.Auth.Me)
	return dg
}

func accountRoutes(h Handlers, g Guards) *DomainGroup {
	dg := NewDomainGroup("accounts", "/accounts")
	dg.POST("", chain(h.Account.Register, g.authLimit())...)
	dg.GET("", g.require(PermAccountRead), h.Account.List)
	dg.GET("/me", h.Account.GetMe)
	dg.PATCH("/me", h.Account.UpdateMe)
	dg.DELETE("/me", h.Account.DeleteMe)
	dg.PUT("/me/password", h.Account.ChangePassword)
	dg.GET("/me/subject", h.Account.GetSubject)
	dg.PUT("/me/subject", h.Account.PutSubject)
	dg.PUT("/:id/roles", g.require(PermRoleAssign), h.Account.AssignRoles)

	verification := dg.Group("verification", "/verification")
	verification.POST("/resend", chain(h.Account.ResendVerification, g.authLimit())...)
	verification.POST("/confirm", chain(h.Account.ConfirmVerification, g.authLimit())...)

	dg.POST("/recovery", chain(h.Account.RequestRecovery, g.authLimit())...)
	dg.POST("/recovery/reset", chain(h.Account.ResetPassword, g.authLimit())...)
	return dg
}

func roleRoutes(h Handlers, g Guards) *DomainGroup {
	dg := NewDomainGroup("roles", "/roles")
	dg.GET("", g.require(PermRoleRead), h.Role.List)
	dg.POST("", g.require(PermRoleWrite), h.Role.Create)
	dg.GET("/:id", g.require(PermRoleRead), h.Role.Get)
	dg.PUT("/:id", g.require(PermRoleWrite), h.Role.Update)
	dg.DELETE("/:id", g.require(PermRoleWrite), h.Role.Delete)
	dg.PUT("/:id/permissions", g.require(PermRoleWrite), h.Role.SetPermissions)
	return dg
}

func substanceRoutes(h Handlers, g Guards) *DomainGroup {
	write := g.require(PermSubstanceWrite)

	dg := NewDomainGroup("substances", "/substances")
	dg.GET("", h.Substance.List)
	dg.POST("", write, h.Substance.Create)
	dg.GET("/:idOrName", h.Substance.Get)
	dg.PUT("/:idOrName", write, h.Substance.Update)
	dg.DELETE("/:idOrName", write, h.Substance.Delete)
	dg.GET("/:idOrName/routes", h.Substance.ListSubstanceRoutes)
	dg.GET("/:idOrName/routes/:route", h.Substance.GetRoute)
	dg.POST("/:idOrName/classify", h.Substance.Classify)
	dg.GET("/:idOrName/effects", h.Effect.ListForSubstance)
	dg.PUT("/:idOrName/effects/:effect", write, h.Effect.Link)
	dg.DELETE("/:idOrName/effects/:effect", write, h.Effect.Unlink)
	return dg
}

func effectRoutes(h Handlers, g Guards) *DomainGroup {
	write := g.require(PermSubstanceWrite)

	dg := NewDomainGroup("effects", "/effects")
	dg.GET("", h.Effect.List)
	dg.POST("", write, h.Effect.Create)
	dg.GET("/:idOrSlug", h.Effect.Get)
	dg.PUT("/:idOrSlug", write, h.Effect.Update)
	dg.DELETE("/:idOrSlug", write, h.Effect.Delete)
	return dg
}

// catalogueRoutes lists routes of administration across all substances
func catalogueRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("routes", "/routes").GET("", h.Substance.ListRoutes)
}

func journalRoutes(h Handlers, g Guards) *DomainGroup {
	dg := NewDomainGroup("journal", "")

	ingestions := dg.Group("ingestions", "/ingestions")
	ingestions.POST("", chain(h.Journal.LogIngestion, g.Idempotency)...)
	ingestions.GET("", h.Journal.ListIngestions)
	ingestions.GET("/active", h.Journal.ActiveIngestions)
	ingestions.GET("/:id", h.Journal.GetIngestion)
	ingestions.PUT("/:id", h.Journal.UpdateIngestion)
	ingestions.DELETE("/:id", h.Journal.DeleteIngestion)
	ingestions.GET("/:id/analysis", h.Journal.AnalyzeIngestion)

	stashes := dg.Group("stashes", "/stashes")
	stashes.POST("", chain(h.Journal.CreateStash, g.Idempotency)...)
	stashes.GET("", h.Journal.ListStashes)
	stashes.GET("/:id", h.Journal.GetStash)
	stashes.PUT("/:id", h.Journal.UpdateStash)
	stashes.DELETE("/:id", h.Journal.DeleteStash)
	stashes.POST("/:id/deposit", chain(h.Journal.Deposit, g.Idempotency)...)

	dg.POST("/journal/export", h.Journal.Export)
	return dg
}

func systemRoutes(h Handlers, g Guards) *DomainGroup {
	dg := NewDomainGroup("system", "/system")
	dg.GET("/info", h.System.GetSystemInfo)
	dg.GET("/ping", h.System.Ping)

	outbox := dg.Group("outbox", "/outbox")
	outbox.GET("/stats", g.require(PermSystemRead), h.Outbox.Stats)
	outbox.GET("/dead", g.require(PermSystemRead), h.Outbox.ListDead)
	outbox.POST("/dead/retry", g.require(PermSystemWrite), h.Outbox.RetryAllDead)
	outbox.POST("/:id/retry", g.require(PermSystemWrite), h.Outbox.Retry)
	return dg
}

// RootRoutes mounts the unversioned operational endpoints. Metrics and Docs
// may be nil when the endpoint is disabled.
type RootRoutes struct {
	System  *handler.SystemHandler
	Metrics http.Handler
	Docs    gin.HandlerFunc
	DocsMW  gin.HandlerFunc
}

// RegisterRoutes implements RouteRegistrar against the engine root group
func (rr RootRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", rr.System.Health)
	rg.GET("/health/ready", rr.System.Ready)
	if rr.Metrics != nil {
		rg.GET("/metrics", gin.WrapH(rr.Metrics))
	}
	if rr.Docs != nil {
		rg.GET("/swagger/*any", chain(rr.Docs, rr.DocsMW)...)
	}
}
