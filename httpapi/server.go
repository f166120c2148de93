// Package httpapi exposes the till over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/angzarr-io/pos/catalog"
	"github.com/angzarr-io/pos/loyalty"
	"github.com/angzarr-io/pos/outbox"
	"github.com/angzarr-io/pos/pos"
	"github.com/angzarr-io/pos/storage"
	"github.com/angzarr-io/pos/terminal"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncEngine is the outbox surface exposed for sync control.
type SyncEngine interface {
	Online() bool
	SetOnline(ctx context.Context, online bool) (outbox.Stats, error)
	ProcessQueue(ctx context.Context) (outbox.Stats, error)
	Pending(ctx context.Context) ([]outbox.Request, error)
	DeadLetters(ctx context.Context) ([]outbox.Request, error)
}

// Server holds the dependencies of every handler.
type Server struct {
	till    *terminal.Terminal
	loyalty *loyalty.Service
	menu    storage.MenuRepository
	sync    SyncEngine
	auth    *Authenticator
	clock   pos.Clock
	logger  *zap.Logger
}

// Deps bundles what NewServer wires together. Sync may be nil and a nil
// Clock reads the wall clock.
type Deps struct {
	Terminal *terminal.Terminal
	Loyalty  *loyalty.Service
	Menu     storage.MenuRepository
	Sync     SyncEngine
	Auth     *Authenticator
	Clock    pos.Clock
	Logger   *zap.Logger
}

// NewServer creates the API server.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := d.Clock
	if clock == nil {
		clock = pos.SystemClock{}
	}
	return &Server{
		till:    d.Terminal,
		loyalty: d.Loyalty,
		menu:    d.Menu,
		sync:    d.Sync,
		auth:    d.Auth,
		clock:   clock,
		logger:  logger,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), recovery(s.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api/v1")
	api.GET("/health", s.health)
	api.POST("/auth/login", s.login)

	staff := api.Group("", s.auth.Middleware())
	till := api.Group("", s.auth.Middleware(RoleManager, RoleCashier))
	manager := api.Group("", s.auth.Middleware(RoleManager))

	staff.GET("/menu", s.listMenu)
	staff.GET("/menu/:id", s.getProduct)
	staff.POST("/menu/:id/resolve", s.resolveModifiers)
	manager.PUT("/menu/:id", s.saveProduct)

	till.GET("/state", s.getState)
	till.GET("/cart/totals", s.cartTotals)
	till.POST("/cart/items", s.addItem)
	till.PUT("/cart/items/:uid", s.updateItem)
	till.DELETE("/cart/items/:uid", s.removeItem)
	till.DELETE("/cart", s.clearCart)
	till.PUT("/cart/order-type", s.setOrderType)
	till.PUT("/cart/customer", s.setCustomer)
	till.PUT("/cart/tax", s.setTax)
	till.POST("/checkout", s.checkout)

	till.POST("/loyalty/login", s.loyaltyLogin)
	till.DELETE("/loyalty/login", s.loyaltyLogout)
	till.POST("/loyalty/enroll", s.enroll)
	till.GET("/loyalty/tiers", s.tiers)
	till.GET("/loyalty/customers/:id", s.customerProfile)
	till.GET("/loyalty/customers/:id/history", s.customerHistory)
	till.POST("/loyalty/customers/:id/lost", s.reportLost)
	manager.POST("/loyalty/customers/:id/adjust", s.adjust)
	till.POST("/loyalty/upgrade/confirm", s.confirmUpgrade)
	till.DELETE("/loyalty/upgrade", s.dismissUpgrade)

	staff.GET("/orders", s.listOrders)
	staff.POST("/orders/:id/status", s.updateStatus)
	till.POST("/orders/:id/move", s.moveOrder)
	till.POST("/orders/:id/edit", s.editOrder)
	till.DELETE("/orders/edit", s.cancelEdit)
	staff.GET("/orders/:id/packaging", s.orderPackaging)
	staff.POST("/packaging/estimate", s.estimatePackaging)
	staff.GET("/kitchen/summary", s.kitchenSummary)
	staff.GET("/kitchen/assembly", s.kitchenAssembly)

	staff.GET("/sync/status", s.syncStatus)
	manager.PUT("/sync/online", s.setOnline)
	manager.POST("/sync/drain", s.drain)

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// fail writes a command error with its mapped status. Anything else is
// logged and hidden behind a 500.
func (s *Server) fail(c *gin.Context, err error) {
	code := pos.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequest struct {
	StaffID string `json:"staffId"`
	PIN     string `json:"pin" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	staff, err := s.auth.Authenticate(req.StaffID, req.PIN)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid staff id or PIN"})
		return
	}
	token, expires, err := s.auth.Issue(staff)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.till.SetStaff(c.Request.Context(), staff.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires, "staff": staff})
}

func (s *Server) listMenu(c *gin.Context) {
	products, err := s.menu.GetProducts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) getProduct(c *gin.Context) {
	p, err := s.menu.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) saveProduct(c *gin.Context) {
	var p catalog.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	p.ID = c.Param("id")
	if err := s.menu.SaveProduct(c.Request.Context(), p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
