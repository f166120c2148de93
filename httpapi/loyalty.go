package httpapi

import (
	"net/http"

	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cardRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) loyaltyLogin(c *gin.Context) {
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	state, ok, err := s.till.LoginLoyalty(c.Request.Context(), req.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loyalty card not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) loyaltyLogout(c *gin.Context) {
	c.JSON(http.StatusOK, s.till.LogoutLoyalty(c.Request.Context()))
}

type enrollRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	CardCode string `json:"cardCode" binding:"required"`
}

func (s *Server) enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := s.loyalty.Enroll(c.Request.Context(), loyaltylogic.Enroll{
		Name:     req.Name,
		Phone:    req.Phone,
		CardCode: req.CardCode,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) tiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": s.loyalty.Ladder()})
}

func (s *Server) customerProfile(c *gin.Context) {
	profile, err := s.loyalty.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	upgrade, err := s.loyalty.CheckUpgrade(c.Request.Context(), profile.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	tier, _ := s.loyalty.Tier(profile)
	c.JSON(http.StatusOK, gin.H{"profile": profile, "tier": tier, "upgrade": upgrade})
}

func (s *Server) customerHistory(c *gin.Context) {
	txs, err := s.loyalty.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (s *Server) reportLost(c *gin.Context) {
	var req struct {
		NewCode string `json:"newCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := s.loyalty.ReportLost(c.Request.Context(), c.Param("id"), req.NewCode)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type adjustRequest struct {
	Points  decimal.Decimal `json:"points"`
	Punches int             `json:"punches"`
	Reason  string          `json:"reason" binding:"required"`
}

func (s *Server) adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	accrual, err := s.loyalty.Adjust(c.Request.Context(), c.Param("id"), req.Points, req.Punches, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accrual)
}

func (s *Server) confirmUpgrade(c *gin.Context) {
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	state, err := s.till.ConfirmUpgrade(c.Request.Context(), req.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) dismissUpgrade(c *gin.Context) {
	c.JSON(http.StatusOK, s.till.DismissUpgrade(c.Request.Context()))
}
