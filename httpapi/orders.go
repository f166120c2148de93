package httpapi

import (
	"net/http"
	"time"

	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	order "github.com/angzarr-io/pos/order/logic"
	packaging "github.com/angzarr-io/pos/packaging/logic"
	"github.com/angzarr-io/pos/pos"
	"github.com/gin-gonic/gin"
)

// orderView is an order with the timers and badge the order screens show.
type orderView struct {
	order.SavedOrder
	VIPLabel  string `json:"vipLabel,omitempty"`
	Elapsed   string `json:"elapsed"`
	CookTime  string `json:"cookTime"`
	TotalTime string `json:"totalTime"`
}

func vipLabel(o order.SavedOrder) string {
	if o.LoyaltySnapshot == nil {
		return ""
	}
	return loyaltylogic.VIPLabel(o.LoyaltySnapshot.TierName)
}

func viewOrders(orders []order.SavedOrder, now time.Time) []orderView {
	out := make([]orderView, len(orders))
	for i, o := range orders {
		created := o.CreatedAt
		out[i] = orderView{
			SavedOrder: o,
			VIPLabel:   vipLabel(o),
			Elapsed:    order.FormatDuration(&created, now),
			CookTime:   order.FormatSecs(o.CookTime(now)),
			TotalTime:  order.FormatSecs(o.TotalTime(now)),
		}
	}
	return out
}

func (s *Server) listOrders(c *gin.Context) {
	state := s.till.Snapshot()
	now := s.clock.Now()
	c.JSON(http.StatusOK, gin.H{
		"activeOrders":    viewOrders(state.Active, now),
		"completedOrders": viewOrders(state.Completed, now),
		"editingOrder":    state.EditingOrder,
	})
}

func (s *Server) updateStatus(c *gin.Context) {
	var req struct {
		Status order.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := s.till.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) moveOrder(c *gin.Context) {
	var req struct {
		Direction order.Direction `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	state, err := s.till.MoveOrder(c.Request.Context(), c.Param("id"), req.Direction)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeOrders": state.Active})
}

func (s *Server) editOrder(c *gin.Context) {
	state, err := s.till.LoadOrderForEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) cancelEdit(c *gin.Context) {
	state, err := s.till.CancelEdit(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) orderPackaging(c *gin.Context) {
	o, ok := s.till.Snapshot().Find(c.Param("id"))
	if !ok {
		s.fail(c, pos.NewNotFoundf("%s: %s", order.ErrMsgOrderNotFound, c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, packaging.Estimate(packaging.RequestFor(o)))
}

// estimatePackaging answers for an arbitrary request. An invalid request
// yields success false rather than an HTTP error.
func (s *Server) estimatePackaging(c *gin.Context) {
	var req packaging.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, packaging.Estimate(&req))
}

func (s *Server) kitchenSummary(c *gin.Context) {
	c.JSON(http.StatusOK, order.Summarize(s.till.Snapshot().Active))
}

func (s *Server) kitchenAssembly(c *gin.Context) {
	active := s.till.Snapshot().Active
	now := s.clock.Now()
	out := make([]gin.H, 0, len(active))
	for _, o := range active {
		out = append(out, gin.H{
			"orderId":   o.ID,
			"status":    o.Status,
			"orderType": o.OrderType,
			"vipLabel":  vipLabel(o),
			"elapsed":   order.FormatDuration(o.CookingStartedAt, now),
			"bundles":   order.AssemblyBundles(o),
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}
