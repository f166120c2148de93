package httpapi

import (
	"net/http"

	"github.com/angzarr-io/pos/catalog"
	checkout "github.com/angzarr-io/pos/checkout/logic"
	modifier "github.com/angzarr-io/pos/modifier/logic"
	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"github.com/angzarr-io/pos/terminal"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const ErrMsgTenderRejected = "Tender must use a known method and a positive amount"

type itemRequest struct {
	ProductID  string                     `json:"productId" binding:"required"`
	Selections []catalog.SelectedModifier `json:"selections"`
	Notes      string                     `json:"notes"`
}

func (s *Server) buildItem(c *gin.Context, uniqueID string) (catalog.OrderItem, bool) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return catalog.OrderItem{}, false
	}
	product, err := s.menu.GetProductByID(c.Request.Context(), req.ProductID)
	if err != nil {
		s.fail(c, err)
		return catalog.OrderItem{}, false
	}
	item, err := modifier.BuildItem(product, uniqueID, req.Selections)
	if err != nil {
		s.fail(c, err)
		return catalog.OrderItem{}, false
	}
	item.Notes = req.Notes
	return item, true
}

type resolveRequest struct {
	Selections []catalog.SelectedModifier `json:"selections"`
}

// resolveModifiers reports which groups are visible for a draft selection
// and which selections a prune would drop.
func (s *Server) resolveModifiers(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := s.menu.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	res := modifier.Resolve(product.ModifierGroups, req.Selections)
	c.JSON(http.StatusOK, gin.H{
		"visibleGroups": res.Visible,
		"selections":    res.Selections,
		"pruned":        res.Pruned,
	})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.till.Snapshot())
}

func (s *Server) cartTotals(c *gin.Context) {
	balance := s.till.Balance()
	c.JSON(http.StatusOK, gin.H{
		"totals":   s.till.Totals(),
		"due":      balance.Due(),
		"isRefund": balance.IsRefund(),
		"isZero":   balance.IsZero(),
	})
}

func (s *Server) addItem(c *gin.Context) {
	item, ok := s.buildItem(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, s.till.AddItem(c.Request.Context(), item))
}

func (s *Server) updateItem(c *gin.Context) {
	item, ok := s.buildItem(c, c.Param("uid"))
	if !ok {
		return
	}
	state, err := s.till.UpdateItem(c.Request.Context(), item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) removeItem(c *gin.Context) {
	state, err := s.till.RemoveItem(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) clearCart(c *gin.Context) {
	c.JSON(http.StatusOK, s.till.ClearOrder(c.Request.Context()))
}

func (s *Server) setOrderType(c *gin.Context) {
	var req struct {
		OrderType order.OrderType `json:"orderType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	state, err := s.till.SetOrderType(c.Request.Context(), req.OrderType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// setCustomer attaches a walk-in name. An empty name clears it.
func (s *Server) setCustomer(c *gin.Context) {
	var req terminal.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var customer *terminal.Customer
	if req.Name != "" {
		customer = &req
	}
	c.JSON(http.StatusOK, s.till.SetCustomer(c.Request.Context(), customer))
}

func (s *Server) setTax(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.till.SetTaxEnabled(c.Request.Context(), *req.Enabled))
}

// tenderRequest is one split tender. A missing amount settles whatever is
// left.
type tenderRequest struct {
	Method order.PaymentMethod `json:"method"`
	Amount *decimal.Decimal    `json:"amount"`
}

type checkoutRequest struct {
	Method             order.PaymentMethod `json:"method"`
	TenderedAmount     *decimal.Decimal    `json:"tenderedAmount"`
	TipAmount          *decimal.Decimal    `json:"tipAmount"`
	KeepChange         bool                `json:"keepChange"`
	ConfirmationNumber string              `json:"confirmationNumber"`
	Tenders            []tenderRequest     `json:"tenders"`
	IsLoyalty          bool                `json:"isLoyalty"`
}

// payment runs the checkout rules for the current balance. A settled
// balance needs no method at all.
func payment(balance checkout.Balance, req checkoutRequest) (order.Payment, error) {
	if balance.IsZero() && req.Method == "" {
		return checkout.ZeroBalance(), nil
	}
	if req.Method == order.MethodSplit {
		split := checkout.NewSplit(balance)
		for _, t := range req.Tenders {
			amount := split.Remainder()
			if t.Amount != nil {
				amount = *t.Amount
			}
			if !split.Add(t.Method, amount) {
				return order.Payment{}, pos.NewInvalidArgument(ErrMsgTenderRejected)
			}
		}
		return split.Finalize()
	}

	std, err := checkout.NewStandard(balance, req.Method)
	if err != nil {
		return order.Payment{}, err
	}
	if req.TenderedAmount != nil {
		if err := std.SetTendered(*req.TenderedAmount); err != nil {
			return order.Payment{}, err
		}
	}
	if req.TipAmount != nil {
		if err := std.SetTip(*req.TipAmount); err != nil {
			return order.Payment{}, err
		}
	}
	if req.KeepChange {
		std.ToggleKeepChange()
	}
	std.SetConfirmation(req.ConfirmationNumber)
	return std.Finalize()
}

func (s *Server) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	build := func(b checkout.Balance) (order.Payment, error) { return payment(b, req) }
	result, err := s.till.CheckoutWith(c.Request.Context(), build, req.IsLoyalty)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
