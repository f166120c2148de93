package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angzarr-io/pos/config"
	"github.com/angzarr-io/pos/loyalty"
	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/outbox"
	"github.com/angzarr-io/pos/pos"
	"github.com/angzarr-io/pos/storage"
	"github.com/angzarr-io/pos/terminal"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	till   *terminal.Terminal
	engine *outbox.Engine
	auth   *Authenticator
	clock  *pos.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	clock := &pos.FixedClock{T: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}

	menu := storage.NewMemoryMenu()
	_, err := storage.SeedMenu(ctx, menu)
	require.NoError(t, err)

	svc := loyalty.NewService(loyalty.NewMemoryStore(), loyaltylogic.DefaultLadder(), clock, logger)
	engine := outbox.NewEngine(storage.NewMemoryOrders(clock), outbox.NewMemoryQueue(), nil)
	till := terminal.New(terminal.Config{
		StoreID:    "store_test",
		TerminalID: "term_test",
		TaxRate:    decimal.RequireFromString("0.0825"),
	}, svc,
		terminal.WithSink(engine),
		terminal.WithClock(clock),
		terminal.WithLogger(logger),
		terminal.WithTaxEnabled(true),
	)

	auth, err := NewAuthenticator(config.DefaultStaff(), "test-secret", time.Hour, clock)
	require.NoError(t, err)

	srv := NewServer(Deps{
		Terminal: till,
		Loyalty:  svc,
		Menu:     menu,
		Sync:     engine,
		Auth:     auth,
		Clock:    clock,
		Logger:   logger,
	})
	return &fixture{router: srv.Router(), till: till, engine: engine, auth: auth, clock: clock}
}

func (f *fixture) token(t *testing.T, pin string) string {
	t.Helper()
	staff, err := f.auth.Authenticate("", pin)
	require.NoError(t, err)
	token, _, err := f.auth.Issue(staff)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func taco(tortilla, salsa string) gin.H {
	return gin.H{
		"productId": "t1",
		"selections": []gin.H{
			{"groupId": "mod_tortilla", "optionId": tortilla},
			{"groupId": "mod_salsa", "optionId": salsa},
		},
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"pin": "9999"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"staffId": "staff_001", "pin": "1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "pin belongs to another member")

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"pin": "1111"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
		Staff Staff  `json:"staff"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "staff_001", resp.Staff.ID)
	assert.Equal(t, "staff_001", f.till.Snapshot().StaffID)

	claims, err := f.auth.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleCashier, claims.Role)
}

func TestTokenExpiry(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "1111")

	_, err := f.auth.Verify(token)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.auth.Verify(token)
	assert.Error(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/state", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleChecks(t *testing.T) {
	f := newFixture(t)
	kitchen := f.token(t, "2222")
	cashier := f.token(t, "1111")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/menu", "", nil, http.StatusUnauthorized},
		{"kitchen reads menu", http.MethodGet, "/api/v1/menu", kitchen, nil, http.StatusOK},
		{"kitchen cannot ring up", http.MethodPost, "/api/v1/cart/items", kitchen, taco("corn", "roja"), http.StatusForbidden},
		{"cashier cannot edit menu", http.MethodPut, "/api/v1/menu/t1", cashier, gin.H{"name": "x"}, http.StatusForbidden},
		{"cashier cannot adjust", http.MethodPost, "/api/v1/loyalty/customers/c1/adjust", cashier, gin.H{"reason": "x"}, http.StatusForbidden},
		{"health is public", http.MethodGet, "/api/v1/health", "", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil)
	req.Header.Set("Authorization", cashier)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMenuRoutes(t *testing.T) {
	f := newFixture(t)
	manager := f.token(t, "1234")

	w := f.do(t, http.MethodGet, "/api/v1/menu", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Products []json.RawMessage `json:"products"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Products, 9)

	w = f.do(t, http.MethodGet, "/api/v1/menu/nope", manager, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/menu/codebs_burger/resolve", manager, gin.H{
		"selections": []gin.H{{"groupId": "mod_burger_seasoning", "optionId": "umami"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Selections []json.RawMessage `json:"selections"`
		Pruned     []json.RawMessage `json:"pruned"`
	}
	decode(t, w, &res)
	assert.Empty(t, res.Selections)
	assert.Len(t, res.Pruned, 1)
}

func TestCartAndCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cashier := f.token(t, "1111")

	w := f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, gin.H{"productId": "t1"})
	assert.Equal(t, http.StatusConflict, w.Code, "required groups unanswered")

	w = f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, gin.H{"productId": "zz"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, taco("flour", "roja"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var state terminal.State
	decode(t, w, &state)
	require.Len(t, state.Items, 1)
	assert.True(t, state.Items[0].FinalPrice.Equal(decimal.RequireFromString("5")))
	uid := state.Items[0].UniqueID

	w = f.do(t, http.MethodPut, "/api/v1/cart/items/"+uid, cashier, taco("corn", "verde"))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &state)
	assert.True(t, state.Items[0].FinalPrice.Equal(decimal.RequireFromString("4.5")))

	w = f.do(t, http.MethodGet, "/api/v1/cart/totals", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var totals struct {
		Due decimal.Decimal `json:"due"`
	}
	decode(t, w, &totals)
	assert.True(t, totals.Due.Equal(decimal.RequireFromString("4.87")), totals.Due.String())

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{"method": "Cash", "tenderedAmount": "4.00"})
	assert.Equal(t, http.StatusConflict, w.Code, "insufficient tender")

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{"method": "Bitcoin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{"method": "Cash", "tenderedAmount": "10.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result terminal.CheckoutResult
	decode(t, w, &result)
	assert.Equal(t, "101", result.Order.ID)
	assert.True(t, result.Order.AmountPaid.Equal(decimal.RequireFromString("4.87")))
	assert.Equal(t, order.PaymentPaid, result.Order.PaymentStatus)
	assert.Empty(t, f.till.Snapshot().Items)

	pending, err := f.engine.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "offline till queues the order")
}

func TestSplitCheckout(t *testing.T) {
	f := newFixture(t)
	cashier := f.token(t, "1111")

	w := f.do(t, http.MethodPut, "/api/v1/cart/tax", cashier, gin.H{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, taco("corn", "roja"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{
		"method":  "Split",
		"tenders": []gin.H{{"method": "Cash", "amount": "2.00"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{
		"method":  "Split",
		"tenders": []gin.H{{"method": "Cash", "amount": "-1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{
		"method": "Split",
		"tenders": []gin.H{
			{"method": "Cash", "amount": "2.00"},
			{"method": "Card"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result terminal.CheckoutResult
	decode(t, w, &result)
	assert.Equal(t, order.MethodSplit, result.Order.Method)
	require.Len(t, result.Order.Tenders, 2)
	assert.True(t, result.Order.Tenders[1].Amount.Equal(decimal.RequireFromString("2.50")),
		"a tender without an amount settles the rest: %s", result.Order.Tenders[1].Amount)
}

func TestOrderViews(t *testing.T) {
	f := newFixture(t)
	cashier := f.token(t, "1111")
	kitchen := f.token(t, "2222")

	w := f.do(t, http.MethodPost, "/api/v1/loyalty/enroll", cashier, gin.H{"name": "Ana", "phone": "555-0101", "cardCode": "ABCD1234"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/api/v1/loyalty/login", cashier, gin.H{"code": "ABCD1234"})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, taco("corn", "roja"))
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{"method": "Card", "confirmationNumber": "A1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	f.clock.Advance(30 * time.Second)
	w = f.do(t, http.MethodPost, "/api/v1/orders/101/status", kitchen, gin.H{"status": "Kitchen"})
	require.Equal(t, http.StatusOK, w.Code)
	f.clock.Advance(95 * time.Second)

	w = f.do(t, http.MethodGet, "/api/v1/orders", kitchen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lists struct {
		Active []struct {
			ID        string `json:"id"`
			VIPLabel  string `json:"vipLabel"`
			Elapsed   string `json:"elapsed"`
			CookTime  string `json:"cookTime"`
			TotalTime string `json:"totalTime"`
		} `json:"activeOrders"`
	}
	decode(t, w, &lists)
	require.Len(t, lists.Active, 1)
	got := lists.Active[0]
	assert.Equal(t, "101", got.ID)
	assert.Equal(t, "VIP-1", got.VIPLabel)
	assert.Equal(t, "2:05", got.Elapsed)
	assert.Equal(t, "1m 35s", got.CookTime)
	assert.Equal(t, "2m 5s", got.TotalTime)

	w = f.do(t, http.MethodGet, "/api/v1/kitchen/assembly", kitchen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assembly struct {
		Orders []struct {
			OrderID  string `json:"orderId"`
			VIPLabel string `json:"vipLabel"`
			Elapsed  string `json:"elapsed"`
		} `json:"orders"`
	}
	decode(t, w, &assembly)
	require.Len(t, assembly.Orders, 1)
	assert.Equal(t, "VIP-1", assembly.Orders[0].VIPLabel)
	assert.Equal(t, "1:35", assembly.Orders[0].Elapsed, "kitchen timer starts when cooking does")
}

func TestOrderRoutes(t *testing.T) {
	f := newFixture(t)
	cashier := f.token(t, "1111")
	kitchen := f.token(t, "2222")

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/cart/items", cashier, taco("corn", "roja"))
		require.Equal(t, http.StatusCreated, w.Code)
		w = f.do(t, http.MethodPost, "/api/v1/checkout", cashier, gin.H{"method": "Card", "confirmationNumber": "A1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		f.clock.Advance(time.Minute)
	}

	w := f.do(t, http.MethodPost, "/api/v1/orders/101/move", cashier, gin.H{"direction": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	var moved struct {
		ActiveOrders []order.SavedOrder `json:"activeOrders"`
	}
	decode(t, w, &moved)
	require.Len(t, moved.ActiveOrders, 2)
	assert.Equal(t, "101", moved.ActiveOrders[0].ID)

	w = f.do(t, http.MethodPost, "/api/v1/orders/101/move", cashier, gin.H{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orders/101/status", kitchen, gin.H{"status": "Kitchen"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated order.SavedOrder
	decode(t, w, &updated)
	assert.NotNil(t, updated.CookingStartedAt)

	w = f.do(t, http.MethodPost, "/api/v1/orders/101/status", kitchen, gin.H{"status": "Pending"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/orders/999/status", kitchen, gin.H{"status": "Ready"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/kitchen/summary", kitchen, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/kitchen/assembly", kitchen, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders/101/packaging", kitchen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pack struct {
		Success bool   `json:"success"`
		OrderID string `json:"orderId"`
	}
	decode(t, w, &pack)
	assert.Equal(t, "101", pack.OrderID)
	w = f.do(t, http.MethodGet, "/api/v1/orders/404/packaging", kitchen, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orders/102/edit", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/orders/101/edit", cashier, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "already editing")
	w = f.do(t, http.MethodDelete, "/api/v1/orders/edit", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/orders/edit", cashier, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orders/101/status", kitchen, gin.H{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/orders", kitchen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lists struct {
		Active    []order.SavedOrder `json:"activeOrders"`
		Completed []order.SavedOrder `json:"completedOrders"`
	}
	decode(t, w, &lists)
	assert.Len(t, lists.Active, 1)
	require.Len(t, lists.Completed, 1)
	assert.Equal(t, "101", lists.Completed[0].ID)
}

func TestLoyaltyRoutes(t *testing.T) {
	f := newFixture(t)
	cashier := f.token(t, "1111")
	manager := f.token(t, "1234")

	w := f.do(t, http.MethodPost, "/api/v1/loyalty/enroll", cashier, gin.H{"name": "Ana", "phone": "555-0101", "cardCode": "abcd1234"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var profile loyaltylogic.Profile
	decode(t, w, &profile)
	require.NotEmpty(t, profile.ID)

	w = f.do(t, http.MethodPost, "/api/v1/loyalty/enroll", cashier, gin.H{"name": "Bo", "phone": "555-0102", "cardCode": "ABCD1234"})
	assert.Equal(t, http.StatusConflict, w.Code, "card code taken")
	w = f.do(t, http.MethodPost, "/api/v1/loyalty/enroll", cashier, gin.H{"name": "Bo", "phone": "555-0102", "cardCode": "SHORT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/loyalty/login", cashier, gin.H{"code": "ZZZZ9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/loyalty/login", cashier, gin.H{"code": "abcd1234"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, f.till.Snapshot().LoyaltyProfile)
	w = f.do(t, http.MethodDelete, "/api/v1/loyalty/login", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.till.Snapshot().LoyaltyProfile)

	base := "/api/v1/loyalty/customers/" + profile.ID
	w = f.do(t, http.MethodPost, base+"/adjust", manager, gin.H{"points": "5", "punches": 1, "reason": "goodwill"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, base, cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Profile loyaltylogic.Profile `json:"profile"`
	}
	decode(t, w, &view)
	assert.True(t, view.Profile.CurrentPoints.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 1, view.Profile.TotalPunches)

	w = f.do(t, http.MethodGet, base+"/history", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Transactions []loyaltylogic.Transaction `json:"transactions"`
	}
	decode(t, w, &history)
	require.NotEmpty(t, history.Transactions)
	assert.Equal(t, loyaltylogic.TxAdjustment, history.Transactions[0].Type)

	w = f.do(t, http.MethodPost, base+"/lost", cashier, gin.H{"newCode": "WXYZ5678"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/api/v1/loyalty/login", cashier, gin.H{"code": "ABCD1234"})
	assert.Equal(t, http.StatusNotFound, w.Code, "lost card no longer signs in")

	w = f.do(t, http.MethodGet, "/api/v1/loyalty/customers/nobody", cashier, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/loyalty/upgrade/confirm", cashier, gin.H{"code": "NEWC0001"})
	assert.Equal(t, http.StatusConflict, w.Code, "no upgrade pending")

	w = f.do(t, http.MethodGet, "/api/v1/loyalty/tiers", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSyncRoutes(t *testing.T) {
	f := newFixture(t)
	manager := f.token(t, "1234")

	w := f.do(t, http.MethodGet, "/api/v1/sync/status", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Online  bool `json:"online"`
		Pending int  `json:"pending"`
	}
	decode(t, w, &status)
	assert.False(t, status.Online)
	assert.Zero(t, status.Pending)

	w = f.do(t, http.MethodPut, "/api/v1/sync/online", manager, gin.H{"online": true})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &status)
	assert.False(t, status.Online, "no remote configured")

	w = f.do(t, http.MethodPost, "/api/v1/sync/drain", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncRoutes_notConfigured(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(Deps{Terminal: f.till, Auth: f.auth})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "1234"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
