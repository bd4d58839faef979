package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
	"github.com/ManuelReschke/GuildPay/internal/pkg/session"
)

const testWebhookSecret = "whsec_controller_test"

type stubProvider struct {
	exchErr error
}

func (p *stubProvider) AuthorizeURL(state, redirectURI string) string {
	return "https://connect.stripe.com/oauth/authorize?state=" + url.QueryEscape(state) + "&redirect_uri=" + url.QueryEscape(redirectURI)
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if p.exchErr != nil {
		return "", p.exchErr
	}
	return "acct_" + code, nil
}

func (p *stubProvider) CreateProduct(ctx context.Context, accountID, name string) (string, error) {
	return "prod_1", nil
}

func (p *stubProvider) CreateMonthlyPrice(ctx context.Context, accountID, productID string, unitAmount int64) (string, error) {
	return "price_1", nil
}

func (p *stubProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	return "https://checkout.stripe.com/c/pay/cs_test", nil
}

type memoryNonces struct {
	mu     sync.Mutex
	nonces map[string]string
}

func (m *memoryNonces) Remember(ctx context.Context, nonce, guildID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[nonce] = guildID
	return nil
}

func (m *memoryNonces) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nonces[nonce]
	delete(m.nonces, nonce)
	return ok, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	changes []billing.RoleChange
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, change billing.RoleChange) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.changes = append(d.changes, change)
	return nil
}

func (d *recordingDispatcher) all() []billing.RoleChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]billing.RoleChange(nil), d.changes...)
}

type testServer struct {
	app        *fiber.App
	db         *gorm.DB
	provider   *stubProvider
	service    *billing.Service
	dispatcher *recordingDispatcher
}

var testBillingOptions = billing.Options{
	PublicDomain:  "https://pay.example.com",
	DefaultRoleID: "role-default",
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	signer, err := billing.NewStateSigner("controller-test-secret-0123", 15*time.Minute)
	require.NoError(t, err)

	repo := billing.NewRepository(db)
	ts := &testServer{
		db:         db,
		provider:   &stubProvider{},
		dispatcher: &recordingDispatcher{},
	}
	ts.service = billing.NewService(repo, ts.provider, signer, &memoryNonces{nonces: map[string]string{}}, testBillingOptions)
	reconciler := billing.NewReconciler(repo, ts.dispatcher, testBillingOptions)

	session.NewStore(nil)
	oauth := NewOAuthController(ts.service)
	webhook := NewWebhookController(repo, reconciler, testWebhookSecret)

	app := fiber.New()
	app.Get("/", HandleIndex)
	app.Get("/connect", oauth.HandleConnect)
	app.Get("/oauth/callback", oauth.HandleCallback)
	app.Get("/checkout/success", HandleCheckoutSuccess)
	app.Get("/checkout/cancel", HandleCheckoutCancel)
	app.Post("/stripe/webhook", webhook.HandleStripeWebhook)
	ts.app = app
	return ts
}

// initiate starts an OAuth flow and returns the escaped state token.
func (ts *testServer) initiate(t *testing.T, guildID string) string {
	t.Helper()
	connectURL, err := ts.service.Initiate(context.Background(), guildID, "")
	require.NoError(t, err)
	u, err := url.Parse(connectURL)
	require.NoError(t, err)
	return url.QueryEscape(u.Query().Get("state"))
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (ts *testServer) get(t *testing.T, target string) (*http.Response, string) {
	t.Helper()
	return ts.do(t, newRequest(http.MethodGet, target, ""))
}

func newRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return httptest.NewRequest(method, target, r)
}
