package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
)

type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]string
	exchErr   error
	productN  int
	priceN    int
	prices    []int64
	priceErr  error
	checkouts []CheckoutRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}}
}

func (p *fakeProvider) AuthorizeURL(state, redirectURI string) string {
	return fmt.Sprintf("https://connect.stripe.com/oauth/authorize?state=%s&redirect_uri=%s", state, redirectURI)
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exchErr != nil {
		return "", p.exchErr
	}
	if acct, ok := p.accounts[code]; ok {
		return acct, nil
	}
	return "acct_" + code, nil
}

func (p *fakeProvider) CreateProduct(ctx context.Context, accountID, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.productN++
	return fmt.Sprintf("prod_%d", p.productN), nil
}

func (p *fakeProvider) CreateMonthlyPrice(ctx context.Context, accountID, productID string, unitAmount int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.priceErr != nil {
		return "", p.priceErr
	}
	p.priceN++
	p.prices = append(p.prices, unitAmount)
	return fmt.Sprintf("price_%d", p.priceN), nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts = append(p.checkouts, req)
	return "https://checkout.stripe.com/c/pay/cs_test_" + req.SubscriberID, nil
}

type memoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]string
}

func newMemoryNonceStore() *memoryNonceStore {
	return &memoryNonceStore{nonces: map[string]string{}}
}

func (m *memoryNonceStore) Remember(ctx context.Context, nonce, guildID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nonces[nonce]; ok {
		return errors.New("collision")
	}
	m.nonces[nonce] = guildID
	return nil
}

func (m *memoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nonces[nonce]
	delete(m.nonces, nonce)
	return ok, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	changes []RoleChange
	err     error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, change RoleChange) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.changes = append(d.changes, change)
	return nil
}

func (d *recordingDispatcher) all() []RoleChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RoleChange(nil), d.changes...)
}

type testEnv struct {
	repo     Repository
	provider *fakeProvider
	nonces   *memoryNonceStore
	signer   *StateSigner
	service  *Service
}

var testOptions = Options{
	PublicDomain:   "https://pay.example.com/",
	DefaultGuildID: "",
	DefaultRoleID:  "role-default",
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, testOptions)
}

func newTestEnvWithOptions(t *testing.T, opts Options) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	signer, err := NewStateSigner("test-session-secret-0123456789", 15*time.Minute)
	require.NoError(t, err)

	env := &testEnv{
		repo:     NewRepository(db),
		provider: newFakeProvider(),
		nonces:   newMemoryNonceStore(),
		signer:   signer,
	}
	env.service = NewService(env.repo, env.provider, env.signer, env.nonces, opts)
	return env
}

// link runs a full OAuth round trip for guildID.
func (e *testEnv) link(t *testing.T, guildID, code string) {
	t.Helper()
	e.linkWithRole(t, guildID, code, "")
}

func (e *testEnv) linkWithRole(t *testing.T, guildID, code, roleID string) {
	t.Helper()
	connectURL, err := e.service.Initiate(context.Background(), guildID, roleID)
	require.NoError(t, err)
	_, err = e.service.Complete(context.Background(), code, stateFromConnectURL(t, connectURL))
	require.NoError(t, err)
}

func stateFromConnectURL(t *testing.T, connectURL string) string {
	t.Helper()
	const prefix = "https://pay.example.com/connect?state="
	require.Greater(t, len(connectURL), len(prefix))
	require.Equal(t, prefix, connectURL[:len(prefix)])
	return connectURL[len(prefix):]
}

func testEvent(t *testing.T, id, eventType, account string, object map[string]interface{}) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &stripe.Event{
		ID:      id,
		Type:    stripe.EventType(eventType),
		Account: account,
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}
