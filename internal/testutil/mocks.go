package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
)

// MockUserRepository is an in-memory user.Repository. Reads return copies so
// callers only observe changes that went through the repository.
type MockUserRepository struct {
	mu sync.Mutex

	Users map[string]*user.User

	CreateError            error
	GetError               error
	UpdateError            error
	UpdateEntitlementError error

	// EntitlementWrites counts successful UpdateEntitlement calls
	EntitlementWrites int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*user.User),
	}
}

// Seed stores u as-is, bypassing Create
func (m *MockUserRepository) Seed(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Plan == "" {
		u.Plan = user.PlanFree
	}
	m.Users[u.ID] = cloneUser(u)
}

// Snapshot returns a copy of the stored user or nil
func (m *MockUserRepository) Snapshot(id string) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil
	}
	return cloneUser(u)
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.Users[u.ID]; ok {
		return errors.Conflict("User already exists")
	}
	if u.Plan == "" {
		u.Plan = user.PlanFree
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.Users[u.ID] = cloneUser(u)
	return nil
}

func (m *MockUserRepository) Upsert(ctx context.Context, u *user.User) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	now := time.Now().UTC()
	existing, ok := m.Users[u.ID]
	if !ok {
		existing = &user.User{ID: u.ID, CreatedAt: now}
		existing.Plan = user.PlanFree
		m.Users[u.ID] = existing
	}
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.UpdatedAt = now
	return cloneUser(existing), nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return cloneUser(u), nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, u := range m.Users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, errors.NotFound("User")
}

func (m *MockUserRepository) GetByProcessorCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, u := range m.Users {
		if customerID != "" && u.CustomerID() == customerID {
			return cloneUser(u), nil
		}
	}
	return nil, errors.NotFound("User")
}

func (m *MockUserRepository) UpdateEntitlement(ctx context.Context, id string, patch user.EntitlementPatch) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateEntitlementError != nil {
		return nil, m.UpdateEntitlementError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	patch.Apply(&u.Entitlement)
	u.UpdatedAt = time.Now().UTC()
	m.EntitlementWrites++
	return cloneUser(u), nil
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	existing, ok := m.Users[u.ID]
	if !ok {
		return errors.NotFound("User")
	}
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[id]; !ok {
		return errors.NotFound("User")
	}
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	all := m.sorted(func(*user.User) bool { return true })
	return page(all, limit, offset), int64(len(all)), nil
}

func (m *MockUserRepository) ListWithProcessorCustomer(ctx context.Context, limit, offset int) ([]*user.User, error) {
	all := m.sorted(func(u *user.User) bool { return u.ProcessorCustomerID != nil })
	return page(all, limit, offset), nil
}

func (m *MockUserRepository) sorted(keep func(*user.User) bool) []*user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*user.User
	for _, u := range m.Users {
		if keep(u) {
			result = append(result, cloneUser(u))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneUser(u *user.User) *user.User {
	c := *u
	c.ProcessorCustomerID = clonePtr(u.ProcessorCustomerID)
	c.SubscriptionStatus = clonePtr(u.SubscriptionStatus)
	c.CurrentPeriodEnd = clonePtr(u.CurrentPeriodEnd)
	c.OneTimeAmount = clonePtr(u.OneTimeAmount)
	c.OneTimeGrantedAt = clonePtr(u.OneTimeGrantedAt)
	c.EventAt = clonePtr(u.EventAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MockGateway is a recording billing.Gateway
type MockGateway struct {
	mu sync.Mutex

	// Calls lists invoked operations in order
	Calls []string

	NextCustomerID string
	Customers      map[string]*billing.Customer
	Subscriptions  map[string][]billing.Subscription

	CreatedCustomers []billing.CustomerParams
	Checkouts        []billing.CheckoutParams
	PaymentIntents   []billing.PaymentIntentParams

	// Event is returned by ParseWebhook when ParseError is nil
	Event      billing.Event
	ParseError error

	CreateCustomerError   error
	RetrieveCustomerError error
	CheckoutError         error
	PaymentIntentError    error
	PortalError           error
	ListError             error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		NextCustomerID: "cus_new",
		Customers:      make(map[string]*billing.Customer),
		Subscriptions:  make(map[string][]billing.Subscription),
	}
}

func (g *MockGateway) record(op string) {
	g.Calls = append(g.Calls, op)
}

// CallCount returns how many gateway operations were invoked
func (g *MockGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

func (g *MockGateway) CreateCustomer(ctx context.Context, params billing.CustomerParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateCustomer")
	if g.CreateCustomerError != nil {
		return "", g.CreateCustomerError
	}
	g.CreatedCustomers = append(g.CreatedCustomers, params)
	g.Customers[g.NextCustomerID] = &billing.Customer{ID: g.NextCustomerID}
	return g.NextCustomerID, nil
}

func (g *MockGateway) RetrieveCustomer(ctx context.Context, id string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("RetrieveCustomer")
	if g.RetrieveCustomerError != nil {
		return nil, g.RetrieveCustomerError
	}
	c, ok := g.Customers[id]
	if !ok {
		return nil, billing.ErrCustomerNotFound
	}
	out := *c
	return &out, nil
}

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateCheckoutSession")
	if g.CheckoutError != nil {
		return nil, g.CheckoutError
	}
	g.Checkouts = append(g.Checkouts, params)
	return &billing.CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}

func (g *MockGateway) CreatePaymentIntent(ctx context.Context, params billing.PaymentIntentParams) (*billing.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreatePaymentIntent")
	if g.PaymentIntentError != nil {
		return nil, g.PaymentIntentError
	}
	g.PaymentIntents = append(g.PaymentIntents, params)
	return &billing.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (g *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*billing.PortalSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreatePortalSession")
	if g.PortalError != nil {
		return nil, g.PortalError
	}
	return &billing.PortalSession{URL: "https://billing.example/portal/" + customerID}, nil
}

func (g *MockGateway) ListSubscriptions(ctx context.Context, customerID, status string) ([]billing.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ListSubscriptions")
	if g.ListError != nil {
		return nil, g.ListError
	}
	var out []billing.Subscription
	for _, s := range g.Subscriptions[customerID] {
		if status == "" || status == "all" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (g *MockGateway) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ParseWebhook")
	if g.ParseError != nil {
		return nil, g.ParseError
	}
	return g.Event, nil
}

// MockEventLog is an in-memory billing.EventLog
type MockEventLog struct {
	mu      sync.Mutex
	Records map[string]*billing.EventRecord
	Err     error
}

func NewMockEventLog() *MockEventLog {
	return &MockEventLog{Records: make(map[string]*billing.EventRecord)}
}

func (l *MockEventLog) Record(ctx context.Context, rec *billing.EventRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	c := *rec
	l.Records[rec.EventID] = &c
	return nil
}

func (l *MockEventLog) Get(ctx context.Context, eventID string) (*billing.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.Records[eventID]
	if !ok {
		return nil, errors.NotFound("Billing event")
	}
	c := *rec
	return &c, nil
}

func (l *MockEventLog) List(ctx context.Context, limit, offset int) ([]*billing.EventRecord, error) {
	l.mu.Lock()
	var all []*billing.EventRecord
	for _, rec := range l.Records {
		c := *rec
		all = append(all, &c)
	}
	l.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ReceivedAt.After(all[j].ReceivedAt) })
	return page(all, limit, offset), nil
}

// MockArchiver records archived payloads
type MockArchiver struct {
	mu       sync.Mutex
	Payloads map[string][]byte
	Err      error
}

func NewMockArchiver() *MockArchiver {
	return &MockArchiver{Payloads: make(map[string][]byte)}
}

func (a *MockArchiver) Archive(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Payloads[eventID] = append([]byte(nil), payload...)
	return nil
}
