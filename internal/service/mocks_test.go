package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/notify"
	"github.com/exchango/backend/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAlertRepo for testing
type MockAlertRepo struct {
	mock.Mock
}

func (m *MockAlertRepo) Create(ctx context.Context, alert *model.Alert) error {
	args := m.Called(ctx, alert)
	if args.Error(0) == nil {
		alert.ID = uuid.New()
		alert.IsActive = true
	}
	return args.Error(0)
}

func (m *MockAlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alert), args.Error(1)
}

func (m *MockAlertRepo) ListByContact(ctx context.Context, contact string) ([]model.Alert, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

func (m *MockAlertRepo) Update(ctx context.Context, alert *model.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAlertRepo) FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

// MockDirectory for testing
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Currency), args.Error(1)
}

func (m *MockDirectory) GetCity(ctx context.Context, id uuid.UUID) (*model.City, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.City), args.Error(1)
}

func (m *MockDirectory) GetOffice(ctx context.Context, id uuid.UUID) (*model.Office, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Office), args.Error(1)
}

// MockRateRepo for testing
type MockRateRepo struct {
	mock.Mock
}

func (m *MockRateRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Rate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Rate), args.Error(1)
}

func (m *MockRateRepo) Update(ctx context.Context, rate *model.Rate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// MockPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event model.RateChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockNotifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, match Match, office *model.OfficeRef) error {
	args := m.Called(ctx, match, office)
	return args.Error(0)
}

// MockNotificationLogRepo for testing
type MockNotificationLogRepo struct {
	mock.Mock
}

func (m *MockNotificationLogRepo) Log(ctx context.Context, n *model.NotificationLog) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationLogRepo) MarkAttempt(ctx context.Context, id int64, status model.NotificationStatus, lastError *string) error {
	args := m.Called(ctx, id, status, lastError)
	return args.Error(0)
}

// fakeSender records deliveries and fails the first failures sends, or
// every send to an address listed in failFor. Sends to an address in hangFor
// block until the context is done.
type fakeSender struct {
	channel  string
	failures int
	failFor  map[string]error
	hangFor  map[string]bool
	sendErr  error

	mu    sync.Mutex
	sent  []string
	tries int
}

func (f *fakeSender) Channel() string { return f.channel }

func (f *fakeSender) Address(contact string) (string, error) {
	if contact == "" {
		return "", notify.ErrInvalidAddress
	}
	return contact, nil
}

func (f *fakeSender) Send(ctx context.Context, to, body string) error {
	if f.hangFor[to] {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tries++
	if err, ok := f.failFor[to]; ok {
		return err
	}
	if f.tries <= f.failures {
		return f.sendErr
	}
	f.sent = append(f.sent, to+"|"+body)
	return nil
}

func (f *fakeSender) deliveries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// staticRouter sends everything through one sender.
type staticRouter struct {
	sender notify.Sender
}

func (r staticRouter) Route(string) notify.Sender { return r.sender }

func (r staticRouter) Lookup(channel string) (notify.Sender, bool) {
	if channel == r.sender.Channel() {
		return r.sender, true
	}
	return nil, false
}

// memoryAlertStore applies the same matching rules as the SQL repository.
type memoryAlertStore struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]model.Alert
}

func newMemoryAlertStore(alerts ...model.Alert) *memoryAlertStore {
	s := &memoryAlertStore{alerts: make(map[uuid.UUID]model.Alert)}
	for _, a := range alerts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		s.alerts[a.ID] = a
	}
	return s
}

func (s *memoryAlertStore) Create(_ context.Context, alert *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = uuid.New()
	alert.IsActive = true
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *memoryAlertStore) GetByID(_ context.Context, id uuid.UUID) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	return &a, nil
}

func (s *memoryAlertStore) ListByContact(_ context.Context, contact string) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, a := range s.alerts {
		if a.RecipientContact == contact {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryAlertStore) Update(_ context.Context, alert *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return repository.ErrAlertNotFound
	}
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *memoryAlertStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return repository.ErrAlertNotFound
	}
	delete(s.alerts, id)
	return nil
}

func (s *memoryAlertStore) FindMatching(_ context.Context, q repository.MatchQuery) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, a := range s.alerts {
		if !a.IsActive || a.TriggerType != q.TriggerType {
			continue
		}
		if a.BaseCurrencyID != q.BaseCurrencyID || a.TargetCurrencyID != q.TargetCurrencyID {
			continue
		}
		if a.TargetCurrencyThreshold.GreaterThan(q.MinTargetRate) {
			continue
		}
		scope := a.CityIDs()
		if q.TriggerType == model.TriggerTypeOffice {
			scope = a.OfficeIDs()
		}
		for _, id := range scope {
			if id == q.ScopeID {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}
