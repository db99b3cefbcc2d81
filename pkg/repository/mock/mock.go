package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
)

// Test helpers and mocks
type Mocks struct {
	AdminRepo   *AdminRepo
	BookingRepo *BookingRepo
	SessionRepo *SessionRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		AdminRepo:   &AdminRepo{},
		BookingRepo: &BookingRepo{},
		SessionRepo: &SessionRepo{Sessions: map[string]models.Session{}},
	}
}

type AdminRepo struct {
	mu        sync.Mutex
	Admins    []models.Admin
	CreateErr error
	GetErr    error
}

func (m *AdminRepo) CreateAdmin(ctx context.Context, a *models.Admin) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	id := int64(len(m.Admins) + 1)
	m.Admins = append(m.Admins, models.Admin{ID: id, Username: a.Username, PasswordHash: a.PasswordHash})
	return id, nil
}

func (m *AdminRepo) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, a := range m.Admins {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *AdminRepo) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, a := range m.Admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, nil
}

type BookingRepo struct {
	mu        sync.Mutex
	Bookings  []models.Booking
	CreateErr error
	ListErr   error
}

func (m *BookingRepo) CreateBooking(ctx context.Context, b *models.Booking) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	stored := *b
	stored.ID = int64(len(m.Bookings) + 1)
	if stored.Status == "" {
		stored.Status = models.StatusPending
	}
	m.Bookings = append(m.Bookings, stored)
	return stored.ID, nil
}

func (m *BookingRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Bookings {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *BookingRepo) UpdateBookingStatus(ctx context.Context, id int64, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Bookings {
		if m.Bookings[i].ID == id {
			m.Bookings[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *BookingRepo) ListRecentBookings(ctx context.Context, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := append([]models.Booking(nil), m.Bookings...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *BookingRepo) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]models.Booking(nil), m.Bookings...), nil
}

func (m *BookingRepo) BookingStats(ctx context.Context, dayStart, dayEnd time.Time) (models.BookingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return models.BookingStats{}, m.ListErr
	}
	var s models.BookingStats
	for _, b := range m.Bookings {
		s.Total++
		if !b.CreatedAt.Before(dayStart) && b.CreatedAt.Before(dayEnd) {
			s.Today++
		}
		if b.Status == models.StatusPending {
			s.Pending++
		}
	}
	return s, nil
}

type SessionRepo struct {
	mu        sync.Mutex
	Sessions  map[string]models.Session
	CreateErr error
}

func (m *SessionRepo) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Sessions[s.ID] = *s
	return nil
}

func (m *SessionRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *SessionRepo) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, id)
	return nil
}

func (m *SessionRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.Sessions {
		if s.Expired(now) {
			delete(m.Sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions.
func (m *SessionRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sessions)
}
