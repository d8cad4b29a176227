package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/venuepulse/venuepulse/internal/domain/account"
	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
)

// MockIdentityRepository is a mock implementation of identity.Repository
type MockIdentityRepository struct {
	Users       map[int64]*identity.User
	EmailIndex  map[string]*identity.User
	StaffLinks  map[int64][]int64 // userID -> account IDs in link-creation order
	NextID      int64
	GetError    error
	CreateError error
	LinkError   error
}

func NewMockIdentityRepository() *MockIdentityRepository {
	return &MockIdentityRepository{
		Users:      make(map[int64]*identity.User),
		EmailIndex: make(map[string]*identity.User),
		StaffLinks: make(map[int64][]int64),
		NextID:     1,
	}
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockIdentityRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.EmailIndex[email]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockIdentityRepository) Create(ctx context.Context, u *identity.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.EmailIndex[u.Email]; ok {
		return errors.Conflict("Email already registered")
	}
	u.ID = m.NextID
	m.NextID++
	u.CreatedAt = time.Now()
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	return nil
}

func (m *MockIdentityRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	u, ok := m.Users[userID]
	if !ok {
		return errors.NotFound("User")
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (m *MockIdentityRepository) FirstStaffAccountLink(ctx context.Context, userID int64) (int64, error) {
	if m.LinkError != nil {
		return 0, m.LinkError
	}
	links := m.StaffLinks[userID]
	if len(links) == 0 {
		return 0, errors.NoAccountLinked(userID)
	}
	return links[0], nil
}

// AddUser stores a user under a fixed ID and returns it
func (m *MockIdentityRepository) AddUser(u *identity.User) *identity.User {
	if u.ID == 0 {
		u.ID = m.NextID
		m.NextID++
	} else if u.ID >= m.NextID {
		m.NextID = u.ID + 1
	}
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	return u
}

// MockAccountRepository is a mock implementation of account.Repository
type MockAccountRepository struct {
	Accounts map[int64]*account.Snapshot
	GetError error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int64]*account.Snapshot),
	}
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*account.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	snap, ok := m.Accounts[id]
	if !ok {
		return nil, errors.AccountNotFound(id)
	}
	// Return a copy so tests can mutate stored state between calls.
	cp := *snap
	return &cp, nil
}

func (m *MockAccountRepository) CountTrialsExpiringBefore(ctx context.Context, deadline time.Time) (int64, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	now := time.Now()
	var count int64
	ids := make([]int64, 0, len(m.Accounts))
	for id := range m.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		snap := m.Accounts[id]
		if snap.TrialEndsAt != nil && snap.TrialEndsAt.After(now) && !snap.TrialEndsAt.After(deadline) {
			count++
		}
	}
	return count, nil
}

// FakeCache is an in-memory decision cache for tests
type FakeCache struct {
	Entries  map[string][]byte
	TTLs     map[string]time.Duration
	GetError error
	SetError error
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		Entries: make(map[string][]byte),
		TTLs:    make(map[string]time.Duration),
	}
}

func (c *FakeCache) Get(ctx context.Context, key string, result any) (bool, error) {
	if c.GetError != nil {
		return false, c.GetError
	}
	data, ok := c.Entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false, err
	}
	return true, nil
}

func (c *FakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.SetError != nil {
		return c.SetError
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Entries[key] = data
	c.TTLs[key] = ttl
	return nil
}

func (c *FakeCache) Invalidate(ctx context.Context, key string) error {
	delete(c.Entries, key)
	delete(c.TTLs, key)
	return nil
}
