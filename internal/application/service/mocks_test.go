package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/infrastructure/storage"
	"github.com/sangkips/receipt-api/pkg/pagination"
)

type mockReceiptRepo struct{ mock.Mock }

func (m *mockReceiptRepo) CountByDateKey(ctx context.Context, ownerID uuid.UUID, dateKey string) (int64, error) {
	args := m.Called(ctx, ownerID, dateKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	return m.Called(ctx, receipt).Error(0)
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entity.Receipt, error) {
	args := m.Called(ctx, ownerID, id)
	r, _ := args.Get(0).(*entity.Receipt)
	return r, args.Error(1)
}

func (m *mockReceiptRepo) List(ctx context.Context, ownerID uuid.UUID, filter repository.ReceiptFilter, params pagination.Params) ([]entity.Receipt, int64, error) {
	args := m.Called(ctx, ownerID, filter, params)
	items, _ := args.Get(0).([]entity.Receipt)
	return items, args.Get(1).(int64), args.Error(2)
}

type mockSettingsProvider struct{ mock.Mock }

func (m *mockSettingsProvider) GetSettings(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error) {
	args := m.Called(ctx, ownerID)
	s, _ := args.Get(0).(*entity.OwnerSettings)
	return s, args.Error(1)
}

func (m *mockSettingsProvider) LoadImage(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) RenderReceipt(ctx context.Context, doc *receipting.Document) ([]byte, error) {
	args := m.Called(ctx, doc)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type mockSettingsRepo struct{ mock.Mock }

func (m *mockSettingsRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error) {
	args := m.Called(ctx, ownerID)
	s, _ := args.Get(0).(*entity.OwnerSettings)
	return s, args.Error(1)
}

func (m *mockSettingsRepo) Create(ctx context.Context, settings *entity.OwnerSettings) error {
	return m.Called(ctx, settings).Error(0)
}

func (m *mockSettingsRepo) Update(ctx context.Context, settings *entity.OwnerSettings) error {
	return m.Called(ctx, settings).Error(0)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

// memStore is an in-memory BlobStore that records deletions
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://files.example.com/" + key, nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStore) URL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?signed=1", nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

// memReceipts enforces the (owner, date key, no) uniqueness of the real table
type memReceipts struct {
	mu   sync.Mutex
	rows []entity.Receipt
}

func (r *memReceipts) CountByDateKey(_ context.Context, ownerID uuid.UUID, dateKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.OwnerID == ownerID && row.DateKey == dateKey {
			n++
		}
	}
	return n, nil
}

func (r *memReceipts) Create(_ context.Context, receipt *entity.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.OwnerID == receipt.OwnerID && row.DateKey == receipt.DateKey && row.No == receipt.No {
			return repository.ErrDuplicateSequence
		}
	}
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	r.rows = append(r.rows, *receipt)
	return nil
}

func (r *memReceipts) GetByID(_ context.Context, ownerID, id uuid.UUID) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.OwnerID == ownerID && row.ID == id {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memReceipts) List(_ context.Context, ownerID uuid.UUID, _ repository.ReceiptFilter, _ pagination.Params) ([]entity.Receipt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Receipt
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, int64(len(out)), nil
}

// stubRenderer returns a fixed PDF and records the numbers it rendered
type stubRenderer struct {
	mu  sync.Mutex
	nos []int
}

func (r *stubRenderer) RenderReceipt(_ context.Context, doc *receipting.Document) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nos = append(r.nos, doc.No)
	return []byte("%PDF-stub"), nil
}
