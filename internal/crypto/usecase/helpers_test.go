package usecase

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

const oldKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func newKeyBytes() []byte {
	return bytes.Repeat([]byte{0x42}, cryptoDomain.KeySize)
}

// cipherFor returns a field cipher with key active, sharing nothing with the
// cipher under test.
func cipherFor(t *testing.T, key []byte) *cryptoService.FieldCipher {
	t.Helper()
	mk, err := cryptoDomain.NewMasterKey(key)
	require.NoError(t, err)
	kr := cryptoService.NewKeyring()
	kr.Activate(mk)
	d, err := cryptoService.NewKeyDeriver("", 0)
	require.NoError(t, err)
	return cryptoService.NewFieldCipher(kr, d, cryptoDomain.FailClosed, testLogger())
}

func mustEncrypt(t *testing.T, c *cryptoService.FieldCipher, plaintext, tenantID string) string {
	t.Helper()
	env, err := c.Encrypt(plaintext, tenantID)
	require.NoError(t, err)
	return env
}

// memRecordRepository is an in-memory RecordRepository keyed by table.
type memRecordRepository struct {
	mu     sync.Mutex
	tables map[string][]*piiDomain.Record

	listCalls []string
	onList    func(entity piiDomain.EntitySpec, afterID string) error
	onUpdate  func(entity piiDomain.EntitySpec, id string) error
}

func newMemRecordRepository() *memRecordRepository {
	return &memRecordRepository{tables: map[string][]*piiDomain.Record{}}
}

func (m *memRecordRepository) add(table string, records ...*piiDomain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], records...)
	sort.Slice(m.tables[table], func(i, j int) bool {
		return m.tables[table][i].ID < m.tables[table][j].ID
	})
}

func (m *memRecordRepository) get(table, id string) *piiDomain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[table] {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memRecordRepository) ListBatch(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	afterID string,
	limit int,
) ([]*piiDomain.Record, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, entity.Table+":"+afterID)
	onList := m.onList
	m.mu.Unlock()

	if onList != nil {
		if err := onList(entity, afterID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*piiDomain.Record
	for _, r := range m.tables[entity.Table] {
		if afterID != "" && r.ID <= afterID {
			continue
		}
		fields := make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			fields[k] = v
		}
		out = append(out, &piiDomain.Record{ID: r.ID, TenantID: r.TenantID, Fields: fields})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRecordRepository) UpdateFields(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	id string,
	fields map[string]string,
) error {
	if m.onUpdate != nil {
		if err := m.onUpdate(entity, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[entity.Table] {
		if r.ID == id {
			for k, v := range fields {
				r.Fields[k] = v
			}
			return nil
		}
	}
	return nil
}

// fakeTxManager runs fn directly and counts transactions.
type fakeTxManager struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(ctx)
}

// mockRotationRunRepository is a mock implementation of RotationRunRepository.
type mockRotationRunRepository struct {
	mock.Mock
}

func (m *mockRotationRunRepository) Create(ctx context.Context, run *cryptoDomain.RotationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockRotationRunRepository) Update(ctx context.Context, run *cryptoDomain.RotationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockRotationRunRepository) ListRecent(ctx context.Context, limit int) ([]*cryptoDomain.RotationRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.RotationRun), args.Error(1)
}

// fakeSecrets is an in-memory SecretsReader.
type fakeSecrets map[string]string

func (f fakeSecrets) Get(ctx context.Context, name string) (string, bool) {
	v, ok := f[name]
	return v, ok && v != ""
}
