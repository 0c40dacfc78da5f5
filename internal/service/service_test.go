package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/secrets"
	"github.com/google/uuid"
)

// Fixed reference time used across the service tests.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func seededGenerator() *secrets.Generator {
	return secrets.NewGenerator(rand.New(rand.NewSource(42)))
}

// memPrincipalRepo is an in-memory PrincipalRepository. Reads hand out deep
// copies so uncommitted mutations never leak into the store, matching the
// row-snapshot semantics of the real repository.
type memPrincipalRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Principal
}

func newMemPrincipalRepo(ps ...*domain.Principal) *memPrincipalRepo {
	r := &memPrincipalRepo{byID: make(map[uuid.UUID]*domain.Principal)}
	for _, p := range ps {
		r.byID[p.ID] = clonePrincipal(p)
	}
	return r
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	c := *p
	if p.Email != nil {
		e := *p.Email
		c.Email = &e
	}
	if p.Human != nil {
		h := *p.Human
		c.Human = &h
	}
	if p.Service != nil {
		s := *p.Service
		c.Service = &s
	}
	if p.System != nil {
		s := *p.System
		c.System = &s
	}
	if p.Device != nil {
		d := *p.Device
		c.Device = &d
	}
	return &c
}

func (r *memPrincipalRepo) Create(_ context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clonePrincipal(p)
	return nil
}

func (r *memPrincipalRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	return clonePrincipal(p), nil
}

func (r *memPrincipalRepo) Update(_ context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return domain.ErrPrincipalNotFound
	}
	r.byID[p.ID] = clonePrincipal(p)
	return nil
}

func (r *memPrincipalRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrincipalRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Email != nil && *p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrincipalRepo) ExistsByServiceName(_ context.Context, serviceName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Service != nil && p.Service.ServiceName == serviceName {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrincipalRepo) ExistsBySystemIdentifier(_ context.Context, systemIdentifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.System != nil && p.System.SystemIdentifier == systemIdentifier {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrincipalRepo) ExistsByDeviceIdentifier(_ context.Context, deviceIdentifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Device != nil && p.Device.DeviceIdentifier == deviceIdentifier {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPrincipalRepo) FindInactiveByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Status == domain.PrincipalStatusInactive && p.Email != nil && *p.Email == email {
			return clonePrincipal(p), nil
		}
	}
	return nil, nil
}

func (r *memPrincipalRepo) List(_ context.Context, limit, offset int) ([]*domain.Principal, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Principal, 0, len(r.byID))
	for _, p := range r.byID {
		all = append(all, clonePrincipal(p))
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// memMembershipRepo is an in-memory MembershipRepository.
type memMembershipRepo struct {
	mu          sync.Mutex
	memberships []*domain.TenantMembership
}

func cloneMembership(m *domain.TenantMembership) *domain.TenantMembership {
	c := *m
	if m.ValidTo != nil {
		t := *m.ValidTo
		c.ValidTo = &t
	}
	return &c
}

func (r *memMembershipRepo) Create(_ context.Context, m *domain.TenantMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, cloneMembership(m))
	return nil
}

func (r *memMembershipRepo) Update(_ context.Context, m *domain.TenantMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.memberships {
		if existing.ID == m.ID {
			r.memberships[i] = cloneMembership(m)
			return nil
		}
	}
	return domain.ErrMembershipNotFound
}

func (r *memMembershipRepo) FindByPrincipalID(_ context.Context, principalID uuid.UUID, limit, offset int) ([]*domain.TenantMembership, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.TenantMembership
	for _, m := range r.memberships {
		if m.PrincipalID == principalID {
			matched = append(matched, cloneMembership(m))
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memMembershipRepo) FindByPrincipalIDAndTenantIDAndStatus(_ context.Context, principalID, tenantID uuid.UUID, status domain.MembershipStatus) (*domain.TenantMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.PrincipalID == principalID && m.TenantID == tenantID && m.Status == status {
			return cloneMembership(m), nil
		}
	}
	return nil, nil
}

func (r *memMembershipRepo) UpdateStatusByPrincipalID(_ context.Context, principalID uuid.UUID, from, to domain.MembershipStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.memberships {
		if m.PrincipalID == principalID && m.Status == from {
			m.Status = to
			count++
		}
	}
	return count, nil
}

// staticTenants answers tenant-existence checks from a fixed set.
type staticTenants map[uuid.UUID]bool

func (t staticTenants) Exists(_ context.Context, tenantID uuid.UUID) (bool, error) {
	return t[tenantID], nil
}

// passTx runs the function without a real transaction. The in-memory repos
// only persist on Create/Update, so an aborted function leaves no trace.
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeIdP records IdP calls and fails the ones configured to fail.
type fakeIdP struct {
	mu    sync.Mutex
	calls []string

	createUserErr   error
	updateUserErr   error
	deleteUserErr   error
	createClientErr error
	updateClientErr error
	deleteClientErr error
	regenerateErr   error
}

func (f *fakeIdP) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeIdP) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIdP) CreateUser(_ context.Context, username string, _ idp.UserAttributes) (string, error) {
	f.record("create_user:" + username)
	if f.createUserErr != nil {
		return "", f.createUserErr
	}
	return "idp-" + username, nil
}

func (f *fakeIdP) UpdateUser(_ context.Context, id string, attrs idp.UserAttributes) error {
	call := "update_user:" + id
	if attrs.Enabled != nil {
		call = fmt.Sprintf("%s:enabled=%t", call, *attrs.Enabled)
	}
	f.record(call)
	return f.updateUserErr
}

func (f *fakeIdP) DeleteUser(_ context.Context, id string) error {
	f.record("delete_user:" + id)
	return f.deleteUserErr
}

func (f *fakeIdP) CreateClient(_ context.Context, clientID string, _ []string) (string, error) {
	f.record("create_client:" + clientID)
	if f.createClientErr != nil {
		return "", f.createClientErr
	}
	return "secret-" + clientID, nil
}

func (f *fakeIdP) UpdateClient(_ context.Context, clientID string, enabled bool) error {
	f.record(fmt.Sprintf("update_client:%s:enabled=%t", clientID, enabled))
	return f.updateClientErr
}

func (f *fakeIdP) DeleteClient(_ context.Context, clientID string) error {
	f.record("delete_client:" + clientID)
	return f.deleteClientErr
}

func (f *fakeIdP) RegenerateClientSecret(_ context.Context, clientID string) (string, error) {
	f.record("regenerate_secret:" + clientID)
	if f.regenerateErr != nil {
		return "", f.regenerateErr
	}
	return "rotated-" + clientID, nil
}

// memPublisher records published events.
type memPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *memPublisher) Publish(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := payload.(domain.Event); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *memPublisher) published() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

func (p *memPublisher) last() *domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	e := p.events[len(p.events)-1]
	return &e
}
