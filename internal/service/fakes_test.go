package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/notification"
	"placarcerto-be/internal/repository/contract"
	"placarcerto-be/internal/repository/specification"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/pkg/paysuite"
	"placarcerto-be/pkg/plans"

	"github.com/google/uuid"
)

var errUniqueActive = errors.New("duplicate key value violates unique constraint \"uniq_active_subscription_per_user\"")

// memStore mimics the tables, including the reference and active-subscription unique indexes.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	subs     map[uuid.UUID]*entity.Subscription
	payments map[uuid.UUID]*entity.Payment

	// forced reference collisions left for PaymentRepository.Create
	referenceCollisions int
	failSubUpdate       error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*entity.User{},
		subs:     map[uuid.UUID]*entity.Subscription{},
		payments: map[uuid.UUID]*entity.Payment{},
	}
}

func (m *memStore) addUser(email string) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &entity.User{Id: uuid.New(), Email: email, Username: "user"}
	m.users[u.Id] = u
	return copyUser(u)
}

func (m *memStore) user(id uuid.UUID) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.users[id])
}

func (m *memStore) putSub(s *entity.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.Id] = copySub(s)
}

func (m *memStore) sub(id uuid.UUID) *entity.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySub(m.subs[id])
}

func (m *memStore) putPayment(p *entity.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.Id] = copyPayment(p)
}

func (m *memStore) paymentByRef(ref string) *entity.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionReference == ref {
			return copyPayment(p)
		}
	}
	return nil
}

func (m *memStore) counts() (subs, payments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs), len(m.payments)
}

func copyUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copySub(s *entity.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyPayment(p *entity.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.Metadata = make(map[string]interface{}, len(p.Metadata))
	for k, v := range p.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

type fakeFactory struct {
	store *memStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{store: f.store}
}

// fakeUoW applies writes immediately and undoes them on Rollback.
type fakeUoW struct {
	store *memStore
	inTx  bool
	undo  []func()
}

func (u *fakeUoW) Begin(ctx context.Context) error {
	if u.inTx {
		return errors.New("transaction already started")
	}
	u.inTx = true
	return nil
}

func (u *fakeUoW) Commit() error {
	if !u.inTx {
		return errors.New("no transaction to commit")
	}
	u.inTx = false
	u.undo = nil
	return nil
}

func (u *fakeUoW) Rollback() error {
	if !u.inTx {
		return nil
	}
	u.store.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.store.mu.Unlock()
	u.undo = nil
	u.inTx = false
	return nil
}

func (u *fakeUoW) record(fn func()) {
	if u.inTx {
		u.undo = append(u.undo, fn)
	}
}

func (u *fakeUoW) UserRepository() contract.UserRepository { return &fakeUserRepo{u} }
func (u *fakeUoW) SubscriptionRepository() contract.SubscriptionRepository {
	return &fakeSubRepo{u}
}
func (u *fakeUoW) PaymentRepository() contract.PaymentRepository { return &fakePaymentRepo{u} }

type fakeUserRepo struct{ u *fakeUoW }

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, usr := range st.users {
		ok := true
		for _, spec := range specs {
			if s, isID := spec.(specification.ByID); isID && s.ID != usr.Id {
				ok = false
			}
		}
		if ok {
			return copyUser(usr), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdatePremium(ctx context.Context, id uuid.UUID, isPremium bool, until *time.Time) error {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	usr, ok := st.users[id]
	if !ok {
		return nil
	}
	prev := copyUser(usr)
	usr.IsPremium = isPremium
	usr.PremiumUntil = until
	r.u.record(func() { st.users[id] = prev })
	return nil
}

type fakeSubRepo struct{ u *fakeUoW }

func (r *fakeSubRepo) checkUnique(s *entity.Subscription) error {
	if s.Status != entity.SubscriptionStatusActive || s.PlanSlug == plans.FreemiumSlug {
		return nil
	}
	for _, other := range r.u.store.subs {
		if other.Id != s.Id && other.UserId == s.UserId &&
			other.Status == entity.SubscriptionStatusActive && other.PlanSlug != plans.FreemiumSlug {
			return errUniqueActive
		}
	}
	return nil
}

func (r *fakeSubRepo) Create(ctx context.Context, s *entity.Subscription) error {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := r.checkUnique(s); err != nil {
		return err
	}
	st.subs[s.Id] = copySub(s)
	r.u.record(func() { delete(st.subs, s.Id) })
	return nil
}

func (r *fakeSubRepo) Update(ctx context.Context, s *entity.Subscription) error {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.failSubUpdate != nil {
		return st.failSubUpdate
	}
	if err := r.checkUnique(s); err != nil {
		return err
	}
	prev := st.subs[s.Id]
	st.subs[s.Id] = copySub(s)
	r.u.record(func() { st.subs[s.Id] = prev })
	return nil
}

func (r *fakeSubRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeSubRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()

	var res []*entity.Subscription
	for _, s := range st.subs {
		if matchSub(s, specs) {
			res = append(res, copySub(s))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok {
			key := subSortKey(o.Field)
			sort.SliceStable(res, func(i, j int) bool {
				if o.Desc {
					return key(res[j]).Before(key(res[i]))
				}
				return key(res[i]).Before(key(res[j]))
			})
		}
	}
	return paginate(res, specs), nil
}

func subSortKey(field string) func(s *entity.Subscription) time.Time {
	switch field {
	case "end_date":
		return func(s *entity.Subscription) time.Time {
			if s.EndDate == nil {
				return time.Time{}
			}
			return *s.EndDate
		}
	case "start_date":
		return func(s *entity.Subscription) time.Time { return s.StartDate }
	}
	return func(s *entity.Subscription) time.Time { return s.CreatedAt }
}

func matchSub(s *entity.Subscription, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			if s.Id != v.ID {
				return false
			}
		case specification.UserOwnedBy:
			if s.UserId != v.UserID {
				return false
			}
		case specification.ActiveAt:
			if !s.IsLive(v.Now) {
				return false
			}
		case specification.EndedBy:
			if s.Status != entity.SubscriptionStatusActive || s.EndDate == nil || s.EndDate.After(v.Now) {
				return false
			}
		case specification.ExcludePlan:
			if s.PlanSlug == v.Slug {
				return false
			}
		case specification.OrderBy, specification.Pagination, specification.ForUpdate:
		default:
			panic(fmt.Sprintf("fake subscription repo: unsupported specification %T", spec))
		}
	}
	return true
}

type fakePaymentRepo struct{ u *fakeUoW }

func (r *fakePaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.referenceCollisions > 0 {
		st.referenceCollisions--
		return contract.ErrDuplicateReference
	}
	for _, other := range st.payments {
		if other.TransactionReference == p.TransactionReference {
			return contract.ErrDuplicateReference
		}
	}
	st.payments[p.Id] = copyPayment(p)
	r.u.record(func() { delete(st.payments, p.Id) })
	return nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, p *entity.Payment) error {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.payments[p.Id]
	st.payments[p.Id] = copyPayment(p)
	r.u.record(func() { st.payments[p.Id] = prev })
	return nil
}

func (r *fakePaymentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakePaymentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	st := r.u.store
	st.mu.Lock()
	defer st.mu.Unlock()

	var res []*entity.Payment
	for _, p := range st.payments {
		if matchPayment(p, specs) {
			res = append(res, copyPayment(p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok && o.Desc {
			sort.SliceStable(res, func(i, j int) bool { return res[j].CreatedAt.Before(res[i].CreatedAt) })
		}
	}
	return paginate(res, specs), nil
}

func (r *fakePaymentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func matchPayment(p *entity.Payment, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			if p.Id != v.ID {
				return false
			}
		case specification.UserOwnedBy:
			if p.UserId != v.UserID {
				return false
			}
		case specification.ByReference:
			if p.TransactionReference != v.Reference {
				return false
			}
		case specification.ByStatus:
			if string(p.Status) != v.Status {
				return false
			}
		case specification.CreatedBefore:
			if !p.CreatedAt.Before(v.Time) {
				return false
			}
		case specification.OrderBy, specification.Pagination, specification.ForUpdate:
		default:
			panic(fmt.Sprintf("fake payment repo: unsupported specification %T", spec))
		}
	}
	return true
}

func paginate[T any](items []T, specs []specification.Specification) []T {
	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			if p.Offset >= len(items) {
				return nil
			}
			items = items[p.Offset:]
			if p.Limit > 0 && p.Limit < len(items) {
				items = items[:p.Limit]
			}
		}
	}
	return items
}

// fakeGateway stands in for the PaySuite client.
type fakeGateway struct {
	mu       sync.Mutex
	secret   string
	submit   func(req paysuite.PaymentRequest) (*paysuite.Checkout, error)
	status   func(id string) (*paysuite.StatusResult, error)
	submits  []paysuite.PaymentRequest
	statusQs []string
}

func (g *fakeGateway) Submit(ctx context.Context, req paysuite.PaymentRequest) (*paysuite.Checkout, error) {
	g.mu.Lock()
	g.submits = append(g.submits, req)
	g.mu.Unlock()
	if g.submit != nil {
		return g.submit(req)
	}
	return &paysuite.Checkout{
		ProviderId:  "ps_" + req.Reference,
		CheckoutURL: "https://paysuite.tech/checkout/" + req.Reference,
		Status:      "pending",
		Strategy:    "token",
		Raw:         map[string]interface{}{"status": "success"},
	}, nil
}

func (g *fakeGateway) CheckStatus(ctx context.Context, id string) (*paysuite.StatusResult, error) {
	g.mu.Lock()
	g.statusQs = append(g.statusQs, id)
	g.mu.Unlock()
	if g.status != nil {
		return g.status(id)
	}
	return &paysuite.StatusResult{Status: paysuite.StatusPending}, nil
}

func (g *fakeGateway) VerifySignature(body []byte, signature string) bool {
	return paysuite.Sign(g.secret, body) == signature
}

func (g *fakeGateway) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.submits)
}

func (g *fakeGateway) statusCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.statusQs)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *recordingNotifier) Send(ctx context.Context, msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var res []notification.Kind
	for _, m := range n.msgs {
		res = append(res, m.Kind)
	}
	return res
}
