package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// MemoryStore is an in-process reservation.Store.  Transactions are fully
// serialised and work on a copy of the state that is swapped in on
// commit, so it enforces the same night-level and provider-reference
// uniqueness as the MySQL schema.  It backs STORE_DRIVER=memory and the
// test suites.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type nightKey struct {
	propertyID uint64
	night      calendar.Date
}

type memState struct {
	properties   map[uint64]model.Property
	rules        []model.SeasonalRule
	bookings     map[uint64]model.Booking
	nights       map[nightKey]uint64
	customers    map[uint64]model.Customer
	transactions []model.Transaction
	nextID       uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		properties: map[uint64]model.Property{},
		bookings:   map[uint64]model.Booking{},
		nights:     map[nightKey]uint64{},
		customers:  map[uint64]model.Customer{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		properties:   make(map[uint64]model.Property, len(s.properties)),
		rules:        append([]model.SeasonalRule(nil), s.rules...),
		bookings:     make(map[uint64]model.Booking, len(s.bookings)),
		nights:       make(map[nightKey]uint64, len(s.nights)),
		customers:    make(map[uint64]model.Customer, len(s.customers)),
		transactions: append([]model.Transaction(nil), s.transactions...),
		nextID:       s.nextID,
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.nights {
		c.nights[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	return c
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

// AddProperty stores p, assigning an ID when p.ID is zero.
func (m *MemoryStore) AddProperty(p model.Property) model.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.state.id()
	} else if p.ID > m.state.nextID {
		m.state.nextID = p.ID
	}
	if p.Status == "" {
		p.Status = model.PropertyAvailable
	}
	m.state.properties[p.ID] = p
	return p
}

// AddSeasonalRule stores r, assigning an ID when r.ID is zero.
func (m *MemoryStore) AddSeasonalRule(r model.SeasonalRule) model.SeasonalRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.state.id()
	}
	m.state.rules = append(m.state.rules, r)
	return r
}

// Customer returns a copy of the stored customer.
func (m *MemoryStore) Customer(id uint64) (model.Customer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.customers[id]
	return c, ok
}

// Transactions returns a copy of every stored transaction.
func (m *MemoryStore) Transactions() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Transaction(nil), m.state.transactions...)
}

// Bookings returns a copy of every stored booking ordered by ID.
func (m *MemoryStore) Bookings() []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0, len(m.state.bookings))
	for _, b := range m.state.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithTx implements reservation.Store.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{s: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memTx struct {
	s *memState
}

func (t *memTx) GetProperty(_ context.Context, id uint64) (*model.Property, error) {
	p, ok := t.s.properties[id]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return &p, nil
}

// LockProperty is GetProperty: the store is already serialised.
func (t *memTx) LockProperty(ctx context.Context, id uint64) (*model.Property, error) {
	return t.GetProperty(ctx, id)
}

func (t *memTx) ActiveSeasonalRules(context.Context) ([]model.SeasonalRule, error) {
	out := make([]model.SeasonalRule, 0, len(t.s.rules))
	for _, r := range t.s.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) FindOverlappingBookings(_ context.Context, propertyID uint64, r calendar.Range, excludeID uint64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range t.s.bookings {
		if b.PropertyID != propertyID || b.ID == excludeID || b.Status == model.BookingCancelled {
			continue
		}
		if r.Overlaps(b.Range()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	for _, existing := range t.s.bookings {
		if existing.BookingNumber == b.BookingNumber {
			return domain.ErrDuplicateReference
		}
	}
	nights := b.Range().NightList()
	for _, n := range nights {
		if _, taken := t.s.nights[nightKey{b.PropertyID, n}]; taken {
			return domain.ErrDoubleBooked
		}
	}
	b.ID = t.s.id()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt
	for _, n := range nights {
		t.s.nights[nightKey{b.PropertyID, n}] = b.ID
	}
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) ReleaseNights(_ context.Context, bookingID uint64) error {
	for k, id := range t.s.nights {
		if id == bookingID {
			delete(t.s.nights, k)
		}
	}
	return nil
}

func (t *memTx) GetBooking(_ context.Context, id uint64, _ bool) (*model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) GetBookingByNumber(_ context.Context, number string) (*model.Booking, error) {
	for _, b := range t.s.bookings {
		if b.BookingNumber == number {
			return &b, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (t *memTx) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range t.s.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.PropertyID != 0 && b.PropertyID != f.PropertyID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset >= len(out) {
		return []model.Booking{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) ListStalePending(_ context.Context, createdBefore time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	for _, b := range t.s.bookings {
		if b.Status == model.BookingPending && b.PaymentStatus == model.PaymentPending && b.CreatedAt.Before(createdBefore) {
			ids = append(ids, b.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *model.Booking) error {
	if _, ok := t.s.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) GetCustomer(_ context.Context, id uint64) (*model.Customer, error) {
	c, ok := t.s.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (t *memTx) UpsertCustomer(_ context.Context, c *model.Customer) error {
	email := strings.ToLower(c.Email)
	for id, existing := range t.s.customers {
		if existing.Email == email {
			if c.FullName != "" {
				existing.FullName = c.FullName
			}
			if c.Phone != "" {
				existing.Phone = c.Phone
			}
			existing.UpdatedAt = time.Now().UTC()
			t.s.customers[id] = existing
			*c = existing
			return nil
		}
	}
	c.ID = t.s.id()
	c.Email = email
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	t.s.customers[c.ID] = *c
	return nil
}

func (t *memTx) AdjustCustomerTotals(_ context.Context, customerID uint64, bookings int, spent int64) error {
	c, ok := t.s.customers[customerID]
	if !ok {
		return ErrCustomerNotFound
	}
	c.TotalBookings += bookings
	c.TotalSpent += spent
	t.s.customers[customerID] = c
	return nil
}

func (t *memTx) FindTransactionByReference(_ context.Context, ref string) (*model.Transaction, error) {
	for _, tr := range t.s.transactions {
		if tr.ProviderReference != nil && *tr.ProviderReference == ref {
			found := tr
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *model.Transaction) error {
	if tr.ProviderReference != nil {
		for _, existing := range t.s.transactions {
			if existing.ProviderReference != nil && *existing.ProviderReference == *tr.ProviderReference {
				return domain.ErrDuplicateReference
			}
		}
	}
	tr.ID = t.s.id()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	t.s.transactions = append(t.s.transactions, *tr)
	return nil
}

func (t *memTx) ListTransactions(_ context.Context, bookingID uint64) ([]model.Transaction, error) {
	out := []model.Transaction{}
	for _, tr := range t.s.transactions {
		if tr.BookingID != nil && *tr.BookingID == bookingID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (t *memTx) PaymentTotals(_ context.Context, bookingID uint64) (int64, int64, error) {
	var income, refunded int64
	for _, tr := range t.s.transactions {
		if tr.BookingID == nil || *tr.BookingID != bookingID {
			continue
		}
		switch {
		case tr.Type == model.TransactionIncome:
			income += tr.Amount
		case tr.Type == model.TransactionExpense && tr.Category == model.CategoryRefund:
			refunded += tr.Amount
		}
	}
	return income, refunded, nil
}

var _ reservation.Store = (*MemoryStore)(nil)
