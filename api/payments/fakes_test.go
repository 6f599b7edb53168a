package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store with the same match window semantics as the
// Postgres implementation. failRows and failCommit inject faults.
type fakeStore struct {
	mu         sync.Mutex
	payments   []Payment
	nextID     int64
	failRows   map[string]error // customer name -> insert error
	failCommit error
	findErr    error
}

func newFakeStore(existing ...Payment) *fakeStore {
	s := &fakeStore{failRows: map[string]error{}}
	for _, p := range existing {
		s.nextID++
		p.ID = s.nextID
		s.payments = append(s.payments, p)
	}
	return s
}

func (s *fakeStore) FindNearMatches(ctx context.Context, p Payment, windowDays int, tolerance float64) ([]Payment, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if p.PaymentDate == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	band := p.PaidAmount.Abs().Mul(decimal.NewFromFloat(tolerance))
	var out []Payment
	for _, existing := range s.payments {
		if !strings.EqualFold(strings.TrimSpace(existing.CustomerName), strings.TrimSpace(p.CustomerName)) {
			continue
		}
		if !strings.EqualFold(existing.PaidCurrency, p.PaidCurrency) {
			continue
		}
		inDate, inOK := p.Date()
		exDate, exOK := existing.Date()
		if !inOK || !exOK {
			continue
		}
		diff := inDate.Sub(exDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Duration(windowDays)*24*time.Hour {
			continue
		}
		if p.PaidAmount.Sub(existing.PaidAmount).Abs().GreaterThan(band) {
			continue
		}
		out = append(out, existing)
	}
	return out, nil
}

type fakeTx struct {
	store    *fakeStore
	inserted []Payment
	done     bool
}

func (s *fakeStore) Begin(ctx context.Context) (ImportTx, error) {
	return &fakeTx{store: s}, nil
}

func (t *fakeTx) InsertPayment(ctx context.Context, p Payment) error {
	if err := t.store.failRows[p.CustomerName]; err != nil {
		return err
	}
	t.inserted = append(t.inserted, p)
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.store.failCommit != nil {
		return t.store.failCommit
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.inserted {
		t.store.nextID++
		p.ID = t.store.nextID
		t.store.payments = append(t.store.payments, p)
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.done = true
	t.inserted = nil
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, p Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.payments = append(s.payments, p)
	return p.ID, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, errors.New("not found")
}

func (s *fakeStore) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Payment
	for _, p := range s.payments {
		if filter.CustomerName != "" &&
			!strings.Contains(strings.ToLower(p.CustomerName), strings.ToLower(filter.CustomerName)) {
			continue
		}
		if filter.StartDate != "" && p.PaymentDate < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && p.PaymentDate > filter.EndDate {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == p.ID {
			s.payments[i] = p
			return nil
		}
	}
	return errors.New("not found")
}

func (s *fakeStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}
