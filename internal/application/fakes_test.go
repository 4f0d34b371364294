package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
)

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.OrderFulfillmentRequest
	saveErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*domain.OrderFulfillmentRequest)}
}

func (r *fakeRepo) barcodeOwner(barcode string) string {
	for id, o := range r.byID {
		for _, p := range o.Packages {
			if p.Barcode == barcode {
				return id
			}
		}
	}
	return ""
}

func (r *fakeRepo) checkBarcodes(ofr *domain.OrderFulfillmentRequest) error {
	for _, p := range ofr.Packages {
		if owner := r.barcodeOwner(p.Barcode); owner != "" && owner != ofr.FulfillmentID {
			return &domain.DuplicateKeyError{Field: "barcode", Value: p.Barcode}
		}
	}
	return nil
}

func (r *fakeRepo) Create(ctx context.Context, ofr *domain.OrderFulfillmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ofr.CheckInvariants(); err != nil {
		return err
	}
	if _, ok := r.byID[ofr.FulfillmentID]; ok {
		return &domain.DuplicateKeyError{Field: "fulfillmentId", Value: ofr.FulfillmentID}
	}
	if err := r.checkBarcodes(ofr); err != nil {
		return err
	}
	ofr.Version = 1
	ofr.ClearDomainEvents()
	r.byID[ofr.FulfillmentID] = ofr
	return nil
}

func (r *fakeRepo) Save(ctx context.Context, ofr *domain.OrderFulfillmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if err := ofr.CheckInvariants(); err != nil {
		return err
	}
	if _, ok := r.byID[ofr.FulfillmentID]; !ok {
		return domain.ErrFulfillmentNotFound
	}
	if err := r.checkBarcodes(ofr); err != nil {
		return err
	}
	ofr.Version++
	ofr.ClearDomainEvents()
	r.byID[ofr.FulfillmentID] = ofr
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*domain.OrderFulfillmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrFulfillmentNotFound
	}
	return o, nil
}

func (r *fakeRepo) sorted(match func(o *domain.OrderFulfillmentRequest) bool) []*domain.OrderFulfillmentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.OrderFulfillmentRequest
	for _, o := range r.byID {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FulfillmentID < out[j].FulfillmentID })
	return out
}

func (r *fakeRepo) List(ctx context.Context, f domain.ListFilter, page domain.Pagination) ([]*domain.OrderFulfillmentRequest, int64, error) {
	out := r.sorted(func(o *domain.OrderFulfillmentRequest) bool {
		return (f.AccountID == "" || o.AccountID == f.AccountID) && (f.Status == "" || o.Status() == f.Status)
	})
	return out, int64(len(out)), nil
}

func (r *fakeRepo) FindByStage(ctx context.Context, stage domain.Stage, q domain.StageQuery, page domain.Pagination) ([]*domain.OrderFulfillmentRequest, int64, error) {
	out := r.sorted(func(o *domain.OrderFulfillmentRequest) bool { return o.Stage() == stage })
	return out, int64(len(out)), nil
}

func (r *fakeRepo) CountByStage(ctx context.Context) (map[domain.Stage]int64, error) {
	counts := make(map[domain.Stage]int64)
	for _, o := range r.sorted(func(*domain.OrderFulfillmentRequest) bool { return true }) {
		counts[o.Stage()]++
	}
	return counts, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeInventory struct {
	mu               sync.Mutex
	buckets          map[string]*Bucket
	items            map[string]StorageItem
	allocations      map[string][]domain.LocationAllocation
	failDebit        map[string]error
	failConsume      error
	failTransactions bool
	debited          []string
	locationDebits   []LocationDebitRequest
	consumed         []string
	transactions     []TransactionRequest
	getBucketsCalls  int
}

func newFakeInventory(buckets ...Bucket) *fakeInventory {
	inv := &fakeInventory{
		buckets:     make(map[string]*Bucket),
		items:       make(map[string]StorageItem),
		allocations: make(map[string][]domain.LocationAllocation),
		failDebit:   make(map[string]error),
	}
	for i := range buckets {
		b := buckets[i]
		inv.buckets[b.BucketID] = &b
	}
	return inv
}

func (f *fakeInventory) AllocateLocations(ctx context.Context, req AllocationRequest) ([]domain.LocationAllocation, error) {
	return f.allocations[req.SKUID], nil
}

func (f *fakeInventory) GetBuckets(ctx context.Context, ids []string) ([]Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getBucketsCalls++
	var out []Bucket
	for _, id := range ids {
		if b, ok := f.buckets[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeInventory) apply(bucketID string, qty int) (*DebitResult, error) {
	if err := f.failDebit[bucketID]; err != nil {
		return nil, err
	}
	b := f.buckets[bucketID]
	before := b.AvailableQuantity
	b.AvailableQuantity -= qty
	f.debited = append(f.debited, bucketID)
	return &DebitResult{BucketID: bucketID, BeforeQuantity: before, AfterQuantity: b.AvailableQuantity}, nil
}

func (f *fakeInventory) DebitBucket(ctx context.Context, req DebitRequest) (*DebitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(req.BucketID, req.Quantity)
}

func (f *fakeInventory) DebitBucketLocations(ctx context.Context, req LocationDebitRequest) (*DebitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, l := range req.Breakdown {
		total += l.Quantity
	}
	res, err := f.apply(req.BucketID, total)
	if err == nil {
		f.locationDebits = append(f.locationDebits, req)
	}
	return res, err
}

func (f *fakeInventory) ConsumePackageBarcodes(ctx context.Context, barcodes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConsume != nil {
		return f.failConsume
	}
	f.consumed = append(f.consumed, barcodes...)
	return nil
}

func (f *fakeInventory) LookupStorageItems(ctx context.Context, barcodes []string) ([]StorageItem, error) {
	var out []StorageItem
	for _, b := range barcodes {
		if it, ok := f.items[b]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeInventory) CreateTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return "", errors.New("audit service unavailable")
	}
	f.transactions = append(f.transactions, req)
	return fmt.Sprintf("TX-%d", len(f.transactions)), nil
}

type fakeAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{counters: make(map[string]int64)}
}

func (a *fakeAllocator) Allocate(ctx context.Context, seq domain.Sequence) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.counters[seq.Name]++
	return seq.Format(a.counters[seq.Name]), nil
}

func (a *fakeAllocator) Current(ctx context.Context, name string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	return a.counters[name], nil
}

func (a *fakeAllocator) Reset(ctx context.Context, name string, value int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[name] = value
	return nil
}

type fakeProducts struct {
	skus []SKU
	err  error
}

func (p *fakeProducts) GetSKUs(ctx context.Context, ids, fields []string) ([]SKU, error) {
	return p.skus, p.err
}

type createdTask struct {
	kind    string
	payload TaskPayload
}

type fakeTasks struct {
	mu      sync.Mutex
	created []createdTask
	err     error
	getErr  map[string]error
}

func (t *fakeTasks) CreateTask(ctx context.Context, kind string, payload TaskPayload) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return "", t.err
	}
	t.created = append(t.created, createdTask{kind: kind, payload: payload})
	return fmt.Sprintf("TSK-%d", len(t.created)), nil
}

func (t *fakeTasks) GetTask(ctx context.Context, code string) (*Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.getErr[code]; err != nil {
		return nil, err
	}
	for i, c := range t.created {
		if fmt.Sprintf("TSK-%d", i+1) == code {
			return &Task{Code: code, Kind: c.kind, Status: "OPEN"}, nil
		}
	}
	return nil, fmt.Errorf("task %s not found", code)
}

func (t *fakeTasks) ofKind(kind string) int {
	n := 0
	for _, c := range t.created {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type fakeAccounts struct {
	names map[string]string
	err   error
}

func (a *fakeAccounts) GetAccountNames(ctx context.Context, ids []string) (map[string]string, error) {
	return a.names, a.err
}

type fakeShipping struct {
	err   error
	calls int
}

func (s *fakeShipping) CreateLabel(ctx context.Context, req LabelRequest) (*Label, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Label{AWBNumber: "AWB-" + req.FulfillmentID, TrackingNumber: "TRK-1", LabelURL: "https://labels.example/1.pdf"}, nil
}

type harness struct {
	svc      *FulfillmentService
	repo     *fakeRepo
	inv      *fakeInventory
	alloc    *fakeAllocator
	products *fakeProducts
	tasks    *fakeTasks
	accounts *fakeAccounts
	shipping *fakeShipping
}

func newHarness(buckets ...Bucket) *harness {
	h := &harness{
		repo:     newFakeRepo(),
		inv:      newFakeInventory(buckets...),
		alloc:    newFakeAllocator(),
		products: &fakeProducts{},
		tasks:    &fakeTasks{},
		accounts: &fakeAccounts{names: map[string]string{"ACC-1": "Acme Retail"}},
		shipping: &fakeShipping{},
	}
	h.svc = NewFulfillmentService(Dependencies{
		Repository: h.repo,
		Inventory:  h.inv,
		Products:   h.products,
		Tasks:      h.tasks,
		Accounts:   h.accounts,
		Shipping:   h.shipping,
		Allocator:  h.alloc,
		Logger:     logging.Nop(),
	})
	return h
}
