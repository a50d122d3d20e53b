package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a movable clock shared by the service under test and the
// fixtures that pre-date state.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSlotStore struct {
	mu    sync.Mutex
	lease *domain.SlotLease
	ttl   time.Duration
}

func (s *fakeSlotStore) Acquire(_ context.Context, lease domain.SlotLease, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease != nil {
		return false, nil
	}
	l := lease
	s.lease = &l
	s.ttl = ttl
	return true, nil
}

func (s *fakeSlotStore) Current(context.Context) (*domain.SlotLease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease == nil {
		return nil, nil
	}
	l := *s.lease
	return &l, nil
}

func (s *fakeSlotStore) Refresh(_ context.Context, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
	return nil
}

func (s *fakeSlotStore) Release(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lease = nil
	s.ttl = 0
	return nil
}

type fakeUsageStore struct {
	mu     sync.Mutex
	totals map[string]int64
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{totals: map[string]int64{}}
}

func (s *fakeUsageStore) Total(_ context.Context, identity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[identity], nil
}

func (s *fakeUsageStore) SetTotal(_ context.Context, identity string, seconds int64, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[identity] = seconds
	return nil
}

type fakeSessionStore struct {
	mu     sync.Mutex
	starts map[string]time.Time
	live   bool
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{starts: map[string]time.Time{}}
}

func (s *fakeSessionStore) SetStart(_ context.Context, identity string, start time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts[identity] = start
	return nil
}

func (s *fakeSessionStore) Start(_ context.Context, identity string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, ok := s.starts[identity]
	if !ok {
		return nil, nil
	}
	return &start, nil
}

func (s *fakeSessionStore) ClearStart(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starts, identity)
	return nil
}

func (s *fakeSessionStore) SetLive(_ context.Context, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = true
	return nil
}

func (s *fakeSessionStore) ClearLive(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = false
	return nil
}

func (s *fakeSessionStore) IsLive(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live, nil
}

type fakeSubscriptionStore struct {
	mu    sync.Mutex
	subs  map[string]domain.WebhookSubscription
	index map[domain.EventType][]string
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{
		subs:  map[string]domain.WebhookSubscription{},
		index: map[domain.EventType][]string{},
	}
}

func (s *fakeSubscriptionStore) Put(_ context.Context, sub domain.WebhookSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return nil
}

func (s *fakeSubscriptionStore) Get(_ context.Context, id string) (*domain.WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *fakeSubscriptionStore) All(context.Context) ([]domain.WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]domain.WebhookSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *fakeSubscriptionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	return nil
}

func (s *fakeSubscriptionStore) AddToIndex(_ context.Context, event domain.EventType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.index[event] {
		if existing == id {
			return nil
		}
	}
	s.index[event] = append(s.index[event], id)
	return nil
}

func (s *fakeSubscriptionStore) RemoveFromIndex(_ context.Context, event domain.EventType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.index[event][:0]
	for _, existing := range s.index[event] {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	s.index[event] = ids
	return nil
}

func (s *fakeSubscriptionStore) IDsFor(_ context.Context, event domain.EventType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.index[event]...), nil
}

type fakeDeliveryLog struct {
	mu      sync.Mutex
	records []domain.DeliveryRecord
}

func (s *fakeDeliveryLog) Append(_ context.Context, rec domain.DeliveryRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeDeliveryLog) Recent(_ context.Context, webhookID string, limit int) ([]domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.DeliveryRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].WebhookID == webhookID {
			matched = append(matched, s.records[i])
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeSender struct {
	mu        sync.Mutex
	delivered []deliveredEvent
	failFor   map[string]bool
}

type deliveredEvent struct {
	sub   domain.WebhookSubscription
	event domain.Event
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]bool{}}
}

func (f *fakeSender) Deliver(_ context.Context, sub domain.WebhookSubscription, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, deliveredEvent{sub: sub, event: event})
	if f.failFor[sub.ID] {
		return fmt.Errorf("%w: HTTP 500", domain.ErrDeliveryFailed)
	}
	return nil
}

type fakeControl struct {
	mu      sync.Mutex
	stopped int
	err     error
}

func (c *fakeControl) StopLive(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return c.err
}

func (c *fakeControl) stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// fakeCodec hands out opaque tokens backed by an in-memory claim table,
// plus two fixed tokens exercising the credential failure paths.
type fakeCodec struct {
	mu     sync.Mutex
	clock  *testClock
	seq    int
	issued map[string]domain.LivestreamClaims
}

const (
	expiredToken = "expired-token"
	garbageToken = "garbage-token"
)

func newFakeCodec(clock *testClock) *fakeCodec {
	return &fakeCodec{clock: clock, issued: map[string]domain.LivestreamClaims{}}
}

func (c *fakeCodec) IssueLivestream(identity string, quotaSeconds int64, validity time.Duration, showName string, minRecordingDuration int) (string, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if identity == "" {
		identity = fmt.Sprintf("minted-%d", c.seq)
	}
	if minRecordingDuration <= 0 {
		minRecordingDuration = domain.DefaultMinRecordingDuration
	}
	token := fmt.Sprintf("token-%d", c.seq)
	expiresAt := c.clock.Now().Add(validity)
	c.issued[token] = domain.LivestreamClaims{
		Identity:             identity,
		QuotaSeconds:         quotaSeconds,
		ShowName:             showName,
		MinRecordingDuration: minRecordingDuration,
		ExpiresAt:            expiresAt,
	}
	return token, expiresAt, nil
}

func (c *fakeCodec) DecodeLivestream(token string) (*domain.LivestreamClaims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch token {
	case expiredToken:
		return nil, fmt.Errorf("%w: signature has expired", domain.ErrCredentialExpired)
	case garbageToken:
		return nil, fmt.Errorf("%w: malformed token", domain.ErrCredentialInvalid)
	}
	claims, ok := c.issued[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", domain.ErrCredentialInvalid)
	}
	return &claims, nil
}

func (c *fakeCodec) IssueTemporary(validity time.Duration) (string, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return fmt.Sprintf("temp-%d", c.seq), c.clock.Now().Add(validity), nil
}

func (c *fakeCodec) ValidateTemporary(token string) error {
	switch token {
	case "":
		return errors.New("empty token")
	case expiredToken:
		return fmt.Errorf("%w: signature has expired", domain.ErrCredentialExpired)
	case garbageToken:
		return fmt.Errorf("%w: malformed token", domain.ErrCredentialInvalid)
	}
	return nil
}

type fixture struct {
	clock      *testClock
	slots      *fakeSlotStore
	usage      *fakeUsageStore
	sessions   *fakeSessionStore
	subs       *fakeSubscriptionStore
	deliveries *fakeDeliveryLog
	publisher  *fakePublisher
	sender     *fakeSender
	control    *fakeControl
	codec      *fakeCodec
	service    *Service
}

func newFixture() *fixture {
	clock := newTestClock()
	f := &fixture{
		clock:      clock,
		slots:      &fakeSlotStore{},
		usage:      newFakeUsageStore(),
		sessions:   newFakeSessionStore(),
		subs:       newFakeSubscriptionStore(),
		deliveries: &fakeDeliveryLog{},
		publisher:  &fakePublisher{},
		sender:     newFakeSender(),
		control:    &fakeControl{},
		codec:      newFakeCodec(clock),
	}
	f.service = NewService(Dependencies{
		Slots:         f.slots,
		Usage:         f.usage,
		Sessions:      f.sessions,
		Subscriptions: f.subs,
		Deliveries:    f.deliveries,
		Publisher:     f.publisher,
		Sender:        f.sender,
		Codec:         f.codec,
		Control:       f.control,
	})
	f.service.nowFn = clock.Now
	return f
}

// issueToken mints a credential through the fixture codec with the common
// test context.
func (f *fixture) issueToken(identity string, quotaSeconds int64) string {
	token, _, err := f.codec.IssueLivestream(identity, quotaSeconds, time.Hour, "Morning Show", 120)
	if err != nil {
		panic(err)
	}
	return token
}
