package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/models"
)

// Change types, named the way realtime feeds name them
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// DefaultSubscriberBuffer is the number of events a slow subscriber may lag behind before events are dropped for it
const DefaultSubscriberBuffer = 32

// ChangeEvent announces a committed write. Record is nil for deletes.
type ChangeEvent struct {
	Type        string         `json:"type"`
	Collection  string         `json:"collection"`
	ID          string         `json:"id"`
	Record      *models.Custom `json:"record,omitempty"`
	CommittedAt time.Time      `json:"committed_at"`
}

// ChangePublisher receives committed writes
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent)
}

// ChangeFeed fans change events out to subscribers of a collection.
// Publishing never blocks: a subscriber whose buffer is full misses the event
// and is expected to re-fetch.
type ChangeFeed struct {
	mu               sync.RWMutex
	streams          map[string]*changeStream
	subscriberBuffer int
}

type changeStream struct {
	mu     sync.Mutex
	subs   map[uint64]chan ChangeEvent
	nextID uint64
}

// Subscription is one listener on a collection
type Subscription struct {
	feed       *ChangeFeed
	collection string
	id         uint64
	ch         chan ChangeEvent
	once       sync.Once
}

var changeFeedInstance *ChangeFeed

// GetChangeFeed returns the feed served to stream clients
func GetChangeFeed() *ChangeFeed {
	return changeFeedInstance
}

// SetChangeFeed sets the feed served to stream clients
func SetChangeFeed(feed *ChangeFeed) {
	changeFeedInstance = feed
}

// NewChangeFeed creates an empty feed
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		streams:          make(map[string]*changeStream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers event to every current subscriber of its collection
func (f *ChangeFeed) Publish(_ context.Context, event ChangeEvent) {
	if f == nil {
		return
	}
	collection := strings.TrimSpace(event.Collection)
	if collection == "" {
		return
	}
	f.mu.RLock()
	stream := f.streams[collection]
	f.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	subs := make([]chan ChangeEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe starts listening on a collection. Close the subscription when done.
func (f *ChangeFeed) Subscribe(collection string) (*Subscription, error) {
	if f == nil {
		return nil, errors.New("change feed unavailable")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, errors.New("collection is required")
	}

	// the stream must still be in f.streams when the subscriber joins it
	f.mu.Lock()
	stream := f.streams[collection]
	if stream == nil {
		stream = &changeStream{subs: make(map[uint64]chan ChangeEvent)}
		f.streams[collection] = stream
	}
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	ch := make(chan ChangeEvent, f.subscriberBuffer)
	stream.subs[id] = ch
	stream.mu.Unlock()
	f.mu.Unlock()

	return &Subscription{feed: f, collection: collection, id: id, ch: ch}, nil
}

// Subscribers returns the number of open subscriptions on a collection
func (f *ChangeFeed) Subscribers(collection string) int {
	f.mu.RLock()
	stream := f.streams[collection]
	f.mu.RUnlock()
	if stream == nil {
		return 0
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs)
}

func (f *ChangeFeed) unsubscribe(collection string, id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream := f.streams[collection]
	if stream == nil {
		return
	}
	stream.mu.Lock()
	delete(stream.subs, id)
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(f.streams, collection)
	}
}

// Events returns the channel events arrive on
func (s *Subscription) Events() <-chan ChangeEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close stops the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.feed == nil {
		return
	}
	s.once.Do(func() {
		s.feed.unsubscribe(s.collection, s.id)
	})
}
