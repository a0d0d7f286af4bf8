package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeFeed_DeliversToCollectionSubscribers(t *testing.T) {
	feed := NewChangeFeed()
	ctx := context.Background()

	first, err := feed.Subscribe(CustomsCollection)
	require.NoError(t, err)
	defer first.Close()
	second, err := feed.Subscribe(CustomsCollection)
	require.NoError(t, err)
	defer second.Close()
	other, err := feed.Subscribe("invoices")
	require.NoError(t, err)
	defer other.Close()

	feed.Publish(ctx, ChangeEvent{Type: ChangeInsert, Collection: CustomsCollection, ID: "c1"})

	assert.Equal(t, "c1", receiveEvent(t, first).ID)
	assert.Equal(t, "c1", receiveEvent(t, second).ID)
	assert.Empty(t, other.Events())
}

func TestChangeFeed_SlowSubscriberDropsEvents(t *testing.T) {
	feed := NewChangeFeed()
	ctx := context.Background()

	sub, err := feed.Subscribe(CustomsCollection)
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < DefaultSubscriberBuffer+5; i++ {
		feed.Publish(ctx, ChangeEvent{Type: ChangeUpdate, Collection: CustomsCollection, ID: "c1"})
	}

	assert.Len(t, sub.Events(), DefaultSubscriberBuffer, "publishing must not block on a full subscriber")
}

func TestChangeFeed_CloseUnsubscribes(t *testing.T) {
	feed := NewChangeFeed()

	sub, err := feed.Subscribe(CustomsCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers(CustomsCollection))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, feed.Subscribers(CustomsCollection))

	feed.Publish(context.Background(), ChangeEvent{Type: ChangeDelete, Collection: CustomsCollection, ID: "c1"})
	assert.Empty(t, sub.Events())
}

func TestChangeFeed_RejectsEmptyCollection(t *testing.T) {
	feed := NewChangeFeed()

	_, err := feed.Subscribe("  ")
	assert.Error(t, err)

	var missing *ChangeFeed
	_, err = missing.Subscribe(CustomsCollection)
	assert.Error(t, err)
	assert.NotPanics(t, func() {
		missing.Publish(context.Background(), ChangeEvent{Collection: CustomsCollection})
	})
}

func TestChangeFeed_ResubscribeWhileLastSubscriberCloses(t *testing.T) {
	feed := NewChangeFeed()
	ctx := context.Background()

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				sub, err := feed.Subscribe(CustomsCollection)
				if err != nil {
					errs <- err
					return
				}
				id := fmt.Sprintf("w%d-%d", w, i)
				feed.Publish(ctx, ChangeEvent{Type: ChangeUpdate, Collection: CustomsCollection, ID: id})

				received := false
				timeout := time.After(time.Second)
				for !received {
					select {
					case event := <-sub.Events():
						received = event.ID == id
					case <-timeout:
						sub.Close()
						errs <- fmt.Errorf("subscriber %s never saw its own event", id)
						return
					}
				}
				sub.Close()
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, feed.Subscribers(CustomsCollection))
}
