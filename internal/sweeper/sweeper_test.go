package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// chunkedDeleter simulates a table holding pending rows: each call removes at
// most limit of them and records the batch size it was asked for.
type chunkedDeleter struct {
	pending int
	batches []int
	err     error
}

func (d *chunkedDeleter) delete(limit int) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.batches = append(d.batches, limit)
	n := d.pending
	if n > limit {
		n = limit
	}
	d.pending -= n
	return int64(n), nil
}

type fakeAuditStore struct{ chunkedDeleter }

func (f *fakeAuditStore) DeleteExpired(_ context.Context, _ time.Time, limit int) (int64, error) {
	return f.delete(limit)
}

type fakeBulkStore struct{ chunkedDeleter }

func (f *fakeBulkStore) DeleteClosedBefore(_ context.Context, _ time.Time, limit int) (int64, error) {
	return f.delete(limit)
}

type fakeFeedStore struct{ chunkedDeleter }

func (f *fakeFeedStore) TrimPerActor(_ context.Context, _, limit int) (int64, error) {
	return f.delete(limit)
}

type fakeRetentionStore struct {
	search        chunkedDeleter
	notifications chunkedDeleter
	analytics     chunkedDeleter
}

func (f *fakeRetentionStore) TrimSearchHistory(_ context.Context, _, limit int) (int64, error) {
	return f.search.delete(limit)
}

func (f *fakeRetentionStore) TrimNotificationExecutions(_ context.Context, _, limit int) (int64, error) {
	return f.notifications.delete(limit)
}

func (f *fakeRetentionStore) DeleteExpiredAnalyticsCache(_ context.Context, _ time.Time, limit int) (int64, error) {
	return f.analytics.delete(limit)
}

func newTestSweeper(audit *fakeAuditStore, bulk *fakeBulkStore, feed *fakeFeedStore, retention *fakeRetentionStore, chunk int) *Sweeper {
	return New(audit, bulk, feed, retention, Config{
		BulkRetention:            90 * 24 * time.Hour,
		FeedKeepPerActor:         500,
		SearchKeepPerActor:       1000,
		NotificationKeepPerActor: 1000,
		ChunkSize:                chunk,
	}, zap.NewNop())
}

func TestSweeperDeletesInBoundedChunks(t *testing.T) {
	audit := &fakeAuditStore{chunkedDeleter{pending: 25}}
	bulk := &fakeBulkStore{}
	feed := &fakeFeedStore{chunkedDeleter{pending: 10}}
	retention := &fakeRetentionStore{}

	sw := newTestSweeper(audit, bulk, feed, retention, 10)
	sw.RunOnce(context.Background())

	// 25 pending rows at chunk 10: three calls (10, 10, 5), never unbounded.
	if len(audit.batches) != 3 {
		t.Fatalf("audit sweep ran %d batches, want 3", len(audit.batches))
	}
	for _, limit := range audit.batches {
		if limit != 10 {
			t.Errorf("batch asked for %d rows, want chunk size 10", limit)
		}
	}
	if audit.pending != 0 {
		t.Errorf("%d expired rows left behind", audit.pending)
	}

	// A trim that fills exactly one chunk needs a second call to see the
	// partial result that stops the loop.
	if len(feed.batches) != 2 {
		t.Errorf("feed trim ran %d batches, want 2", len(feed.batches))
	}
	if feed.pending != 0 {
		t.Errorf("%d feed rows left behind", feed.pending)
	}
}

func TestSweeperClassFailureDoesNotBlockOthers(t *testing.T) {
	audit := &fakeAuditStore{chunkedDeleter{err: errors.New("lock timeout")}}
	bulk := &fakeBulkStore{chunkedDeleter{pending: 3}}
	feed := &fakeFeedStore{chunkedDeleter{pending: 4}}
	retention := &fakeRetentionStore{
		search:        chunkedDeleter{pending: 2},
		notifications: chunkedDeleter{pending: 1},
		analytics:     chunkedDeleter{pending: 5},
	}

	sw := newTestSweeper(audit, bulk, feed, retention, 100)
	sw.RunOnce(context.Background())

	if bulk.pending != 0 || feed.pending != 0 {
		t.Error("bulk and feed sweeps should run despite the audit sweep failing")
	}
	if retention.search.pending != 0 || retention.notifications.pending != 0 || retention.analytics.pending != 0 {
		t.Error("retention sweeps should run despite the audit sweep failing")
	}
}

func TestSweeperDefaultsChunkSize(t *testing.T) {
	audit := &fakeAuditStore{chunkedDeleter{pending: 1}}
	sw := New(audit, &fakeBulkStore{}, &fakeFeedStore{}, &fakeRetentionStore{}, Config{}, zap.NewNop())
	sw.RunOnce(context.Background())

	if len(audit.batches) == 0 || audit.batches[0] != 500 {
		t.Errorf("batches = %v, want first batch bounded by the 500 default", audit.batches)
	}
}
