package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T, cfg RedisQueueConfig) *RedisJobQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	if cfg.Stream == "" {
		cfg.Stream = "summarize:jobs"
	}
	if cfg.Group == "" {
		cfg.Group = "docsvc"
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	q, err := NewRedisJobQueue(cfg)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	// Group at 0 so entries added before any consumer are still delivered.
	if err := q.client.XGroupCreateMkStream(context.Background(), q.stream, q.group, "0").Err(); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return q
}

func readOne(t *testing.T, q *RedisJobQueue) redis.XMessage {
	t.Helper()
	streams, err := q.client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "test-consumer",
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	if err != nil {
		t.Fatalf("read group: %v", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		t.Fatalf("no message on stream")
	}
	return streams[0].Messages[0]
}

func TestEnqueueAndGetJob(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{})
	ctx := context.Background()

	job, err := q.Enqueue(ctx, 42)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.ID == "" || job.FileID != 42 || job.Status != StatusQueued {
		t.Fatalf("job = %+v", job)
	}

	got, ok, err := q.GetJob(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("get job: ok=%v err=%v", ok, err)
	}
	if got.FileID != 42 || got.Status != StatusQueued || got.Attempts != 0 {
		t.Fatalf("got = %+v", got)
	}

	if n := q.client.XLen(ctx, q.stream).Val(); n != 1 {
		t.Fatalf("stream length = %d, want 1", n)
	}
}

func TestEnqueueRejectsInvalidFileID(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{})
	if _, err := q.Enqueue(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero file id")
	}
}

func TestGetJobMissing(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{})
	_, ok, err := q.GetJob(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if ok {
		t.Fatalf("missing job reported as present")
	}
}

func TestHandleMessageSuccess(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{})
	ctx := context.Background()

	job, err := q.Enqueue(ctx, 7)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q)

	var handled JobStatus
	q.handleMessage(ctx, msg, func(_ context.Context, j JobStatus) error {
		handled = j
		return nil
	})

	if handled.ID != job.ID || handled.FileID != 7 {
		t.Fatalf("handler saw %+v", handled)
	}
	if handled.Status != StatusProcessing || handled.Attempts != 1 {
		t.Fatalf("handler job = %+v, want processing attempt 1", handled)
	}

	got, ok, err := q.GetJob(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("get job: ok=%v err=%v", ok, err)
	}
	if got.Status != StatusDone {
		t.Fatalf("status = %q, want done", got.Status)
	}
	if n := q.client.XLen(ctx, q.stream).Val(); n != 0 {
		t.Fatalf("stream length = %d after ack, want 0", n)
	}
}

func TestHandleMessageRequeuesOnFailure(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{MaxRetries: 3})
	ctx := context.Background()

	job, err := q.Enqueue(ctx, 7)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q)

	q.handleMessage(ctx, msg, func(context.Context, JobStatus) error {
		return errors.New("engine unavailable")
	})

	got, ok, err := q.GetJob(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("get job: ok=%v err=%v", ok, err)
	}
	if got.Status != StatusQueued {
		t.Fatalf("status = %q, failed attempt below the retry limit must requeue", got.Status)
	}
	if got.Attempts != 1 || got.ErrorMessage != "engine unavailable" {
		t.Fatalf("got = %+v", got)
	}

	if n := q.client.XLen(ctx, q.stream).Val(); n != 1 {
		t.Fatalf("stream length = %d, want the requeued message", n)
	}
	requeued := readOne(t, q)
	if requeued.ID == msg.ID {
		t.Fatalf("requeue reused the original stream id")
	}
	if requeued.Values["job_id"] != job.ID {
		t.Fatalf("requeued job_id = %v", requeued.Values["job_id"])
	}
}

func TestHandleMessageExhaustsRetries(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{MaxRetries: 1})
	ctx := context.Background()

	job, err := q.Enqueue(ctx, 7)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q)

	q.handleMessage(ctx, msg, func(context.Context, JobStatus) error {
		return errors.New("engine unavailable")
	})

	got, ok, err := q.GetJob(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("get job: ok=%v err=%v", ok, err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed after final attempt", got.Status)
	}
	if got.ErrorMessage != "engine unavailable" {
		t.Fatalf("errorMessage = %q", got.ErrorMessage)
	}
	if n := q.client.XLen(ctx, q.stream).Val(); n != 0 {
		t.Fatalf("stream length = %d, failed job must not be requeued", n)
	}
}

func TestHandleMessageDropsMalformedEntry(t *testing.T) {
	q := newTestQueue(t, RedisQueueConfig{})
	ctx := context.Background()

	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"job_id": "", "file_id": "not-a-number"},
	}).Err(); err != nil {
		t.Fatalf("xadd: %v", err)
	}
	msg := readOne(t, q)

	called := false
	q.handleMessage(ctx, msg, func(context.Context, JobStatus) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("handler invoked for malformed entry")
	}
	if n := q.client.XLen(ctx, q.stream).Val(); n != 0 {
		t.Fatalf("malformed entry left on stream")
	}
}
