// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

const (
	defaultUsageBatchSize     = 10
	defaultUsageFlushInterval = 5 * time.Second
	usageFlushTimeout         = 10 * time.Second
)

// UsageRecorder batches usage records before persisting them, trading
// durability of the most recent few records for fewer storage writes on the
// request path. A batch is flushed when it reaches batchSize records or when
// the flush interval elapses, whichever comes first. Close flushes whatever
// remains.
type UsageRecorder struct {
	repo   storage.UsageRepository
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []*core.UsageRecord

	flushCh   chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ UsageSink = (*UsageRecorder)(nil)

// UsageOption configures a UsageRecorder.
type UsageOption func(*UsageRecorder)

// WithBatchSize overrides the flush threshold. Default is 10.
func WithBatchSize(n int) UsageOption {
	return func(r *UsageRecorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval overrides the time-based flush. Default is 5s.
func WithFlushInterval(d time.Duration) UsageOption {
	return func(r *UsageRecorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// NewUsageRecorder creates a recorder and starts its background flusher.
func NewUsageRecorder(repo storage.UsageRepository, opts ...UsageOption) *UsageRecorder {
	r := &UsageRecorder{
		repo:          repo,
		logger:        slog.Default().With("component", "usage-recorder"),
		batchSize:     defaultUsageBatchSize,
		flushInterval: defaultUsageFlushInterval,
		flushCh:       make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues a usage record. Never blocks on storage.
func (r *UsageRecorder) Record(record UsageEvent) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.buffer = append(r.buffer, &record)
	full := len(r.buffer) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
}

// Close flushes any buffered records and stops the background flusher.
func (r *UsageRecorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
	r.flush()
	return nil
}

func (r *UsageRecorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-r.flushCh:
			r.flush()
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *UsageRecorder) flush() {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), usageFlushTimeout)
	defer cancel()

	if err := r.repo.AddUsageRecords(ctx, batch...); err != nil {
		// Usage accounting must not fail requests; log and drop.
		r.logger.Error("failed to persist usage batch", "count", len(batch), "error", err)
		return
	}
	r.logger.Debug("flushed usage batch", "count", len(batch))
}
