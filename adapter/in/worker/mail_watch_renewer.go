// Package worker holds the background schedulers.
package worker

import (
	"context"
	"sync"
	"time"

	"mail_server/core/domain"
	"mail_server/core/port/in"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// renewMargin renews the watch this long before its expiration.
const renewMargin = 24 * time.Hour

// WatchRenewer keeps the push subscription alive. Gmail watches expire
// after seven days and cannot be extended in place, so the renewer
// re-registers ahead of the deadline.
type WatchRenewer struct {
	reader        in.MailReader
	checkInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc

	mu         sync.Mutex
	expiration time.Time
}

func NewWatchRenewer(reader in.MailReader) *WatchRenewer {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatchRenewer{
		reader:        reader,
		checkInterval: 1 * time.Hour,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins the renewal loop in the background.
func (r *WatchRenewer) Start() {
	logger.Info("[WatchRenewer] Starting with interval %v", r.checkInterval)
	go r.run()
}

// Stop stops the renewal loop.
func (r *WatchRenewer) Stop() {
	logger.Info("[WatchRenewer] Stopping...")
	r.cancel()
}

// Track records a registration made elsewhere, for example through the
// watch endpoint, so the loop knows its deadline.
func (r *WatchRenewer) Track(reg *domain.WatchRegistration) {
	if reg == nil {
		return
	}
	r.mu.Lock()
	r.expiration = reg.Expiration
	r.mu.Unlock()
}

func (r *WatchRenewer) run() {
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			logger.Info("[WatchRenewer] Stopped")
			return
		case <-ticker.C:
			r.renewIfExpiring()
		}
	}
}

// renewIfExpiring re-registers the watch when its deadline is within
// the renewal margin. Without a tracked registration there is nothing
// to keep alive.
func (r *WatchRenewer) renewIfExpiring() {
	r.mu.Lock()
	expiration := r.expiration
	r.mu.Unlock()
	if expiration.IsZero() || time.Until(expiration) > renewMargin {
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Minute)
	defer cancel()

	reg, err := r.reader.RenewWatch(ctx)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeAuthRequired) {
			logger.Warn("[WatchRenewer] Not authorized, skipping renewal")
			return
		}
		logger.WithError(err).Error("[WatchRenewer] Failed to renew watch")
		return
	}
	r.Track(reg)
	logger.Info("[WatchRenewer] Watch renewed, next expiration %s", reg.Expiration)
}
