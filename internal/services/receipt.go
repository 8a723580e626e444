package services

import (
	"context"

	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/metrics"
	"github.com/sevatrust/seva-donations/internal/models"
	repo "github.com/sevatrust/seva-donations/internal/repository"
	"github.com/sevatrust/seva-donations/internal/worker"
)

// ReceiptDispatcher sends the donor receipt for a successful donation on the worker
// pool. Mail delivery is not wired; the receipt is logged and the donation flagged.
type ReceiptDispatcher struct {
	donations repo.Donations
	wp        *worker.Pool
	audit     *Auditor
}

func NewReceiptDispatcher(d repo.Donations, wp *worker.Pool, a *Auditor) *ReceiptDispatcher {
	return &ReceiptDispatcher{donations: d, wp: wp, audit: a}
}

// Enqueue schedules the receipt. Without a pool it runs inline.
func (r *ReceiptDispatcher) Enqueue(ctx context.Context, d models.Donation) {
	reqID := logger.RequestID(ctx)
	job := func(ctx context.Context) {
		if reqID != "" {
			ctx = logger.WithRequestID(ctx, reqID)
		}
		r.send(ctx, d)
	}
	if r.wp == nil {
		job(context.WithoutCancel(ctx))
		return
	}
	if !r.wp.Submit(job) {
		logger.FromContext(ctx).Warn("receipt not queued, worker pool busy or stopped",
			"txn_id", d.TxnID, "donation_id", d.ID)
	}
}

func (r *ReceiptDispatcher) send(ctx context.Context, d models.Donation) {
	log := logger.FromContext(ctx).With("txn_id", d.TxnID)
	log.Info("donation receipt", "to", d.Email, "donor", d.DonorName, "amount", d.Amount)

	if err := r.donations.MarkReceiptSent(ctx, d.ID); err != nil {
		log.Error("mark receipt sent", "err", err)
		return
	}
	metrics.ReceiptsSent.Inc()
	r.audit.Record(ctx, "donation", d.ID, "receipt_sent", nil)
}
