// Package jobs wraps the asynq worker, scheduler and client used for mail
// dispatch, balance aggregation and recurrence processing.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/recurrences"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSendMail dispatches one transactional email.
	TaskSendMail = "mail:send"
	// TaskApplyDelta applies one signed balance delta.
	TaskApplyDelta = "stats:apply_delta"
	// TaskRecalculate rebuilds a company balance from scratch.
	TaskRecalculate = "stats:recalculate"
	// TaskProcessRecurrences runs one recurrence materialization pass.
	TaskProcessRecurrences = "recurrence:process"
)

// ApplyDeltaPayload carries the before/after snapshots of one transaction
// write. The handler recomputes the delta so a retried task stays correct.
type ApplyDeltaPayload struct {
	CompanyID uuid.UUID        `json:"company_id"`
	Before    *stats.TxSnapshot `json:"before,omitempty"`
	After     *stats.TxSnapshot `json:"after,omitempty"`
}

// RecalculatePayload names the company to rebuild.
type RecalculatePayload struct {
	CompanyID uuid.UUID `json:"company_id"`
}

// NewSendMailTask constructs the asynq task for one message.
func NewSendMailTask(msg notifications.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendMail, data, asynq.MaxRetry(5)), nil
}

// NewApplyDeltaTask constructs the balance delta task.
func NewApplyDeltaTask(payload ApplyDeltaPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskApplyDelta, data, asynq.MaxRetry(10)), nil
}

// NewRecalculateTask constructs the full rebuild task.
func NewRecalculateTask(payload RecalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculate, data), nil
}

// NewProcessRecurrencesTask constructs the materialization pass task.
func NewProcessRecurrencesTask() *asynq.Task {
	return asynq.NewTask(TaskProcessRecurrences, nil)
}

// Handlers bundles the services the task handlers delegate to. Redis,
// when set, guards the heavier tasks against concurrent workers.
type Handlers struct {
	Mailer      *notifications.Mailer
	Stats       *stats.Service
	Recurrences *recurrences.Service
	Redis       *redis.Client
	Logger      *slog.Logger
	ObserveJob  func(task string, err error)
}

// tryLock takes a short-lived redis lock. Returns true when Redis is not
// configured so single-worker deployments keep working.
func (h *Handlers) tryLock(ctx context.Context, key string, ttl time.Duration) (bool, func()) {
	if h.Redis == nil {
		return true, func() {}
	}
	ok, err := h.Redis.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		h.Logger.Warn("acquire job lock", slog.String("key", key), slog.Any("error", err))
		return true, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, func() { h.Redis.Del(context.WithoutCancel(ctx), key) }
}

func (h *Handlers) observe(task string, err error) {
	if h.ObserveJob != nil {
		h.ObserveJob(task, err)
	}
}

// HandleSendMail processes TaskSendMail.
func (h *Handlers) HandleSendMail(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { h.observe(TaskSendMail, err) }()
	var msg notifications.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return asynq.SkipRetry
	}
	return h.Mailer.Send(msg)
}

// HandleApplyDelta processes TaskApplyDelta. Failures stay on the retry
// queue, the aggregator never drops a delta silently.
func (h *Handlers) HandleApplyDelta(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { h.observe(TaskApplyDelta, err) }()
	var payload ApplyDeltaPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return h.Stats.Apply(ctx, payload.CompanyID, payload.Before, payload.After)
}

// HandleRecalculate processes TaskRecalculate.
func (h *Handlers) HandleRecalculate(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { h.observe(TaskRecalculate, err) }()
	var payload RecalculatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ok, release := h.tryLock(ctx, shared.StatsLockKey(payload.CompanyID), time.Minute)
	if !ok {
		h.Logger.Info("recalculation already running", slog.String("company_id", payload.CompanyID.String()))
		return nil
	}
	defer release()
	balance, err := h.Stats.Recalculate(ctx, payload.CompanyID)
	if err != nil {
		return err
	}
	h.Logger.Info("balance recalculated",
		slog.String("company_id", payload.CompanyID.String()),
		slog.String("balance", balance.String()))
	return nil
}

// HandleProcessRecurrences processes TaskProcessRecurrences.
func (h *Handlers) HandleProcessRecurrences(ctx context.Context, _ *asynq.Task) (err error) {
	defer func() { h.observe(TaskProcessRecurrences, err) }()
	ok, release := h.tryLock(ctx, shared.RecurrenceLockKey, 5*time.Minute)
	if !ok {
		h.Logger.Info("recurrence pass already running")
		return nil
	}
	defer release()
	created, err := h.Recurrences.ProcessDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if created > 0 {
		h.Logger.Info("recurrence pass complete", slog.Int("created", created))
	}
	return nil
}
