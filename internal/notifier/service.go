package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/Kaushikmangukiya360/student-friend/internal/logger"
	"github.com/Kaushikmangukiya360/student-friend/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

// Notifier is the fire-and-forget event sink consumed by the core. Errors
// never propagate back into booking or ledger flows.
type Notifier interface {
	Notify(ctx context.Context, userID int, event, message string)
}

type Job struct {
	UserID  int       `json:"user_id"`
	Event   string    `json:"event"`
	Message string    `json:"message"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis *redis.Client
	db    *sqlx.DB
}

func New(redisAddr string, db *sqlx.DB) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		db: db,
	}
}

// NewWithClient wires an existing redis client, used by tests.
func NewWithClient(client *redis.Client, db *sqlx.DB) *Service {
	return &Service{redis: client, db: db}
}

func (s *Service) Notify(ctx context.Context, userID int, event, message string) {
	job := Job{
		UserID:  userID,
		Event:   event,
		Message: message,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue notification for user %d: %v", userID, err)
		metrics.RecordNotification("queue_failed")
		return
	}

	metrics.RecordNotification("queued")
	logger.Debugf("Notification queued: %s for user %d", event, userID)
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.deliver(ctx, job); err != nil {
		logger.Errorf("Failed to deliver notification to user %d: %v", job.UserID, err)

		if job.Tries < maxTries {
			time.Sleep(time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			logger.Errorf("Notification for user %d failed after %d attempts", job.UserID, maxTries)
			s.saveFailed(job, err)
			metrics.RecordNotification("failed")
		}
		return
	}

	metrics.RecordNotification("delivered")
}

func (s *Service) deliver(ctx context.Context, job Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, event, message)
		 VALUES ($1, $2, $3)`,
		job.UserID, job.Event, job.Message,
	)
	return err
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
