package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"theraslot/internal/logger"
	"theraslot/internal/metrics"
)

const (
	queueKey       = "scheduling_events"
	failedQueueKey = "scheduling_events:failed"
	maxTries       = 3
)

// Event is one scheduling change worth telling the practice desk about.
// Events are queued in redis and delivered by email from a background
// worker, so a slow SMTP server never sits on the booking path.
type Event struct {
	Type          string    `json:"type"`
	BookingID     int64     `json:"booking_id"`
	UserID        string    `json:"user_id"`
	TherapistCode string    `json:"therapist_code"`
	StartUTC      string    `json:"start_utc,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Tries         int       `json:"tries"`
	Created       time.Time `json:"created"`
}

const (
	EventBookingScheduled   = "booking_scheduled"
	EventBookingCanceled    = "booking_canceled"
	EventBookingRescheduled = "booking_rescheduled"
)

type Service struct {
	redis    *redis.Client
	to       string
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(notifyEmail, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		to:       notifyEmail,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// Enqueue pushes the event onto the redis queue. With no recipient
// configured the whole pipeline is disabled and Enqueue is a no-op.
func (s *Service) Enqueue(ctx context.Context, event Event) error {
	if s.to == "" {
		return nil
	}

	event.Tries = 0
	if event.Created.IsZero() {
		event.Created = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal %s event: %v", event.Type, err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s event for booking %d: %v", event.Type, event.BookingID, err)
		return err
	}

	metrics.EmailQueueLength.Inc()
	logger.Infof("Event queued: %s for booking %d", event.Type, event.BookingID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification worker stopped")
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
	metrics.EmailQueueLength.Dec()

	var event Event
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		logger.Errorf("Bad event data: %v", err)
		return
	}

	event.Tries++
	if err := s.sendNow(event); err != nil {
		logger.Errorf("Failed to deliver %s event for booking %d: %v", event.Type, event.BookingID, err)

		if event.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(event)
			s.redis.LPush(context.Background(), queueKey, data)
			metrics.EmailQueueLength.Inc()
			logger.Infof("Retrying %s event for booking %d (attempt %d)", event.Type, event.BookingID, event.Tries+1)
		} else {
			logger.Errorf("Event for booking %d dropped after %d attempts", event.BookingID, maxTries)
			s.saveFailed(event, err)
		}
		return
	}

	metrics.RecordEmail(event.Type, "sent")
	logger.Infof("Delivered %s event for booking %d", event.Type, event.BookingID)
}

func (s *Service) sendNow(event Event) error {
	subject, body := render(event)

	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", s.to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "\r\n" + body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{s.to}, []byte(message))
}

func render(event Event) (subject, body string) {
	switch event.Type {
	case EventBookingScheduled:
		subject = fmt.Sprintf("Booking #%d scheduled", event.BookingID)
	case EventBookingCanceled:
		subject = fmt.Sprintf("Booking #%d canceled", event.BookingID)
	case EventBookingRescheduled:
		subject = fmt.Sprintf("Booking #%d rescheduled", event.BookingID)
	default:
		subject = fmt.Sprintf("Booking #%d updated", event.BookingID)
	}

	body = fmt.Sprintf(`Booking:   #%d
Client:    %s
Therapist: %s
`, event.BookingID, event.UserID, event.TherapistCode)
	if event.StartUTC != "" {
		body += fmt.Sprintf("Starts:    %s\n", event.StartUTC)
	}
	if event.Detail != "" {
		body += fmt.Sprintf("Detail:    %s\n", event.Detail)
	}
	return subject, body
}

func (s *Service) saveFailed(event Event, err error) {
	failed := map[string]interface{}{
		"event": event,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	metrics.RecordEmail(event.Type, "failed")
	logger.Errorf("Event moved to failed queue: booking %d", event.BookingID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
