package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ebersole/caravan/internal/model"
	"github.com/ebersole/caravan/internal/store"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration. Push is disabled when the keys are empty.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Service sends best-effort web push notifications to trip members. Like
// the websocket fan-out, delivery failures are logged and never surfaced to
// the member whose action triggered them.
type Service struct {
	publicKey  string
	privateKey string
	pushStore  *store.PushStore
	logger     *slog.Logger
}

func NewService(cfg Config, pushStore *store.PushStore, logger *slog.Logger) *Service {
	return &Service{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		pushStore:  pushStore,
		logger:     logger,
	}
}

// VAPIDPublicKey returns the public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// NotifyProposal pushes a "new proposal" notification to every member of
// the trip except the proposer. Expired subscriptions are pruned as a side
// effect; all other failures are logged and skipped.
func (s *Service) NotifyProposal(activity *model.Activity, proposerName string) {
	subs, err := s.pushStore.ListByTrip(activity.TripID, activity.ProposerID)
	if err != nil {
		s.logger.Error("list trip subscriptions", "trip_id", activity.TripID, "error", err)
		return
	}

	payload := Payload{
		Title: "New trip proposal",
		Body:  fmt.Sprintf("%s proposed %q", proposerName, activity.Name),
		URL:   fmt.Sprintf("/trips/%d", activity.TripID),
		Tag:   fmt.Sprintf("activity-%d", activity.ID),
	}

	for _, sub := range subs {
		if err := s.send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if derr := s.pushStore.DeleteByEndpoint(sub.Endpoint); derr != nil {
					s.logger.Error("prune expired subscription", "error", derr)
				}
				continue
			}
			s.logger.Warn("push send", "endpoint", sub.Endpoint, "error", err)
		}
	}
}

func (s *Service) send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      "mailto:noreply@caravan.app",
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}
