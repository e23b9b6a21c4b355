package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// ErrEndpointGone marks a subscription whose push endpoint no longer exists.
// The caller removes the registration and moves on.
var ErrEndpointGone = errors.New("push endpoint gone")

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub models.Subscription, payload []byte) error
}

// WebPushSender sends VAPID-signed Web Push messages.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewWebPushSender(publicKey, privateKey, subscriber string) *WebPushSender {
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return ErrEndpointGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("send push: status %d", resp.StatusCode)
	}
	return nil
}
