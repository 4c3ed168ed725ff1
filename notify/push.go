package notify

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher delivers push notifications to device tokens
type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// FirebasePusher sends through Firebase Cloud Messaging
type FirebasePusher struct {
	client *messaging.Client
}

// NewFirebasePusher uses the service account file when given, application
// default credentials otherwise
func NewFirebasePusher(ctx context.Context, credentialsFile string) (*FirebasePusher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase messaging: %w", err)
	}
	return &FirebasePusher{client: client}, nil
}

func (p *FirebasePusher) Push(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	if resp.FailureCount > 0 {
		log.Printf("push: %d of %d messages failed", resp.FailureCount, len(tokens))
	}
	return nil
}
