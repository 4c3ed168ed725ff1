package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
)

// Service persists in-app notifications and forwards them to live streams,
// devices and email
type Service struct {
	DB     *gorm.DB
	Mailer Mailer
	Pusher Pusher
	Hub    *Hub
}

func NewService(db *gorm.DB, mailer Mailer, pusher Pusher, hub *Hub) *Service {
	return &Service{DB: db, Mailer: mailer, Pusher: pusher, Hub: hub}
}

// Notify stores a notification for recipientID. Delivery to streams and
// devices is best effort.
func (s *Service) Notify(ctx context.Context, recipientID uint, kind, title, message string, data map[string]any) (*models.Notification, error) {
	n := models.Notification{
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Message:     message,
		Data:        data,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if s.Hub != nil {
		if payload, err := json.Marshal(n); err == nil {
			s.Hub.Send(recipientID, string(payload))
		}
	}

	if s.Pusher != nil {
		var tokens []string
		if err := s.DB.WithContext(ctx).Model(&models.DeviceToken{}).Where("user_id = ?", recipientID).Pluck("token", &tokens).Error; err != nil {
			log.Printf("notify: load device tokens of user %d: %v", recipientID, err)
		} else if len(tokens) > 0 {
			pushData := map[string]string{
				"type":            kind,
				"notification_id": strconv.FormatUint(uint64(n.ID), 10),
			}
			if err := s.Pusher.Push(ctx, tokens, title, message, pushData); err != nil {
				log.Printf("notify: push to user %d: %v", recipientID, err)
			}
		}
	}

	return &n, nil
}

// NotifyAdmins sends the same notification to every superuser
func (s *Service) NotifyAdmins(ctx context.Context, kind, title, message string, data map[string]any) error {
	var adminIDs []uint
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("is_staff = ? OR is_superuser = ?", true, true).Pluck("id", &adminIDs).Error; err != nil {
		return fmt.Errorf("load admins: %w", err)
	}
	for _, id := range adminIDs {
		if _, err := s.Notify(ctx, id, kind, title, message, data); err != nil {
			return err
		}
	}
	return nil
}

// Email sends through the configured mailer, failures are logged and returned
func (s *Service) Email(ctx context.Context, email Email) error {
	if s.Mailer == nil || email.To == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, email); err != nil {
		log.Printf("notify: email %q to %s: %v", email.Subject, email.To, err)
		return err
	}
	return nil
}
