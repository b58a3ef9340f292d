package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Compile-time check to ensure ChatLogStore implements the output port
var _ output.ChatLogStore = (*ChatLogStore)(nil)

// ChatMessageRecord struct - Row model for the archived chat log the diary
// is written from. Rows are appended by the chat bridge outside this agent.
type ChatMessageRecord struct {
	ID         uint64    `gorm:"primaryKey"`
	ChatID     string    `gorm:"column:chat_id;index"`
	SenderID   string    `gorm:"column:sender_id"`
	SenderName string    `gorm:"column:sender_name"`
	FromSelf   bool      `gorm:"column:from_self"`
	Content    string    `gorm:"column:content"`
	SentAt     time.Time `gorm:"column:sent_at;index"`
}

// TableName func - Table name for gorm
func (ChatMessageRecord) TableName() string {
	return "chat_messages"
}

// ChatLogStore struct - Secondary/Driven adapter for PostgreSQL
type ChatLogStore struct {
	dbGorm *gorm.DB
}

// NewChatLogStore func - Creates new PostgreSQL chat log store
func NewChatLogStore(dbGorm *gorm.DB) *ChatLogStore {
	logrus.Info("Migrate chat log schema ...")
	if err := dbGorm.AutoMigrate(&ChatMessageRecord{}); err != nil {
		logrus.Errorln(err)
	}
	return &ChatLogStore{
		dbGorm: dbGorm,
	}
}

// MessagesBetween func - Returns the filtered messages of [start, end),
// ordered by timestamp ascending.
func (p *ChatLogStore) MessagesBetween(ctx context.Context, start, end time.Time, filter output.ChatFilter) ([]domain.ChatMessage, error) {
	var records []ChatMessageRecord

	tx := p.dbGorm.WithContext(ctx).
		Where("sent_at >= ? AND sent_at < ?", start, end)

	switch filter.Mode {
	case "whitelist":
		if len(filter.Chats) == 0 {
			return nil, nil
		}
		tx = tx.Where("chat_id IN ?", filter.Chats)
	case "blacklist":
		if len(filter.Chats) > 0 {
			tx = tx.Where("chat_id NOT IN ?", filter.Chats)
		}
	default:
		// "all": no chat condition.
	}

	if err := tx.Order("sent_at ASC").Find(&records).Error; err != nil {
		logrus.Errorln(err)
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, toChatMessage(record))
	}
	return messages, nil
}

// LatestPrivate func - Returns the newest non-command message of the private
// conversation with peerID. No match yields (nil, nil).
func (p *ChatLogStore) LatestPrivate(ctx context.Context, peerID string, fromSelf bool) (*domain.ChatMessage, error) {
	var record ChatMessageRecord

	err := p.dbGorm.WithContext(ctx).
		Where("chat_id = ?", "private:"+peerID).
		Where("from_self = ?", fromSelf).
		Where("content NOT LIKE ?", "/%").
		Where("content <> ''").
		Order("sent_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logrus.Errorln(err)
		return nil, err
	}

	message := toChatMessage(record)
	return &message, nil
}

func toChatMessage(record ChatMessageRecord) domain.ChatMessage {
	return domain.ChatMessage{
		Sender:    senderLabel(record),
		Text:      record.Content,
		Timestamp: record.SentAt,
	}
}

// senderLabel prefers the display name and falls back to the raw id.
func senderLabel(record ChatMessageRecord) string {
	if name := strings.TrimSpace(record.SenderName); name != "" {
		return name
	}
	return record.SenderID
}
