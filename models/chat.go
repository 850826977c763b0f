package models

import (
	"context"
	"errors"
	"time"

	"github.com/matraxtyres/tyre_assistant/utils"
	"gorm.io/gorm"
)

type ChatSession struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

type ChatMessage struct {
	ID        int       `gorm:"primary_key" json:"id"`
	SessionId int       `gorm:"index;not null" json:"session_id"`
	Sender    Sender    `gorm:"size:20;not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (m ChatMessage) Turn() ConversationTurn {
	return ConversationTurn{Sender: m.Sender, Text: m.Text, Timestamp: m.CreatedAt}
}

const chatTitleLength = 50

func CreateChatSession(ctx context.Context, db *gorm.DB, firstMessage string) (*ChatSession, error) {
	session := ChatSession{Title: utils.TruncateRunes(firstMessage, chatTitleLength)}
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func GetChatSession(ctx context.Context, db *gorm.DB, sessionId int) (*ChatSession, error) {
	var session ChatSession
	err := db.WithContext(ctx).Where("id = ?", sessionId).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func ListChatSessions(ctx context.Context, db *gorm.DB) ([]ChatSession, error) {
	var sessions []ChatSession
	err := db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&sessions).Error
	return sessions, err
}

// AppendChatMessage is the only write path for messages; stored turns are never edited.
func AppendChatMessage(ctx context.Context, db *gorm.DB, sessionId int, sender Sender, text string) (*ChatMessage, error) {
	if !sender.IsValid() {
		return nil, errors.New("invalid sender " + string(sender))
	}
	msg := ChatMessage{SessionId: sessionId, Sender: sender, Text: text}
	if err := db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func ListChatMessages(ctx context.Context, db *gorm.DB, sessionId int) ([]ChatMessage, error) {
	var messages []ChatMessage
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// LoadHistory returns the session log, optionally excluding one message (the turn being answered).
func LoadHistory(ctx context.Context, db *gorm.DB, sessionId int, excludeMessageId int) (History, error) {
	messages, err := ListChatMessages(ctx, db, sessionId)
	if err != nil {
		return nil, err
	}
	history := make(History, 0, len(messages))
	for _, m := range messages {
		if m.ID == excludeMessageId {
			continue
		}
		history = append(history, m.Turn())
	}
	return history, nil
}
