package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matraxtyres/tyre_assistant/utils"
)

func TestChatSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := strings.Repeat("é", 60)
	session, err := CreateChatSession(ctx, db, first)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len([]rune(session.Title)) != 50 {
		t.Fatalf("title has %d runes, want 50", len([]rune(session.Title)))
	}
	if _, err := GetChatSession(ctx, db, session.ID+1); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("missing session err = %v", err)
	}

	if _, err := AppendChatMessage(ctx, db, session.ID, Sender("system"), "nope"); err == nil {
		t.Fatalf("invalid sender accepted")
	}
	q, err := AppendChatMessage(ctx, db, session.ID, SenderCustomer, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := AppendChatMessage(ctx, db, session.ID, SenderAgent, "hi there"); err != nil {
		t.Fatalf("append: %v", err)
	}
	latest, err := AppendChatMessage(ctx, db, session.ID, SenderCustomer, "BMW 320i")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := LoadHistory(ctx, db, session.ID, latest.ID)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 2 || history[0].Text != q.Text || history[1].Sender != SenderAgent {
		t.Fatalf("history = %+v", history)
	}
	full, _ := LoadHistory(ctx, db, session.ID, 0)
	if len(full) != 3 || full[2].Text != "BMW 320i" {
		t.Fatalf("full history = %+v", full)
	}

	sessions, err := ListChatSessions(ctx, db)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions = %+v, %v", sessions, err)
	}
}
