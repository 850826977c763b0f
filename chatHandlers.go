package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/matraxtyres/tyre_assistant/appctx"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/sirupsen/logrus"
)

const (
	chatTimestampLayout = "03:04 PM"
	chatApology         = "I'm sorry, I encountered an error processing your request. Please try again."
)

type chatRequest struct {
	SessionId *int   `json:"session_id"`
	Message   string `json:"message"`
}

type chatMessageResponse struct {
	ID        int    `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type chatResponse struct {
	SessionId     int                 `json:"session_id"`
	Message       chatMessageResponse `json:"message"`
	AgentResponse chatMessageResponse `json:"agent_response"`
	Agent         string              `json:"agent"`
	OrderCode     string              `json:"order_code,omitempty"`
}

func newChatMessageResponse(m models.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        m.ID,
		Sender:    string(m.Sender),
		Text:      m.Text,
		Timestamp: m.CreatedAt.Format(chatTimestampLayout),
	}
}

func chatHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}

		var session *models.ChatSession
		var err error
		if req.SessionId != nil {
			session, err = models.GetChatSession(ctx, app.DB, *req.SessionId)
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
				return
			}
		} else {
			session, err = models.CreateChatSession(ctx, app.DB, message)
		}
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "chatHandler", "load session", req.SessionId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		ctx = appctx.SetSessionId(ctx, session.ID)

		release := app.TurnLocks.Acquire(ctx, session.ID)
		defer release()

		customerMsg, err := models.AppendChatMessage(ctx, app.DB, session.ID, models.SenderCustomer, message)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "chatHandler", "append customer message", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		history, err := models.LoadHistory(ctx, app.DB, session.ID, customerMsg.ID)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "chatHandler", "load history", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		replyText := chatApology
		agent := "unknown"
		reply, err := app.Dialog.HandleTurn(ctx, message, history)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "HandleTurn", "dialog turn", session.ID, err)
		} else {
			replyText = reply.Text
			agent = reply.Agent
			app.Logger.WithFields(logrus.Fields{
				"field":      "chatHandler",
				"session_id": session.ID,
				"agent":      reply.Agent,
				"state":      reply.State,
			}).Info("turn answered")
		}

		agentMsg, err := models.AppendChatMessage(ctx, app.DB, session.ID, models.SenderAgent, replyText)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "chatHandler", "append agent message", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, chatResponse{
			SessionId:     session.ID,
			Message:       newChatMessageResponse(*customerMsg),
			AgentResponse: newChatMessageResponse(*agentMsg),
			Agent:         agent,
			OrderCode:     reply.OrderCode,
		})
	}
}

func listChatSessionsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := models.ListChatSessions(c.Request.Context(), app.DB)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "listChatSessionsHandler", "list sessions", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

func listChatMessagesHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sessionId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
			return
		}
		if _, err := models.GetChatSession(ctx, app.DB, sessionId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
				return
			}
			config.LogError(app.Logger, "chatHandler", "listChatMessagesHandler", "load session", sessionId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		messages, err := models.ListChatMessages(ctx, app.DB, sessionId)
		if err != nil {
			config.LogError(app.Logger, "chatHandler", "listChatMessagesHandler", "list messages", sessionId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		out := make([]chatMessageResponse, 0, len(messages))
		for _, m := range messages {
			out = append(out, newChatMessageResponse(m))
		}
		c.JSON(http.StatusOK, out)
	}
}
