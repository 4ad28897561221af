package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/core/embed"
	"ai-doc-assistant/internal/core/index"
	"ai-doc-assistant/internal/core/llm"
	"ai-doc-assistant/internal/core/rag"
	"ai-doc-assistant/internal/database"
	"ai-doc-assistant/internal/database/model"
	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// queryRequest is the inbound body for a grounded query. Filter is the loose
// JSON form that gets validated into the typed filter at this edge.
type queryRequest struct {
	Question       string         `json:"question"`
	Filter         map[string]any `json:"filter"`
	ScoreThreshold *float32       `json:"score_threshold"`
	TopK           int            `json:"top_k"`
}

// sessionIdleTTL bounds the registry: transcripts untouched for this long are
// evicted on the next lookup.
const sessionIdleTTL = 30 * time.Minute

type sessionEntry struct {
	sess     *rag.Session
	lastSeen time.Time
}

var (
	sessionsMu sync.Mutex
	sessions   = map[string]*sessionEntry{}
)

// sessionFor returns the transcript for the given id, creating it on first
// use. The id comes from the X-Session-ID header; absent means "default".
func sessionFor(id string) *rag.Session {
	return sessionForAt(id, time.Now())
}

func sessionForAt(id string, now time.Time) *rag.Session {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	for k, e := range sessions {
		if k != id && now.Sub(e.lastSeen) > sessionIdleTTL {
			delete(sessions, k)
		}
	}
	e, ok := sessions[id]
	if !ok {
		e = &sessionEntry{sess: rag.NewSession()}
		sessions[id] = e
	}
	e.lastSeen = now
	return e.sess
}

func dropSession(id string) {
	sessionsMu.Lock()
	delete(sessions, id)
	sessionsMu.Unlock()
}

func sessionID(c fiber.Ctx) string {
	id := strings.TrimSpace(c.Get("X-Session-ID"))
	if id == "" {
		id = "default"
	}
	return id
}

// HandleQuery answers one grounded question against the indexed documents.
func HandleQuery(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	var req queryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleChat, c, err.Error())
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return apperror.BadRequest(config.ModuleChat, c, "question is empty")
	}

	filter, err := index.DecodeFilter(req.Filter)
	if err != nil {
		return apperror.FromError(config.ModuleChat, c, err)
	}

	embedder := embed.NewClient()
	engine := rag.NewEngine(embedder, index.NewStore(embedder), llm.NewClient())

	sid := sessionID(c)
	sess := sessionFor(sid)

	timeout := time.Duration(config.Cfg.OpenAI.RequestTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	resp, err := engine.Answer(ctx, sess, rag.Request{
		Query:          req.Question,
		Filter:         filter,
		ScoreThreshold: req.ScoreThreshold,
		TopK:           req.TopK,
	})
	if err != nil {
		return apperror.FromError(config.ModuleChat, c, err)
	}

	persistMessages(sid, req.Question, resp.Answer)

	return apperror.Success(config.ModuleChat, c, apperror.SuccessMessage{
		Message:    "query ok",
		TrackingID: trackingID,
		Data:       resp,
	})
}

// HandleReset clears the in-memory transcript and the persisted rows for the
// caller's session.
func HandleReset(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	sid := sessionID(c)
	dropSession(sid)

	if db, err := database.GetDB(); err == nil {
		if err := db.Where("session_id = ?", sid).Delete(&model.Message{}).Error; err != nil {
			logger.Error(err, "%v: delete persisted messages for %s failed", config.ModuleChat, sid)
		}
	}

	return apperror.Success(config.ModuleChat, c, apperror.SuccessMessage{
		Message:    "conversation reset",
		TrackingID: trackingID,
	})
}

// persistMessages stores the exchange for later inspection. Best effort: a
// write failure never fails the query that already succeeded.
func persistMessages(sid, question, answer string) {
	db, err := database.GetDB()
	if err != nil {
		logger.Error(err, "%v: db unavailable, skipping message persistence", config.ModuleChat)
		return
	}
	now := time.Now()
	rows := []model.Message{
		{SessionID: sid, Role: "user", Content: question, CreatedAt: &now},
		{SessionID: sid, Role: "assistant", Content: answer, CreatedAt: &now},
	}
	if err := db.Create(&rows).Error; err != nil {
		logger.Error(err, "%v: persist messages for %s failed", config.ModuleChat, sid)
	}
}
