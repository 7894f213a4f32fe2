package web

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-empathy/pkg/prompt"
	"github.com/teslashibe/go-empathy/pkg/respond"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
	"github.com/teslashibe/go-empathy/pkg/tier"
)

// RespondRequest is the body of POST /api/respond.
type RespondRequest struct {
	UserID     string             `json:"user_id"`
	Emotion    string             `json:"emotion"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Context    string             `json:"context"`
	Transcript string             `json:"transcript"`
	Speak      bool               `json:"speak"`
	Voice      string             `json:"voice"`
	Language   string             `json:"language"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID   string        `json:"user_id"`
	Message  string        `json:"message"`
	Emotion  string        `json:"emotion"`
	History  []prompt.Turn `json:"history"`
	Speak    bool          `json:"speak"`
	Voice    string        `json:"voice"`
	Language string        `json:"language"`
}

// SpeakRequest is the body of POST /api/speak.
type SpeakRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// AttemptInfo describes one tier visit.
type AttemptInfo struct {
	Tier      string `json:"tier"`
	Outcome   string `json:"outcome"`
	Class     string `json:"class,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// AudioInfo is synthesized audio in a response.
type AudioInfo struct {
	Data              string  `json:"data"`
	MIMEType          string  `json:"mime_type"`
	SampleRate        int     `json:"sample_rate"`
	EstimatedDuration float64 `json:"estimated_duration"`
	Provider          string  `json:"provider"`
}

// SpeechInfo is the speech chain outcome.
type SpeechInfo struct {
	Audio        *AudioInfo    `json:"audio"`
	ProviderUsed string        `json:"provider_used"`
	IsFallback   bool          `json:"is_fallback"`
	Attempts     []AttemptInfo `json:"attempts"`
}

// ReplyResponse is returned by /api/respond and /api/chat.
type ReplyResponse struct {
	Response     string        `json:"response"`
	Emotion      string        `json:"emotion"`
	Model        string        `json:"model"`
	ProviderUsed string        `json:"provider_used"`
	IsFallback   bool          `json:"is_fallback"`
	Attempts     []AttemptInfo `json:"attempts"`
	ElapsedMs    int64         `json:"elapsed_ms"`
	Speech       *SpeechInfo   `json:"speech,omitempty"`
	RecordID     *string       `json:"record_id"`
}

func (s *Server) handleRespond(c *fiber.Ctx) error {
	var req RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.Emotion == "" && len(req.Scores) > 0 {
		req.Emotion, req.Confidence = dominant(req.Scores)
	}

	ctx := c.UserContext()
	result := s.config.Responder.Respond(ctx, respond.Request{
		Emotion:     req.Emotion,
		Confidence:  req.Confidence,
		ContextNote: req.Context,
		Transcript:  req.Transcript,
	})

	resp := replyResponse(req.Emotion, result)
	if req.Speak {
		resp.Speech = s.speak(c, speech.Request{Text: result.Payload.Text, Voice: req.Voice, Language: req.Language})
	}

	resp.RecordID = s.save(c, store.Record{
		UserID:       req.UserID,
		Type:         store.TypeRespond,
		Input:        req.Transcript,
		Emotion:      req.Emotion,
		Confidence:   req.Confidence,
		Scores:       req.Scores,
		Response:     result.Payload.Text,
		ProviderUsed: result.ProviderUsed,
		IsFallback:   result.IsFallback,
	})
	return c.JSON(resp)
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	}

	result := s.config.Responder.Continue(c.UserContext(), respond.ConversationRequest{
		Message: req.Message,
		Emotion: req.Emotion,
		History: req.History,
	})

	resp := replyResponse(req.Emotion, result)
	if req.Speak {
		resp.Speech = s.speak(c, speech.Request{Text: result.Payload.Text, Voice: req.Voice, Language: req.Language})
	}

	resp.RecordID = s.save(c, store.Record{
		UserID:       req.UserID,
		Type:         store.TypeChat,
		Input:        req.Message,
		Emotion:      req.Emotion,
		Response:     result.Payload.Text,
		ProviderUsed: result.ProviderUsed,
		IsFallback:   result.IsFallback,
	})
	return c.JSON(resp)
}

func (s *Server) handleSpeak(c *fiber.Ctx) error {
	var req SpeakRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	info := s.speak(c, speech.Request{Text: req.Text, Voice: req.Voice, Language: req.Language})
	s.save(c, store.Record{
		UserID:       req.UserID,
		Type:         store.TypeSpeak,
		Input:        req.Text,
		ProviderUsed: info.ProviderUsed,
		IsFallback:   info.IsFallback,
	})
	return c.JSON(info)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	f := store.Filter{
		UserID:  c.Query("user_id"),
		Type:    c.Query("type"),
		Emotion: c.Query("emotion"),
		Limit:   c.QueryInt("limit", store.DefaultLimit),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "since must be RFC3339")
		}
		f.Since = t
	}

	if s.config.Store == nil {
		return c.JSON(fiber.Map{"records": s.recentMatching(f), "source": "memory"})
	}

	records, err := s.config.Store.Query(c.UserContext(), f)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "history unavailable")
	}
	if records == nil {
		records = []store.Record{}
	}
	return c.JSON(fiber.Map{"records": records, "source": "store"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"version":        s.config.Version,
		"uptime_seconds": int64(time.Since(s.start).Seconds()),
		"store":          s.config.Store != nil,
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	if s.config.Metrics == nil {
		return c.SendString("")
	}
	return s.config.Metrics.WritePrometheus(c.Response().BodyWriter())
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= 500 {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// speak runs the speech chain; a nil Speaker yields a fallback result.
func (s *Server) speak(c *fiber.Ctx, req speech.Request) *SpeechInfo {
	if s.config.Speaker == nil {
		return &SpeechInfo{ProviderUsed: tier.FallbackName, IsFallback: true, Attempts: []AttemptInfo{}}
	}
	result := s.config.Speaker.Synthesize(c.UserContext(), req)

	info := &SpeechInfo{
		ProviderUsed: result.ProviderUsed,
		IsFallback:   result.IsFallback,
		Attempts:     attemptInfos(result.Attempts),
	}
	if a := result.Payload; a != nil {
		info.Audio = &AudioInfo{
			Data:              a.Base64(),
			MIMEType:          a.Format.Encoding.MIMEType(),
			SampleRate:        a.Format.SampleRate,
			EstimatedDuration: a.EstimatedDuration,
			Provider:          a.Provider,
		}
	}
	return info
}

// save stores r and returns its ID. Store errors are logged, not returned.
func (s *Server) save(c *fiber.Ctx, r store.Record) *string {
	r.Timestamp = time.Now()
	if s.config.Store == nil {
		s.remember(r)
		return nil
	}

	id, err := s.config.Store.Save(c.UserContext(), &r)
	if err != nil {
		s.logger.Warn("failed to save interaction",
			"type", r.Type,
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err,
		)
		s.remember(r)
		return nil
	}
	s.remember(r)
	return &id
}

func replyResponse(emotion string, result respond.Result) ReplyResponse {
	return ReplyResponse{
		Response:     result.Payload.Text,
		Emotion:      emotion,
		Model:        result.Payload.Model,
		ProviderUsed: result.ProviderUsed,
		IsFallback:   result.IsFallback,
		Attempts:     attemptInfos(result.Attempts),
		ElapsedMs:    result.Elapsed.Milliseconds(),
	}
}

func attemptInfos(attempts []tier.Attempt) []AttemptInfo {
	out := make([]AttemptInfo, 0, len(attempts))
	for _, a := range attempts {
		info := AttemptInfo{
			Tier:      a.Tier,
			Outcome:   string(a.Outcome),
			ElapsedMs: a.Elapsed.Milliseconds(),
		}
		if a.Outcome != tier.OutcomeSuccess {
			info.Class = a.Class.String()
		}
		if a.Err != nil {
			info.Error = a.Err.Error()
		}
		out = append(out, info)
	}
	return out
}

// dominant returns the highest-scoring emotion. Ties go to the
// alphabetically first key.
func dominant(scores map[string]float64) (string, float64) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestScore := "", -1.0
	for _, k := range keys {
		if scores[k] > bestScore {
			best, bestScore = k, scores[k]
		}
	}
	return best, bestScore
}
