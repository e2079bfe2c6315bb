package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

const defaultRecordingName = "recording.wav"

// VoiceChat uploads one recorded utterance and returns the transcribed
// user text, the assistant reply and the synthesized audio path.
func (c *Client) VoiceChat(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
	name := req.Audio.FileName
	if name == "" {
		name = defaultRecordingName
	}

	form := newMultipartForm()
	form.file("audio_file", name, bytes.NewReader(req.Audio.Data))
	form.field("voice", req.Voice)
	form.field("model", req.Model)
	form.field("speed", formatSpeed(req.Speed))
	if req.SessionID != nil {
		form.field("session_id", strconv.FormatInt(*req.SessionID, 10))
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, fmt.Errorf("build voice form: %w", err)
	}

	resp, err := c.do(ctx, "voice_chat", http.MethodPost, "/api/voice/chat", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply domain.VoiceReply
	if err := decodeJSON(resp, &reply); err != nil {
		return nil, c.bodyError(ctx, "voice_chat", err)
	}

	c.log.Info("Voice turn answered",
		zap.Int64("session_id", reply.SessionID),
		zap.Int64("message_id", reply.MessageID),
		zap.String("language", reply.Language),
	)
	return &reply, nil
}

// GetVoiceSession loads a stored voice session with its turns.
func (c *Client) GetVoiceSession(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	var w voiceSessionWire
	path := "/api/voice/sessions/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, "voice_session", http.MethodGet, path, nil, &w); err != nil {
		return nil, err
	}

	session := &domain.VoiceSession{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt.Time,
		Turns:     make([]domain.VoiceTurn, 0, len(w.Messages)),
	}
	for _, m := range w.Messages {
		session.Turns = append(session.Turns, domain.VoiceTurn{
			ID:                 m.ID,
			UserAudioRef:       m.UserAudioPath,
			UserText:           m.UserText,
			AIText:             m.AIText,
			AIAudioRef:         m.AIAudioPath,
			Language:           m.Language,
			LanguageConfidence: m.LanguageProbability,
			CreatedAt:          m.CreatedAt.Time,
		})
	}
	return session, nil
}

// formatSpeed renders speed as a decimal string ("1.0", "1.25").
func formatSpeed(speed float64) string {
	s := strconv.FormatFloat(speed, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
