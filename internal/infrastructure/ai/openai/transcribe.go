package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/ports/outbound"
)

var _ outbound.Transcriber = (*Client)(nil)

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio as dictation.<ext> and returns the text
func (c *Client) Transcribe(ctx context.Context, req outbound.TranscriptionRequest) (string, error) {
	if !c.Configured() {
		return "", errNotConfigured()
	}

	body, contentType, err := transcriptionForm(c.transcriptionModel, req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var resp transcriptionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.logger.Info("Audio transcribed",
		zap.String("model", c.transcriptionModel),
		zap.Int("audio_bytes", len(req.Audio)),
		zap.Int("transcript_chars", len(resp.Text)),
	)
	return resp.Text, nil
}

func transcriptionForm(model string, req outbound.TranscriptionRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}
	if req.Language != "" {
		if err := w.WriteField("language", req.Language); err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
	}

	part, err := w.CreateFormFile("file", "dictation."+AudioExtension(req.MimeType))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// AudioExtension picks the upload file extension from a browser mime type
func AudioExtension(mimeType string) string {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "webm"):
		return "webm"
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return "mp3"
	case strings.Contains(m, "mp4"), strings.Contains(m, "m4a"):
		return "mp4"
	case strings.Contains(m, "wav"):
		return "wav"
	case strings.Contains(m, "ogg"):
		return "ogg"
	default:
		return "webm"
	}
}
