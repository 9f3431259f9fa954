package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/whispersub/internal/audio"
)

// OpenAIModel runs the hosted Whisper API over sequential chunks.
type OpenAIModel struct {
	client   openai.Client
	model    string
	chunkLen time.Duration
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAIModel(apiKey, model string, chunkLen time.Duration) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "whisper-1"
	}
	if chunkLen <= 0 {
		chunkLen = 10 * time.Minute
	}

	return &OpenAIModel{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		chunkLen: chunkLen,
	}, nil
}

func (m *OpenAIModel) Name() string { return "openai " + m.model }

func (m *OpenAIModel) Close() error { return nil }

func (m *OpenAIModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Stream, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	chunks, cleanup, err := prepareCloudAudio(ctx, audioPath, m.chunkLen)
	if err != nil {
		return nil, err
	}

	return newChunkedStream(ctx, chunks, opts.Language,
		func(ctx context.Context, c audio.ChunkInfo) (chunkResult, error) {
			return m.transcribeChunk(ctx, c, opts)
		}, cleanup)
}

func (m *OpenAIModel) transcribeChunk(ctx context.Context, chunk audio.ChunkInfo, opts Options) (chunkResult, error) {
	file, err := os.Open(chunk.Path)
	if err != nil {
		return chunkResult{}, fmt.Errorf("failed to open audio chunk: %w", err)
	}
	defer file.Close()

	fallback := chunk.EndTime - chunk.StartTime

	var raw, text string
	if opts.Task == TaskTranslate {
		resp, err := m.client.Audio.Translations.New(ctx, openai.AudioTranslationNewParams{
			File:           file,
			Model:          openai.AudioModel(m.model),
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		})
		if err != nil {
			return chunkResult{}, fmt.Errorf("translation failed: %w", err)
		}
		raw, text = resp.RawJSON(), resp.Text
	} else {
		params := openai.AudioTranscriptionNewParams{
			File:                   file,
			Model:                  openai.AudioModel(m.model),
			ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
			TimestampGranularities: []string{"segment"},
		}
		if opts.Language != "" {
			params.Language = openai.String(opts.Language)
		}
		resp, err := m.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return chunkResult{}, fmt.Errorf("transcription failed: %w", err)
		}
		raw, text = resp.RawJSON(), resp.Text
	}

	res, err := parseVerboseJSONResponse(raw, fallback)
	if err != nil {
		// plain text answer, keep it as one segment for the whole chunk
		res = chunkResult{Segments: []Segment{{End: fallback, Text: strings.TrimSpace(text)}}}
	}
	if opts.Task == TaskTranslate {
		// translations report the output language
		res.Language = ""
	}
	return res, nil
}

func parseVerboseJSONResponse(rawJSON string, fallbackDuration time.Duration) (chunkResult, error) {
	if rawJSON == "" {
		return chunkResult{}, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return chunkResult{}, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	res := chunkResult{Language: whisperLanguageCode(verboseResp.Language)}

	if len(verboseResp.Segments) == 0 {
		if strings.TrimSpace(verboseResp.Text) == "" {
			return chunkResult{}, fmt.Errorf("no segments or text in response")
		}
		dur := fallbackDuration
		if verboseResp.Duration > 0 {
			dur = seconds(verboseResp.Duration)
		}
		res.Segments = []Segment{{End: dur, Text: strings.TrimSpace(verboseResp.Text)}}
		return res, nil
	}

	segments := make([]Segment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		segments = append(segments, Segment{
			Start: seconds(seg.Start),
			End:   seconds(seg.End),
			Text:  seg.Text,
		})
	}
	res.Segments = clean(segments)
	return res, nil
}

// the API reports languages by English name ("tamil")
var whisperLanguageNames = map[string]string{
	"english": "en", "tamil": "ta", "hindi": "hi", "telugu": "te",
	"malayalam": "ml", "kannada": "kn", "bengali": "bn", "marathi": "mr",
	"gujarati": "gu", "punjabi": "pa", "urdu": "ur", "spanish": "es",
	"french": "fr", "german": "de", "italian": "it", "portuguese": "pt",
	"russian": "ru", "japanese": "ja", "korean": "ko", "chinese": "zh",
	"arabic": "ar", "turkish": "tr", "dutch": "nl", "polish": "pl",
	"indonesian": "id", "vietnamese": "vi", "thai": "th", "ukrainian": "uk",
}

func whisperLanguageCode(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := whisperLanguageNames[name]; ok {
		return code
	}
	return name
}
