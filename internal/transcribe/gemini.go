package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mgpai22/whispersub/internal/audio"
)

// GeminiModel asks a Gemini model for timestamped segments, one chunk at a
// time.
type GeminiModel struct {
	client   *genai.Client
	model    string
	chunkLen time.Duration
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type geminiTranscript struct {
	Language string
	Segments []transcriptSegment
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

func NewGeminiModel(ctx context.Context, apiKey, model string, chunkLen time.Duration) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if chunkLen <= 0 {
		chunkLen = 10 * time.Minute
	}

	return &GeminiModel{
		client:   client,
		model:    model,
		chunkLen: chunkLen,
	}, nil
}

func (m *GeminiModel) Name() string { return "gemini " + m.model }

// the genai client holds no resources that need releasing
func (m *GeminiModel) Close() error { return nil }

func (m *GeminiModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Stream, error) {
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

func (m *GeminiModel) transcribeChunk(ctx context.Context, chunk audio.ChunkInfo, opts Options) (chunkResult, error) {
	uploadedFile, err := m.client.Files.UploadFromPath(ctx, chunk.Path, nil)
	if err != nil {
		return chunkResult{}, fmt.Errorf("failed to upload audio file: %w", err)
	}
	defer func() {
		_, _ = m.client.Files.Delete(ctx, uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(buildTranscriptionPrompt(opts)),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return chunkResult{}, fmt.Errorf("transcription failed: %w", err)
	}

	text, err := responseText(result)
	if err != nil {
		return chunkResult{}, err
	}
	tr, err := extractTranscript(text)
	if err != nil {
		return chunkResult{}, fmt.Errorf("failed to parse transcription: %w", err)
	}

	res := chunkResult{Language: tr.Language}
	for _, ts := range tr.Segments {
		res.Segments = append(res.Segments, Segment{
			Start: seconds(ts.Start),
			End:   seconds(ts.End),
			Text:  ts.Text,
		})
	}
	return res, nil
}

// creates the prompt for transcription
func buildTranscriptionPrompt(opts Options) string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the text. ")
	sb.WriteString("Respond with a JSON object with two fields: 'language', the ISO 639-1 code of the spoken language, ")
	sb.WriteString("and 'segments', an array of objects with 'start', 'end' and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if opts.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", DescribeLanguage(opts.Language)))
	}
	if opts.Task == TaskTranslate {
		sb.WriteString("Translate every segment into English; 'text' must be English. ")
	} else {
		sb.WriteString("Keep 'text' in the spoken language. ")
	}

	sb.WriteString("Return ONLY the JSON object, no other text or markdown formatting.")

	return sb.String()
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return sb.String(), nil
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractTranscript finds the first JSON value in s that holds transcript
// segments. Models sometimes wrap the answer in prose or other objects.
func extractTranscript(s string) (geminiTranscript, error) {
	s = cleanJSONResponse(s)

	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var v any
		if err := dec.Decode(&v); err != nil {
			continue
		}
		if tr, ok := transcriptFrom(v); ok {
			return tr, nil
		}
		i += int(dec.InputOffset()) - 1
	}

	return geminiTranscript{}, fmt.Errorf("no transcript segments in response: %s", truncateString(s, 200))
}

func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	tr, err := extractTranscript(s)
	if err != nil {
		return nil, err
	}
	return tr.Segments, nil
}

func transcriptFrom(v any) (geminiTranscript, bool) {
	switch val := v.(type) {
	case []any:
		data, err := json.Marshal(val)
		if err != nil {
			return geminiTranscript{}, false
		}
		var segs []transcriptSegment
		if err := json.Unmarshal(data, &segs); err != nil || !validateSegments(segs) {
			return geminiTranscript{}, false
		}
		return geminiTranscript{Segments: segs}, true

	case map[string]any:
		lang, _ := val["language"].(string)
		for _, key := range wrapperKeys(val) {
			if tr, ok := transcriptFrom(val[key]); ok {
				if tr.Language == "" {
					tr.Language = strings.TrimSpace(lang)
				}
				return tr, true
			}
		}
	}
	return geminiTranscript{}, false
}

// well-known keys first, then the rest in sorted order
func wrapperKeys(m map[string]any) []string {
	preferred := []string{"segments", "transcript", "data"}
	keys := make([]string, 0, len(m))
	for _, k := range preferred {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range m {
		if k != "segments" && k != "transcript" && k != "data" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// at least one segment carries a timestamp or text
func validateSegments(segs []transcriptSegment) bool {
	for _, s := range segs {
		if s.Start != 0 || s.End != 0 || s.Text != "" {
			return true
		}
	}
	return false
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
