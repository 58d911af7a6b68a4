package memory

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dirkdd/onevice/pkg/adapter"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Extractor distills a finished conversation into a structured profile
// record. The LLM behind it is a collaborator; the pipeline depends only
// on the record shape.
type Extractor interface {
	Extract(ctx context.Context, messages []model.Message) (map[string]any, error)
}

type geminiExtractor struct {
	gemini adapter.Gemini
}

// NewGeminiExtractor creates an Extractor backed by the Gemini adapter.
func NewGeminiExtractor(gemini adapter.Gemini) Extractor {
	return &geminiExtractor{gemini: gemini}
}

const extractPrompt = `Extract durable facts about the user from this conversation: stated preferences, their areas of interest, and entertainment-industry entities they work with. Ignore one-off details of the current query.

Respond in JSON with:
- interests (array of strings)
- entities (array of strings): people, organizations, projects mentioned as ongoing concerns
- preferences (array of strings)`

func (e *geminiExtractor) Extract(ctx context.Context, messages []model.Message) (map[string]any, error) {
	if len(messages) == 0 {
		return nil, goerr.New("no conversation to extract from")
	}

	var conv strings.Builder
	for _, m := range messages {
		conv.WriteString(m.Role)
		conv.WriteString(": ")
		conv.WriteString(m.Content)
		conv.WriteString("\n")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extractPrompt, ""),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"interests":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"entities":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"preferences": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(conv.String(), genai.RoleUser),
	}

	resp, err := e.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract conversation facts")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.New("empty extraction response")
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &record); err != nil {
		return nil, goerr.Wrap(err, "failed to decode extraction result")
	}
	return record, nil
}
