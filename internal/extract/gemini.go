package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for field extraction.
const DefaultModelName = "gemini-2.0-flash"

// Extractor produces validated document fields from file bytes.
type Extractor interface {
	ExtractFields(ctx context.Context, data []byte, mimeType string) (*Fields, error)
}

// GeminiExtractor extracts receipt/invoice fields with Gemini.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor returns an extractor using the given model, or
// DefaultModelName when empty.
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

// ExtractFields sends the document to Gemini and returns the parsed
// result. It expects the model to return a STRICT JSON object.
func (e *GeminiExtractor) ExtractFields(ctx context.Context, data []byte, mimeType string) (*Fields, error) {
	prompt :=
		"You are a receipt and invoice parser for small-business bookkeeping.\n\n" +
			"Task:\n" +
			"- Read the attached receipt or invoice.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"vendor\": string (the merchant or issuer name)\n" +
			"- \"amount\": number (the total paid, always positive)\n" +
			"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
			"- \"currency\": string or null (e.g. \"USD\")\n" +
			"- \"confidence\": number between 0 and 1 (how certain you are overall)\n\n" +
			"Rules:\n" +
			"- Use the grand total including tax, not a line item.\n" +
			"- If the document shows several dates, use the payment date.\n" +
			"- Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	fields, err := Transform(parsed)
	if err != nil {
		return nil, fmt.Errorf("validate extraction: %w", err)
	}
	return fields, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
