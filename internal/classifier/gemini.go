package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClassifier calls the Gemini generateContent API with a few-shot
// prompt and parses the JSON classification out of the model reply.
type GeminiClassifier struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClassifier builds the adapter from classifier configuration.
func NewGeminiClassifier(cfg config.ClassifierConfig) *GeminiClassifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClassifier{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Config   geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify sends the prompt and validates the parsed result against the
// closed department set. Any transport failure, non-200 status, or response
// that cannot be parsed into a valid result reports ErrUnavailable.
func (g *GeminiClassifier) Classify(ctx context.Context, title, description string) (domain.ClassificationResult, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(title, description)}}}},
		Config:   geminiGenConfig{Temperature: 0.1, MaxOutputTokens: 500},
	})
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ClassificationResult{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, payload)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return domain.ClassificationResult{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	return parseModelReply(parsed.Candidates[0].Content.Parts[0].Text)
}

// parseModelReply extracts the JSON object from the model text and validates
// it. Malformed replies are ErrUnavailable, never coerced.
func parseModelReply(text string) (domain.ClassificationResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return domain.ClassificationResult{}, fmt.Errorf("%w: no JSON object in reply", ErrUnavailable)
	}

	var payload struct {
		Department string  `json:"department"`
		Team       string  `json:"team"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: parse reply: %v", ErrUnavailable, err)
	}

	result := domain.ClassificationResult{
		Label:      domain.Department(strings.ToUpper(strings.TrimSpace(payload.Department))),
		AssignedTo: payload.Team,
		Confidence: payload.Confidence,
		Reasoning:  payload.Reasoning,
	}
	if err := validateResult(result); err != nil {
		return domain.ClassificationResult{}, err
	}
	return result, nil
}

func buildPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString(`You are an expert ticket classifier for a corporate environment.
Classify the incoming ticket into one department.

Available departments: IT, HR, FINANCE, FACILITIES, LEGAL, SECURITY, GENERAL
Answer UNKNOWN only when the ticket cannot be classified at all.

Examples:

Title: VPN connection issues after Windows update
Description: Cannot connect to company VPN after latest Windows update.
Department: IT, Team: network_team

Title: New employee onboarding documents
Description: Need to complete I-9 forms and benefits enrollment for new hire.
Department: HR, Team: hr_operations

Title: Expense report approval delayed
Description: Submitted expense report two weeks ago, still pending approval.
Department: FINANCE, Team: finance_team

Title: Suspicious email with potential malware
Description: Received suspicious email with attachment, may be phishing.
Department: SECURITY, Team: infosec_team

Now classify this ticket:

Title: `)
	b.WriteString(title)
	b.WriteString("\nDescription: ")
	b.WriteString(description)
	b.WriteString(`

Reply with exactly this JSON:
{"department": "DEPARTMENT_NAME", "team": "specific_team_name", "confidence": 0.95, "reasoning": "brief explanation"}

Be conservative with confidence scores. Use GENERAL only when no other
department clearly fits.`)
	return b.String()
}

var _ Classifier = (*GeminiClassifier)(nil)
