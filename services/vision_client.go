package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// extractionPrompt is the fixed instruction sent with every screenshot. The
// service must answer with a bare JSON object carrying exactly these keys.
const extractionPrompt = `Extract the match result from this screenshot. ` +
	`Respond with only a JSON object with exactly these keys and nothing else: ` +
	`{"rank": <int>, "kills": <int>, "maxCapacity": <int>, "playerName": <string>}. ` +
	`Use 0 or "" for values not visible.`

// MatchAnalysis is the structured result extracted from a screenshot.
type MatchAnalysis struct {
	Rank        int    `json:"rank"`
	Kills       int    `json:"kills"`
	MaxCapacity int    `json:"maxCapacity"`
	PlayerName  string `json:"playerName"`
}

// HasSignal reports whether the analysis carries any usable data. An
// all-empty extraction means the screenshot was unreadable.
func (a *MatchAnalysis) HasSignal() bool {
	return a.Rank != 0 || a.Kills != 0 || strings.TrimSpace(a.PlayerName) != ""
}

// VisionClient calls the external image-understanding service.
type VisionClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewVisionClient(baseURL, token string) *VisionClient {
	return &VisionClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// AnalyzeScreenshot sends the image plus the extraction prompt and parses
// the response under the strict four-key contract.
func (c *VisionClient) AnalyzeScreenshot(ctx context.Context, image []byte, contentType string) (*MatchAnalysis, error) {
	url := fmt.Sprintf("%s/v1/vision/analyze", c.BaseURL)

	reqBody := map[string]interface{}{
		"prompt":       extractionPrompt,
		"image_base64": base64.StdEncoding.EncodeToString(image),
		"content_type": contentType,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision service call failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		log.Printf("[VISION] service returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("vision service returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}

	return ParseMatchAnalysis(out.Text)
}

// ParseMatchAnalysis enforces the extraction contract: the text must be a
// bare JSON object with exactly rank, kills, maxCapacity and playerName.
// Markdown fences, surrounding prose, missing or extra keys, and wrong value
// types are all hard failures; there is no lenient re-parse. An object whose
// three signal fields are all empty also fails, as AnalysisFailed.
func ParseMatchAnalysis(text string) (*MatchAnalysis, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrAnalysisFailed)
	}
	if len(raw) != 4 {
		return nil, fmt.Errorf("%w: expected exactly 4 keys, got %d", ErrAnalysisFailed, len(raw))
	}

	var analysis MatchAnalysis
	intFields := map[string]*int{
		"rank":        &analysis.Rank,
		"kills":       &analysis.Kills,
		"maxCapacity": &analysis.MaxCapacity,
	}
	for key, dst := range intFields {
		val, ok := raw[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrAnalysisFailed, key)
		}
		if err := json.Unmarshal(val, dst); err != nil {
			return nil, fmt.Errorf("%w: key %q is not an integer", ErrAnalysisFailed, key)
		}
	}
	val, ok := raw["playerName"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", ErrAnalysisFailed, "playerName")
	}
	if err := json.Unmarshal(val, &analysis.PlayerName); err != nil {
		return nil, fmt.Errorf("%w: key %q is not a string", ErrAnalysisFailed, "playerName")
	}

	if !analysis.HasSignal() {
		return nil, fmt.Errorf("%w: no usable signal in extraction", ErrAnalysisFailed)
	}
	return &analysis, nil
}
