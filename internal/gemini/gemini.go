// Package gemini generates short parish introductions with the Gemini
// API. The persona keeps the copy warm and non-doctrinal so lapsed
// readers are not put off.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"modu-catholic/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	generatePath   = "/v1beta/models/gemini-2.0-flash:generateContent"
	requestTimeout = 30 * time.Second

	closestCount = 2
)

const systemInstruction = `당신은 가톨릭 성당 정보 서비스 '모두의성당'의 친절한 안내원입니다.
성당을 소개하는 짧은 글을 작성해주세요.

## 작성 규칙
1. **어조**: 30대 냉담 교우도 부담을 느끼지 않는 따뜻하고 환대하는 어조. 교조적이거나 딱딱한 말투는 금지.
2. **분량**: 3~4문장 (100~150자 내외)
3. **구조**:
   - 첫 문장: 성당의 위치를 주변 랜드마크와 함께 설명
   - 중간: 방문하기 좋은 이유나 분위기 언급
   - 마지막: 환영 인사 또는 방문 권유

## 금지 사항
- "하느님", "주님" 등 종교적 표현 과도하게 사용 금지
- "~하시옵소서" 등 고어체 사용 금지
- 너무 긴 설명이나 교리적 내용 금지

## 예시
"**노브랜드 세종조치원점(533m)**과 가까워 장보기 전후에 들르기 좋습니다.
현대적인 시설과 따뜻한 신자분들이 반겨주는 곳이에요.
편하게 미사에 참례해 보세요!"`

// Client is a Gemini generateContent API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gemini client. An empty baseURL selects the
// production endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GenerateIntro writes a short introduction for the parish. Callers
// fall back to FallbackIntro when the API is unavailable.
func (c *Client) GenerateIntro(ctx context.Context, p model.Parish) (string, error) {
	reqBody := map[string]interface{}{
		"system_instruction": map[string]interface{}{
			"parts": []map[string]string{
				{"text": systemInstruction},
			},
		},
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]string{
					{"text": buildPrompt(p)},
				},
			},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	u := c.baseURL + generatePath + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	var sb strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	intro := strings.TrimSpace(sb.String())
	if intro == "" {
		return "", fmt.Errorf("empty response from API")
	}
	return intro, nil
}

// FallbackIntro is the static copy used when generation fails.
func FallbackIntro(p model.Parish) string {
	return fmt.Sprintf("%s은 %s 근처에 위치한 따뜻한 공동체입니다. 편하게 방문해 보세요!",
		p.Name, LandmarkSummary(p.Landmarks))
}

func buildPrompt(p model.Parish) string {
	var sb strings.Builder
	sb.WriteString("다음 성당에 대한 소개글을 작성해주세요:\n\n")
	fmt.Fprintf(&sb, "- 성당명: %s\n", p.Name)
	fmt.Fprintf(&sb, "- 주소: %s\n", p.Address)
	fmt.Fprintf(&sb, "- 주변 랜드마크: %s\n", LandmarkSummary(p.Landmarks))
	if p.Pastor != "" {
		fmt.Fprintf(&sb, "- 주임신부: %s (반드시 언급: '현재 **%s**과 함께하는 따뜻한 공동체입니다.')\n",
			p.Pastor, p.Pastor)
	}
	return sb.String()
}

// LandmarkSummary describes the closest landmarks, nearest first.
func LandmarkSummary(landmarks []model.Landmark) string {
	if len(landmarks) == 0 {
		return "주변에 다양한 편의시설이 있습니다."
	}

	sorted := slices.Clone(landmarks)
	slices.SortStableFunc(sorted, func(a, b model.Landmark) int {
		return a.DistanceMeters() - b.DistanceMeters()
	})
	if len(sorted) > closestCount {
		sorted = sorted[:closestCount]
	}

	parts := make([]string, 0, len(sorted))
	for _, lm := range sorted {
		parts = append(parts, fmt.Sprintf("**%s(%dm)** - %s", lm.Name, lm.DistanceMeters(), lm.Category))
	}
	return strings.Join(parts, ", ")
}
