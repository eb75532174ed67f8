// Package leaderboard は外部リーダーボードサービスへの結果報告です。
// 試合履歴の永続化はサービス側の責務で、こちらは報告するだけです。
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Report は1試合分の報告内容です。
type Report struct {
	Nickname    string `json:"nickname"`
	Token       string `json:"token"`
	Score       int    `json:"score"`
	TotalRounds int    `json:"totalRounds"`
}

// Ack はサービスからの応答です。Winnerはその時点の首位者です。
type Ack struct {
	Success bool   `json:"success"`
	Winner  string `json:"winner"`
}

// Reporter は試合結果の報告先です。
type Reporter interface {
	Report(ctx context.Context, r Report) (Ack, error)
}

// HTTPReporter はJSONをPOSTするReporter実装です。
type HTTPReporter struct {
	endpoint string
	client   *http.Client
}

func NewHTTPReporter(endpoint string) *HTTPReporter {
	return &HTTPReporter{
		endpoint: endpoint,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

func (h *HTTPReporter) Report(ctx context.Context, r Report) (Ack, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Ack{}, fmt.Errorf("marshal report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Ack{}, fmt.Errorf("leaderboard responded %d", resp.StatusCode)
	}
	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

// NopReporter はオフラインプレイ用の何もしないReporterです。
type NopReporter struct{}

func (NopReporter) Report(context.Context, Report) (Ack, error) {
	return Ack{Success: true}, nil
}
