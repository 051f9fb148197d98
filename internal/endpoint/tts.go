package endpoint

import (
	"errors"
	"net/http"
	"strings"
)

// TTSRequest is the payload accepted by the text-to-speech endpoint.
type TTSRequest struct {
	Text      string `json:"text"`
	VoiceName string `json:"voice_name"`
}

func (r *TTSRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	if strings.TrimSpace(r.VoiceName) == "" {
		return errors.New("voice_name is required")
	}
	return nil
}

// benchmarkText exercises digits, dates and punctuation in one sentence.
const benchmarkText = "8월 4일, 월요일. 테스트 문장입니다."

const benchmarkVoice = "sample_female"

// TTSHandler forwards text-to-speech requests to the model server's /generate.
type TTSHandler struct {
	// Runs is the number of synthetic runs when this is the benchmark handler.
	Runs int
	// Healthcheck is the model server healthcheck path; empty when the server has none.
	Healthcheck string
}

var _ Benchmarker = TTSHandler{}

func (TTSHandler) Endpoint() string { return "/generate" }

func (h TTSHandler) HealthcheckEndpoint() string { return h.Healthcheck }

func (TTSHandler) NewPayload() Payload { return &TTSRequest{} }

func (TTSHandler) GeneratePayloadJSON(p Payload) (any, error) {
	req, ok := p.(*TTSRequest)
	if !ok {
		return nil, errors.New("tts: unexpected payload type")
	}
	return map[string]any{"text": req.Text, "voice_name": req.VoiceName}, nil
}

func (TTSHandler) MakeBenchmarkPayload() Payload {
	return &TTSRequest{Text: benchmarkText, VoiceName: benchmarkVoice}
}

func (h TTSHandler) BenchmarkRuns() int { return h.Runs }

// GenerateClientResponse maps every upstream status to a defined client reply.
func (TTSHandler) GenerateClientResponse(up UpstreamResponse) Response {
	switch {
	case up.Status >= 200 && up.Status < 300:
		return JSONResponse(up.Status, up.Body)
	case up.Status >= 400 && up.Status < 600:
		// 4xx and 5xx keep the upstream status
		return ErrorResponse(up.Status, UpstreamStatusError{Status: up.Status, Body: string(up.Body)}.Error())
	default:
		return ErrorResponse(http.StatusBadGateway, UpstreamStatusError{Status: up.Status, Body: string(up.Body)}.Error())
	}
}
