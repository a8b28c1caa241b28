package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMatchAnalysis_Valid(t *testing.T) {
	a, err := ParseMatchAnalysis(`{"rank": 3, "kills": 7, "maxCapacity": 64, "playerName": "SniperWolf"}`)
	require.NoError(t, err)
	require.Equal(t, 3, a.Rank)
	require.Equal(t, 7, a.Kills)
	require.Equal(t, 64, a.MaxCapacity)
	require.Equal(t, "SniperWolf", a.PlayerName)
}

func TestParseMatchAnalysis_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "markdown fenced", text: "```json\n{\"rank\":1,\"kills\":2,\"maxCapacity\":64,\"playerName\":\"x\"}\n```"},
		{name: "surrounding prose", text: `Here is the result: {"rank":1,"kills":2,"maxCapacity":64,"playerName":"x"}`},
		{name: "empty string", text: ""},
		{name: "json array", text: `[1,2,3,4]`},
		{name: "missing key", text: `{"rank":1,"kills":2,"maxCapacity":64}`},
		{name: "extra key", text: `{"rank":1,"kills":2,"maxCapacity":64,"playerName":"x","score":10}`},
		{name: "rank as string", text: `{"rank":"1","kills":2,"maxCapacity":64,"playerName":"x"}`},
		{name: "kills as float", text: `{"rank":1,"kills":2.5,"maxCapacity":64,"playerName":"x"}`},
		{name: "playerName as number", text: `{"rank":1,"kills":2,"maxCapacity":64,"playerName":42}`},
		{name: "renamed key", text: `{"rank":1,"kills":2,"max_capacity":64,"playerName":"x"}`},
		{name: "all empty signal", text: `{"rank":0,"kills":0,"maxCapacity":64,"playerName":""}`},
		{name: "whitespace player name only", text: `{"rank":0,"kills":0,"maxCapacity":0,"playerName":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMatchAnalysis(tt.text)
			require.ErrorIs(t, err, ErrAnalysisFailed)
		})
	}
}

func TestParseMatchAnalysis_PartialSignalSucceeds(t *testing.T) {
	// Kills alone count as signal even when rank and name are unreadable.
	a, err := ParseMatchAnalysis(`{"rank":0,"kills":4,"maxCapacity":0,"playerName":""}`)
	require.NoError(t, err)
	require.Equal(t, 4, a.Kills)
}

func TestVisionClient_AnalyzeScreenshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/vision/analyze", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req struct {
			Prompt      string `json:"prompt"`
			ImageBase64 string `json:"image_base64"`
			ContentType string `json:"content_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Prompt)
		require.NotEmpty(t, req.ImageBase64)
		require.Equal(t, "image/png", req.ContentType)

		json.NewEncoder(w).Encode(map[string]string{
			"text": `{"rank":2,"kills":5,"maxCapacity":60,"playerName":"Ace"}`,
		})
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "test-token")
	a, err := client.AnalyzeScreenshot(context.Background(), []byte("fake-png"), "image/png")
	require.NoError(t, err)
	require.Equal(t, 2, a.Rank)
	require.Equal(t, 5, a.Kills)
	require.Equal(t, "Ace", a.PlayerName)
}

func TestVisionClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "test-token")
	_, err := client.AnalyzeScreenshot(context.Background(), []byte("fake"), "image/png")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAnalysisFailed)
}

func TestVisionClient_NonContractTextFailsAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "I could not read the screenshot."})
	}))
	defer srv.Close()

	client := NewVisionClient(srv.URL, "test-token")
	_, err := client.AnalyzeScreenshot(context.Background(), []byte("fake"), "image/png")
	require.ErrorIs(t, err, ErrAnalysisFailed)
}
