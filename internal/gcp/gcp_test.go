package gcp

import (
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PMF_STRING", "value")
	t.Setenv("PMF_DURATION", "90s")
	t.Setenv("PMF_BAD_DURATION", "-5s")
	t.Setenv("PMF_INT", "1024")
	t.Setenv("PMF_BAD_INT", "0")
	t.Setenv("PMF_FLOAT", "0.75")
	t.Setenv("PMF_OUT_OF_RANGE", "1.5")
	t.Setenv("PMF_LIST", " eng, chi_sim ,,")

	assert.Equal(t, "value", GetEnv("PMF_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("PMF_UNSET", "fallback"))

	d, err := GetEnvDuration("PMF_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	d, err = GetEnvDuration("PMF_UNSET", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
	_, err = GetEnvDuration("PMF_BAD_DURATION", time.Minute)
	assert.Error(t, err)

	n, err := GetEnvInt64("PMF_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), n)
	_, err = GetEnvInt64("PMF_BAD_INT", 1)
	assert.Error(t, err)

	f, err := GetEnvFloat("PMF_FLOAT", 0.5, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.75, f)
	_, err = GetEnvFloat("PMF_OUT_OF_RANGE", 0.5, 0, 1)
	assert.Error(t, err)

	assert.Equal(t, []string{"eng", "chi_sim"}, GetEnvList("PMF_LIST", nil))
	assert.Equal(t, []string{"*"}, GetEnvList("PMF_UNSET", []string{"*"}))
}

func TestParseLayoutResponse(t *testing.T) {
	regions, err := ParseLayoutResponse(`[{"type":"Title","content":""},{"type":" table ","content":"<table></table>"}]`)
	require.NoError(t, err)
	assert.Equal(t, []models.LayoutRegion{
		{Type: "title", Content: ""},
		{Type: "table", Content: "<table></table>"},
	}, regions)

	regions, err = ParseLayoutResponse("")
	require.NoError(t, err)
	assert.Empty(t, regions)

	_, err = ParseLayoutResponse("I cannot help with that.")
	assert.Error(t, err)
}

func TestExtractJSONContent(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("```json\n[{\"type\":\"table\",\"content\":\"x\"}]\n```")}},
		}},
	}
	assert.Equal(t, `[{"type":"table","content":"x"}]`, extractJSONContent(resp))
	assert.Empty(t, extractJSONContent(nil))
	assert.Empty(t, extractJSONContent(&genai.GenerateContentResponse{}))
}

func TestNewVertexClient_RequiresProject(t *testing.T) {
	_, err := NewVertexClient(t.Context(), VertexConfig{Region: "us-central1"})
	assert.Error(t, err)
}
