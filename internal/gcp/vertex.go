package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
)

// --- Layout Model Prompts ---
const LayoutSystemPrompt = "You are a document layout analysis tool. Your task is to locate the regions of a scanned page image and classify them. You must output your response as a valid JSON array."
const LayoutUserPrompt = `Analyze the provided page image and identify its layout regions.

Follow these rules precisely:
1.  Classify each region as one of: "text", "title", "figure", "list", "table".
2.  Create a JSON object for each region, in reading order.
3.  Each JSON object must have exactly two keys:
    - "type": one of the region types above.
    - "content": for "table" regions, the table transcribed as HTML (<table>...</table>); for every other type, an empty string.
4.  The final output MUST be a single, valid JSON array of these objects. If the page has no regions, return [].

Example output format:
[
  {"type": "title", "content": ""},
  {"type": "table", "content": "<table><tr><td>Item</td><td>Qty</td></tr></table>"}
]`

// VertexConfig selects the project and model used for layout detection.
type VertexConfig struct {
	ProjectID       string
	Region          string
	Model           string
	CredentialsFile string
}

// LoadVertexConfig reads the Vertex AI settings. An empty ProjectID means
// layout detection is not configured.
func LoadVertexConfig() VertexConfig {
	return VertexConfig{
		ProjectID:       GetEnv("PROJECT_ID", ""),
		Region:          GetEnv("VERTEX_AI_REGION", "us-central1"),
		Model:           GetEnv("VERTEX_AI_MODEL", "gemini-1.5-pro"),
		CredentialsFile: GetEnv("VERTEX_AI_CREDENTIALS_FILE", ""),
	}
}

// VertexClient holds the pre-configured generative model for page layout
// detection. It is built once per process and is safe for concurrent use.
type VertexClient struct {
	LayoutModel *genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexClient creates a new client holding the layout model.
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	layoutModel := baseClient.GenerativeModel(cfg.Model)
	layoutModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(LayoutSystemPrompt)},
	}
	layoutModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output so the response can be decoded into regions.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		LayoutModel: layoutModel,
		baseClient:  baseClient,
	}, nil
}

// DetectLayout sends one PNG page image to the layout model and returns the
// regions it reports.
func (c *VertexClient) DetectLayout(ctx context.Context, png []byte) ([]models.LayoutRegion, error) {
	resp, err := c.LayoutModel.GenerateContent(ctx, genai.ImageData("png", png), genai.Text(LayoutUserPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate layout from gemini: %w", err)
	}
	return ParseLayoutResponse(extractJSONContent(resp))
}

// ParseLayoutResponse decodes the model's JSON array. An empty response is
// treated as a page without regions.
func ParseLayoutResponse(raw string) ([]models.LayoutRegion, error) {
	if raw == "" {
		return nil, nil
	}
	var regions []models.LayoutRegion
	if err := json.Unmarshal([]byte(raw), &regions); err != nil {
		return nil, fmt.Errorf("failed to parse layout JSON from model: %w", err)
	}
	for i := range regions {
		regions[i].Type = strings.ToLower(strings.TrimSpace(regions[i].Type))
	}
	return regions, nil
}

// extractJSONContent robustly gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	// Clean potential markdown fences just in case
	cleanJSON := strings.TrimSpace(b.String())
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
