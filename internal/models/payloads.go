package models

// These structs define the JSON payloads exchanged between the client, the
// gateway and the two converter services.

// Upload is a PDF received in a multipart request. It lives for one request.
type Upload struct {
	Filename string
	Data     []byte
}

// ConvertResponse is the success body of a converter's /convert endpoint.
type ConvertResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET / on every service.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProcessingMethod labels which converter produced a gateway response.
type ProcessingMethod string

const (
	MethodTextExtraction ProcessingMethod = "text extraction"
	MethodOCR            ProcessingMethod = "OCR"
)

// Fields the gateway adds to a converter's response body.
const (
	FieldContent          = "content"
	FieldProcessingMethod = "processing_method"
	FieldFilename         = "filename"
)

// LayoutRegion is one region reported by a page layout engine. Content is
// the engine's own representation and is rendered verbatim.
type LayoutRegion struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// RegionTable is the LayoutRegion type rendered into table fragments.
const RegionTable = "table"
