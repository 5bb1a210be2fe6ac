package models

// Part is a single piece of content
type Part struct {
	Text string `json:"text"`
}

// Content is one turn of a generate request
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerateRequest is the body of a generateContent call
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// NewGenerateRequest builds a request holding the system instruction followed
// by the query, both as user turns. No earlier turns are ever included.
func NewGenerateRequest(system, query string) GenerateRequest {
	return GenerateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: system}}},
			{Role: "user", Parts: []Part{{Text: query}}},
		},
	}
}
