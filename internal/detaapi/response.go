// Package detaapi decodes the JSON payloads returned by the Base HTTP API.
package detaapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Paging is the continuation block of a query response. Last is the opaque
// key a follow-up page request resumes from; the final page omits it.
type Paging struct {
	Size int    `json:"size"`
	Last string `json:"last,omitempty"`
}

// QueryResponse is the shape of a query endpoint response.
type QueryResponse struct {
	Items  []map[string]any `json:"items"`
	Paging Paging           `json:"paging"`
}

// DecodeQueryResponse parses a query response body.
func DecodeQueryResponse(body []byte) (*QueryResponse, error) {
	var resp QueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("detaapi: decode query response: %w", err)
	}
	return &resp, nil
}

// PutResponse reports which items a batch put stored and which were
// rejected.
type PutResponse struct {
	Processed []map[string]any
	Failed    []map[string]any
}

// DecodePutResponse parses a batch put response body. Either block may be
// absent when empty.
func DecodePutResponse(body []byte) (*PutResponse, error) {
	var envelope struct {
		Processed struct {
			Items []map[string]any `json:"items"`
		} `json:"processed"`
		Failed struct {
			Items []map[string]any `json:"items"`
		} `json:"failed"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("detaapi: decode put response: %w", err)
	}
	return &PutResponse{
		Processed: envelope.Processed.Items,
		Failed:    envelope.Failed.Items,
	}, nil
}

// DecodeItem parses a single-item body. Empty bodies and JSON null decode to
// a nil map so callers can treat "absent" uniformly.
func DecodeItem(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var item map[string]any
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, fmt.Errorf("detaapi: decode item: %w", err)
	}
	return item, nil
}
