// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
)

// HTTPQualityService calls the quality/AI-detection sidecar over HTTP.
//
// The sidecar owns the statistical methods; this client only moves JSON.
// Endpoints:
//
//	POST {base}/v1/analyze  {"text": ...} -> QualityMetrics
//	POST {base}/v1/detect   {"text": ...} -> AIDetectionResult
type HTTPQualityService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQualityService creates a client for the quality sidecar.
//
// baseURL is the sidecar root (e.g. http://quality:8085). The HTTP client
// timeout is a transport-level backstop; per-call deadlines come from the
// caller's context.
func NewHTTPQualityService(baseURL string) *HTTPQualityService {
	return &HTTPQualityService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// post sends a JSON body and decodes the JSON response into out.
func (s *HTTPQualityService) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("quality sidecar returned non-200", "path", path,
			"status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Analyze implements QualityService.
func (s *HTTPQualityService) Analyze(ctx context.Context, text string) (*buffer.QualityMetrics, error) {
	var metrics buffer.QualityMetrics
	if err := s.post(ctx, "/v1/analyze", map[string]string{"text": text}, &metrics); err != nil {
		return nil, err
	}
	if metrics.AnalyzedAt.IsZero() {
		metrics.AnalyzedAt = time.Now().UTC()
	}
	return &metrics, nil
}

// DetectAI implements QualityService.
func (s *HTTPQualityService) DetectAI(ctx context.Context, text string) (*AIDetectionResult, error) {
	var result AIDetectionResult
	if err := s.post(ctx, "/v1/detect", map[string]string{"text": text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

var _ QualityService = (*HTTPQualityService)(nil)
