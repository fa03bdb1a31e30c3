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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRewriter implements RewriteService and EmbeddingService against
// the OpenAI API (or any compatible endpoint via OPENAI_BASE_URL).
type OpenAIRewriter struct {
	client *openai.Client
	model  string
	embed  string
}

// NewOpenAIRewriter creates a rewriter from environment configuration.
//
// Reads OPENAI_API_KEY (falling back to the /run/secrets/openai_api_key
// secret file), OPENAI_MODEL (default gpt-4o-mini), OPENAI_EMBED_MODEL
// (default text-embedding-3-small), and OPENAI_BASE_URL.
func NewOpenAIRewriter() (*OpenAIRewriter, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	embedModel := os.Getenv("OPENAI_EMBED_MODEL")
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	slog.Info("Initializing OpenAI rewrite client", "model", model, "embed_model", embedModel)
	return &OpenAIRewriter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		embed:  embedModel,
	}, nil
}

// rewriteSystemPrompt builds the system prompt for a rewrite mode.
func rewriteSystemPrompt(params map[string]any) string {
	mode := optStringParam(params, "mode", "humanize")
	if mode == "persona" {
		persona := optStringParam(params, "persona", "a professional editor")
		return fmt.Sprintf("You rewrite text in the voice and style of %s. "+
			"Preserve the meaning, structure, and factual content exactly. "+
			"Return only the rewritten text.", persona)
	}
	intensity := optStringParam(params, "intensity", "moderate")
	return fmt.Sprintf("You rewrite text so it reads as naturally human-authored "+
		"(%s intensity): vary sentence rhythm, soften formulaic phrasing, keep the "+
		"meaning intact. Return only the rewritten text.", intensity)
}

// Rewrite implements RewriteService.
func (o *OpenAIRewriter) Rewrite(ctx context.Context, text string, params map[string]any) (*RewriteResult, error) {
	slog.Debug("Rewriting text via OpenAI", "model", o.model, "chars", len(text))

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rewriteSystemPrompt(params)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	if instructions := optStringParam(params, "instructions", ""); instructions != "" {
		req.Messages = append(req.Messages[:1], append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
		}, req.Messages[1:]...)...)
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI rewrite call failed", "error", err)
		return nil, fmt.Errorf("openai rewrite: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai rewrite: no choices returned")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	return &RewriteResult{
		Text:           out,
		ChangesApplied: []string{optStringParam(params, "mode", "humanize") + " rewrite"},
		Model:          o.model,
	}, nil
}

// Embed implements EmbeddingService via the embeddings endpoint.
func (o *OpenAIRewriter) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embed),
		Input: []string{text},
	})
	if err != nil {
		slog.Error("OpenAI embedding call failed", "error", err)
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}
	return resp.Data[0].Embedding, nil
}

var (
	_ RewriteService   = (*OpenAIRewriter)(nil)
	_ EmbeddingService = (*OpenAIRewriter)(nil)
)
