package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// Param sources recorded on generate_content tasks.
const (
	SourceScheduler = "scheduler"
	SourcePriority  = "priority"
	SourceManual    = "manual"
)

// GenerateContentParams drives a content generation task.
type GenerateContentParams struct {
	Platform        string `json:"platform,omitempty"`
	ContentType     string `json:"content_type,omitempty"`
	Topic           string `json:"topic,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ContentStrategy string `json:"content_strategy,omitempty"`
	MediaStrategy   string `json:"media_strategy,omitempty"`
	Slot            string `json:"slot,omitempty"`
	Source          string `json:"source,omitempty"`
}

// PublishCheckParams names the content item a publish check targets.
type PublishCheckParams struct {
	ContentID string `json:"content_id"`
}

// BatchParams bounds batch-style maintenance tasks.
type BatchParams struct {
	Limit int `json:"limit,omitempty"`
}

// ProjectParams is the empty payload of project-scoped analysis tasks.
type ProjectParams struct{}

// EncodeParams marshals a typed param struct for storage.
func EncodeParams(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return data, nil
}

func decodeStrict(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode params: %v", services.ErrValidation, err)
	}
	return nil
}

// DecodeGenerateContent decodes and validates generate_content params. Missing
// fields take explicit defaults: platform "facebook", content type "post",
// source "manual".
func DecodeGenerateContent(raw json.RawMessage) (GenerateContentParams, error) {
	var p GenerateContentParams
	if err := decodeStrict(raw, &p); err != nil {
		return GenerateContentParams{}, err
	}
	p.Platform = strings.ToLower(strings.TrimSpace(p.Platform))
	if p.Platform == "" {
		p.Platform = "facebook"
	}
	p.ContentType = strings.ToLower(strings.TrimSpace(p.ContentType))
	if p.ContentType == "" {
		p.ContentType = "post"
	}
	p.Topic = strings.TrimSpace(p.Topic)
	p.Notes = strings.TrimSpace(p.Notes)
	p.ContentStrategy = strings.TrimSpace(p.ContentStrategy)
	p.MediaStrategy = strings.TrimSpace(p.MediaStrategy)
	p.Source = strings.TrimSpace(p.Source)
	if p.Source == "" {
		p.Source = SourceManual
	}
	if p.Source == SourcePriority && p.Topic == "" {
		return GenerateContentParams{}, fmt.Errorf("%w: priority task requires a topic", services.ErrValidation)
	}
	return p, nil
}

// DecodePublishCheck decodes publish_check params; content_id is required.
func DecodePublishCheck(raw json.RawMessage) (PublishCheckParams, error) {
	var p PublishCheckParams
	if err := decodeStrict(raw, &p); err != nil {
		return PublishCheckParams{}, err
	}
	p.ContentID = strings.TrimSpace(p.ContentID)
	if p.ContentID == "" {
		return PublishCheckParams{}, fmt.Errorf("%w: content_id is required", services.ErrValidation)
	}
	return p, nil
}

// DecodeBatch decodes batch params, substituting fallback when no positive
// limit is given.
func DecodeBatch(raw json.RawMessage, fallback int) (BatchParams, error) {
	var p BatchParams
	if err := decodeStrict(raw, &p); err != nil {
		return BatchParams{}, err
	}
	if p.Limit < 0 {
		return BatchParams{}, fmt.Errorf("%w: limit must not be negative", services.ErrValidation)
	}
	if p.Limit == 0 {
		p.Limit = fallback
	}
	return p, nil
}

// DecodeProject validates that a project-scoped payload carries no fields.
func DecodeProject(raw json.RawMessage) (ProjectParams, error) {
	var p ProjectParams
	return p, decodeStrict(raw, &p)
}
