// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxParseAttempts = 3

// ErrEmptyResponse is returned when the model produces no choices.
var ErrEmptyResponse = errors.New("classifier returned no choices")

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// classification mirrors the JSON object the model is asked to produce.
// Optional fields are pointers so null and absent are both "unknown".
type classification struct {
	Role             string   `json:"role"`
	SectorFocus      []string `json:"sector_focus"`
	StageFocus       []string `json:"stage_focus"`
	CheckSizeMin     *float64 `json:"check_size_min"`
	CheckSizeMax     *float64 `json:"check_size_max"`
	InvestmentThesis *string  `json:"investment_thesis"`
	Location         *string  `json:"location"`
	Tags             []string `json:"tags"`
	Confidence       *float64 `json:"confidence"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify asks the model to classify a contact. Malformed JSON is retried up
// to three times; transport errors are returned immediately.
func (c *Classifier) Classify(ctx context.Context, name, company, position string) (ai.Classification, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(name, company, position)),
	}

	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(500),
			llms.WithJSONMode(),
		)
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "name", name, "err", err)
			return ai.UnknownClassification(), err
		}
		if len(response.Choices) < 1 {
			return ai.UnknownClassification(), ErrEmptyResponse
		}

		result, err := parseClassification(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		c.logger.Debug("classified contact", "name", name, "role", result.Role, "confidence", result.Confidence)
		return result, nil
	}

	c.logger.Error("failed to parse classifier response after retries", "name", name, "err", lastErr)
	return ai.UnknownClassification(), lastErr
}

// parseClassification decodes a model response into a normalized Classification.
func parseClassification(text string) (ai.Classification, error) {
	var raw classification
	if err := json.Unmarshal([]byte(repairJSON(stripCodeFences(text))), &raw); err != nil {
		return ai.UnknownClassification(), err
	}

	result := ai.Classification{
		Role:        core.ParseRole(raw.Role),
		SectorFocus: cleanList(raw.SectorFocus),
		StageFocus:  cleanList(raw.StageFocus),
		Tags:        cleanList(raw.Tags),
	}
	if raw.InvestmentThesis != nil {
		result.InvestmentThesis = *raw.InvestmentThesis
	}
	if raw.Location != nil {
		result.Location = *raw.Location
	}
	if raw.Confidence != nil {
		result.Confidence = math.Max(0, math.Min(1, *raw.Confidence))
	}

	result.CheckSizeMin = checkSize(raw.CheckSizeMin)
	result.CheckSizeMax = checkSize(raw.CheckSizeMax)
	if result.CheckSizeMin != nil && result.CheckSizeMax != nil && *result.CheckSizeMin > *result.CheckSizeMax {
		result.CheckSizeMin, result.CheckSizeMax = result.CheckSizeMax, result.CheckSizeMin
	}
	return result, nil
}

// checkSize converts a JSON number to whole dollars, dropping negative,
// non-finite and out-of-range values.
func checkSize(v *float64) *int64 {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no int64 can hold
	if *v >= math.MaxInt64 {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}
