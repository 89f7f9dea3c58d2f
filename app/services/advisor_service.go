package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/krishimitra/pkg/ai"
)

const (
	defaultCrop    = "unknown crop"
	defaultDisease = "unknown disease"
)

// Each guide is a fixed outline so replies come back in the same shape.
const (
	organicGuidePrompt = `Provide a detailed step-by-step guide for organic cultivation of %[1]s. Include the following:
1. Soil Preparation: How to prepare the soil for %[1]s.
2. Seed Selection: How to choose the best seeds for %[1]s.
3. Planting: Step-by-step instructions for planting %[1]s.
4. Fertilization: Organic fertilizers and how to apply them for %[1]s.
5. Pest Control: Organic methods to control pests for %[1]s.
6. Harvesting: When and how to harvest %[1]s.
Provide clear and detailed instructions for each step. Use ** for headings and * for bullet points.`

	yieldGuidePrompt = `Provide a detailed guide to maximize the yield of %[1]s. Include the following:
1. Soil Health: How to test and improve soil health for %[1]s.
2. Irrigation: Best practices for watering %[1]s.
3. Pest Management: Organic and sustainable methods to control pests for %[1]s.
4. Harvesting: Optimal harvesting techniques for %[1]s.
5. Post-Harvest Care: How to store and handle %[1]s after harvesting.
Provide clear and detailed instructions for each step. Use ** for headings and * for bullet points.`

	diseaseSolutionPrompt = `Provide a detailed solution for managing and treating %[1]s in crops. Include the following:
1. Symptoms: Key symptoms of %[1]s.
2. Causes: Common causes of %[1]s.
3. Prevention: Methods to prevent %[1]s.
4. Treatment: Effective treatments for %[1]s.
5. Organic Remedies: Organic methods to control %[1]s.
Provide clear and detailed instructions for each step.`
)

// Asker answers a prompt with text and never fails.
type Asker interface {
	Ask(ctx context.Context, prompt string) string
}

// AdvisorService builds prompts for the chat and guide endpoints.
type AdvisorService struct {
	ai Asker
}

func NewAdvisorService(a Asker) *AdvisorService {
	return &AdvisorService{ai: a}
}

// Chat forwards message verbatim. A blank message gets the fallback without
// a model call.
func (s *AdvisorService) Chat(ctx context.Context, message string) string {
	if strings.TrimSpace(message) == "" {
		return ai.Fallback
	}
	return s.ai.Ask(ctx, message)
}

func (s *AdvisorService) OrganicGuide(ctx context.Context, crop string) string {
	return s.ai.Ask(ctx, OrganicGuidePrompt(crop))
}

func (s *AdvisorService) YieldGuide(ctx context.Context, crop string) string {
	return s.ai.Ask(ctx, YieldGuidePrompt(crop))
}

func (s *AdvisorService) DiseaseSolution(ctx context.Context, disease string) string {
	return s.ai.Ask(ctx, DiseaseSolutionPrompt(disease))
}

func OrganicGuidePrompt(crop string) string {
	return fmt.Sprintf(organicGuidePrompt, orDefault(crop, defaultCrop))
}

func YieldGuidePrompt(crop string) string {
	return fmt.Sprintf(yieldGuidePrompt, orDefault(crop, defaultCrop))
}

func DiseaseSolutionPrompt(disease string) string {
	return fmt.Sprintf(diseaseSolutionPrompt, orDefault(disease, defaultDisease))
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
