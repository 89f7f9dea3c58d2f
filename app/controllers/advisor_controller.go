package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
)

// AdvisorController serves the chat and guide JSON endpoints. Replies always
// carry text; model failures arrive as the fallback sentence.
type AdvisorController struct {
	advisor *services.AdvisorService
}

func NewAdvisorController(advisor *services.AdvisorService) *AdvisorController {
	return &AdvisorController{advisor: advisor}
}

// Blank values are allowed: the advisor answers them with its defaults.
type chatRequest struct {
	Message string `json:"message" validate:"max=4000"`
}

type cropRequest struct {
	Crop string `json:"crop" validate:"max=100"`
}

type diseaseRequest struct {
	Disease string `json:"disease" validate:"max=200"`
}

func (a *AdvisorController) Chat(c *ctx.Context) {
	var req chatRequest
	if !c.BindJSON(&req) {
		return
	}
	c.JSON(http.StatusOK, map[string]string{"response": a.advisor.Chat(c.Context(), req.Message)})
}

func (a *AdvisorController) OrganicGuidance(c *ctx.Context) {
	var req cropRequest
	if !c.BindJSON(&req) {
		return
	}
	c.JSON(http.StatusOK, map[string]string{"guide": a.advisor.OrganicGuide(c.Context(), req.Crop)})
}

func (a *AdvisorController) YieldOptimization(c *ctx.Context) {
	var req cropRequest
	if !c.BindJSON(&req) {
		return
	}
	c.JSON(http.StatusOK, map[string]string{"guide": a.advisor.YieldGuide(c.Context(), req.Crop)})
}

func (a *AdvisorController) DiseaseSolution(c *ctx.Context) {
	var req diseaseRequest
	if !c.BindJSON(&req) {
		return
	}
	c.JSON(http.StatusOK, map[string]string{"solution": a.advisor.DiseaseSolution(c.Context(), req.Disease)})
}
