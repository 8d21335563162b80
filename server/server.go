// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the distillation pipeline and the stored runs over
// a JSON API.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/distill/candidate"
	"github.com/jcodagnone/distill/distill"
)

type Server struct {
	repo   candidate.Repository
	config distill.Config
}

// NewServer returns a server running cfg by default. repo may be nil, in
// which case only POST /api/distill is served.
func NewServer(repo candidate.Repository, cfg distill.Config) *Server {
	return &Server{
		repo:   repo,
		config: cfg,
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	s.register(r)

	return r
}

func (s *Server) register(r gin.IRoutes) {
	r.POST("/api/distill", s.distill)
	r.GET("/api/runs", s.listRuns)
	r.GET("/api/runs/:run/candidates", s.runCandidates)
	r.POST("/api/runs/:run/distill", s.distillRun)
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	log.Printf("Serving the distillation API on %s (pipeline %s)", addr, s.config)

	return s.Router().Run(addr)
}

// DistillRequest is the body of POST /api/distill. Config defaults to the
// server configuration.
type DistillRequest struct {
	Config     *distill.Config        `json:"config,omitempty"`
	Candidates []*candidate.Candidate `json:"candidates"`
}

// RunDistillRequest is the optional body of POST /api/runs/:run/distill.
type RunDistillRequest struct {
	Config *distill.Config `json:"config,omitempty"`
}

// Representative is a candidate together with the ids it absorbed.
type Representative struct {
	*candidate.Candidate
	RelatedIDs []int64 `json:"related_ids"`
}

// DistillResponse is the outcome of a pipeline run.
type DistillResponse struct {
	Candidates []Representative      `json:"candidates"`
	Stages     []distill.StageResult `json:"stages"`
}

func representatives(cands []*candidate.Candidate) []Representative {
	ret := make([]Representative, 0, len(cands))

	for _, c := range cands {
		flat := *c
		flat.Related = nil

		ret = append(ret, Representative{
			Candidate:  &flat,
			RelatedIDs: c.RelatedIDs(),
		})
	}

	return ret
}

func (s *Server) pipeline(cfg *distill.Config) (*distill.Pipeline, error) {
	if cfg == nil {
		return s.config.Build()
	}

	return cfg.Build()
}

func (s *Server) distill(ctx *gin.Context) {
	var req DistillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	for i, c := range req.Candidates {
		if c == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("candidate %d is null", i)})

			return
		}

		if err := c.Validate(); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("candidate %d: %v", i, err)})

			return
		}

		c.Related = nil
	}

	p, err := s.pipeline(req.Config)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	result, err := p.Run(ctx.Request.Context(), req.Candidates)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, DistillResponse{
		Candidates: representatives(result.Candidates),
		Stages:     result.Stages,
	})
}

func (s *Server) requireRepo(ctx *gin.Context) bool {
	if s.repo == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured"})

		return false
	}

	return true
}

func (s *Server) listRuns(ctx *gin.Context) {
	if !s.requireRepo(ctx) {
		return
	}

	runs, err := s.repo.ListRuns()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if runs == nil {
		runs = []candidate.RunSummary{}
	}

	ctx.JSON(http.StatusOK, runs)
}

// runCandidates returns the raw candidates of a run, or the representatives
// of one of its stages with ?stage=.
func (s *Server) runCandidates(ctx *gin.Context) {
	if !s.requireRepo(ctx) {
		return
	}

	run := ctx.Param("run")
	stage := ctx.Query("stage")

	var (
		cands []*candidate.Candidate
		err   error
	)

	if stage == "" {
		cands, err = s.repo.LoadCandidates(run)
	} else {
		cands, err = s.repo.LoadDistilled(run, stage)
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if len(cands) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no candidates found"})

		return
	}

	ctx.JSON(http.StatusOK, representatives(cands))
}

// distillRun runs the pipeline over a stored run, saving every stage.
func (s *Server) distillRun(ctx *gin.Context) {
	if !s.requireRepo(ctx) {
		return
	}

	var req RunDistillRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	p, err := s.pipeline(req.Config)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	run := ctx.Param("run")

	cands, err := s.repo.LoadCandidates(run)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if len(cands) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no candidates found"})

		return
	}

	p.OnStage(func(sr distill.StageResult) error {
		return s.repo.SaveDistilled(run, sr.Name, sr.Candidates)
	})

	result, err := p.Run(ctx.Request.Context(), cands)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	log.Printf("Distilled run %s: %d candidates in, %d out", run, len(cands), len(result.Candidates))

	ctx.JSON(http.StatusOK, DistillResponse{
		Candidates: representatives(result.Candidates),
		Stages:     result.Stages,
	})
}
