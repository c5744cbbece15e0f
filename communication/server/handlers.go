package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/config"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	req := communication.SequenceRequest{N: meta.SEQUENCE_LENGTH}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sim.Sequence(r.Context(), req)
	s.respond(w, res, err)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req communication.EvaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sim.Evaluate(r.Context(), req)
	s.respond(w, res, err)
}

func (s *Server) handleStoppingBatch(w http.ResponseWriter, r *http.Request) {
	req := communication.StoppingBatchRequest{N: meta.SEQUENCE_LENGTH, Trials: meta.CHECKPOINT_TRIALS}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sim.RunStopping(r.Context(), req)
	if err == nil {
		s.log.Info().Str("id", res.ID).Msgf("stopping batch n=%d cutoff=%d: win rate %.4f over %d trials", req.N, req.Cutoff, res.WinRate, res.Tally.Trials)
	}
	s.respond(w, res, err)
}

func (s *Server) handleFundPath(w http.ResponseWriter, r *http.Request) {
	req := communication.FundPathRequest{Params: defaultFund()}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sim.FundPath(r.Context(), req)
	s.respond(w, res, err)
}

func (s *Server) handleFundBatch(w http.ResponseWriter, r *http.Request) {
	req := communication.FundBatchRequest{Params: defaultFund(), Sims: meta.FUND_SIMS}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sim.RunFund(r.Context(), req)
	if err == nil {
		s.log.Info().Str("id", res.ID).Msgf("fund batch f=%.2f p=%.3f b=%.2f: median %.2f over %d sims", req.Fraction, req.Probability, req.Payout, res.Result.Median, res.Result.Sims)
	}
	s.respond(w, res, err)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	res, err := s.sim.Scenario(r.Context(), chi.URLParam(r, "lab"))
	s.respond(w, res, err)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.sim.Audit(r.Context(), chi.URLParam(r, "lab"), q.Get("market"), q.Get("sector"))
	s.respond(w, res, err)
}

func defaultFund() fund.Params {
	return fund.Params{Initial: meta.STARTING_BALANCE, Steps: meta.FUND_STEPS}
}

// decode reads the request body over the defaults already in v and checks its
// tags. It writes the error response itself and reports whether to continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if s.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var perr *params.Error
		if errors.As(err, &perr) { // from UnmarshalText of an enum field
			respondError(w, err)
			return false
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(w, http.StatusRequestEntityTooLarge, communication.ErrorResponse{Error: err.Error()})
			return false
		}
		respondJSON(w, http.StatusBadRequest, communication.ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	if err := config.Struct(v); err != nil {
		respondError(w, err)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, res any, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn().Err(err).Msg("request cancelled")
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError maps validation failures to 400 with the offending parameter,
// cancelled batches to 503 and everything else to 400.
func respondError(w http.ResponseWriter, err error) {
	body := communication.ErrorResponse{Error: err.Error()}
	status := http.StatusBadRequest

	var perr *params.Error
	switch {
	case errors.As(err, &perr):
		body.Parameter = perr.Name
		body.Value = perr.Value
		body.Range = perr.Range
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, body)
}
