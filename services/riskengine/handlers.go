package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"neurogate/pkg/audit"
	"neurogate/pkg/baseline"
	"neurogate/pkg/entropy"
	"neurogate/pkg/metrics"
	"neurogate/pkg/physics"
	"neurogate/pkg/proof"
	"neurogate/pkg/ratelimit"
	"neurogate/pkg/session"
	"neurogate/pkg/telemetry"
)

type verifyRequest struct {
	UserID    string           `json:"userId"`
	Telemetry telemetryPayload `json:"telemetry"`
	Timestamp int64            `json:"timestamp"`
}

// telemetryPayload shadows the entropy score with a pointer so an absent
// field is distinguishable from a client-computed zero.
type telemetryPayload struct {
	telemetry.Snapshot
	EntropyScore *float64 `json:"entropyScore"`
}

// snapshot resolves the wire payload: an explicit score is honored as sent,
// a missing one is derived from the pointer path.
func (p telemetryPayload) snapshot() telemetry.Snapshot {
	snap := p.Snapshot
	if p.EntropyScore != nil {
		snap.EntropyScore = *p.EntropyScore
	} else if len(snap.PointerPath) >= 3 {
		snap.EntropyScore = entropy.Score(snap.PointerPath)
	}
	return snap
}

type verifyResponse struct {
	TrustScore        float64 `json:"trustScore"`
	RequiresChallenge bool    `json:"requiresChallenge"`
	ChallengeType     string  `json:"challengeType,omitempty"`
	Proof             string  `json:"proof,omitempty"`
}

type challengeRequest struct {
	UserID    string           `json:"userId"`
	Success   bool             `json:"success"`
	Timestamp int64            `json:"timestamp"`
	Trace     []physics.Sample `json:"trace,omitempty"`
}

type challengeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Proof   string `json:"proof,omitempty"`
}

type eventListResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

type server struct {
	manager   *session.Manager
	auditLog  *audit.Log
	baselines baseline.Store
	issuer    *proof.Issuer
	limiter   *ratelimit.Limiter

	verifyTotal    *metrics.LabeledCounter
	challengeTotal *metrics.LabeledCounter
	trustScores    *metrics.Histogram
}

func newServer(manager *session.Manager, auditLog *audit.Log, baselines baseline.Store, issuer *proof.Issuer, limiter *ratelimit.Limiter, reg *metrics.Registry) *server {
	s := &server{
		manager:        manager,
		auditLog:       auditLog,
		baselines:      baselines,
		issuer:         issuer,
		limiter:        limiter,
		verifyTotal:    metrics.NewLabeledCounter("riskengine_verify_total", "Verification attempts by result", []string{"result"}),
		challengeTotal: metrics.NewLabeledCounter("riskengine_challenge_total", "Challenge completions by result", []string{"result"}),
		trustScores:    metrics.NewHistogram("riskengine_trust_score", "Distribution of computed trust scores", []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}),
	}
	reg.RegisterLabeled(s.verifyTotal)
	reg.RegisterLabeled(s.challengeTotal)
	reg.RegisterHistogram(s.trustScores)
	return s
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/verify", s.handleVerify)
	mux.HandleFunc("/api/v1/challenge", s.handleChallenge)
	mux.HandleFunc("/api/v1/admin/events", s.handleEvents)
	mux.HandleFunc("/", s.handleRoot)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "riskengine"})
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "NeuroGate Risk Engine",
		"version": "1.0",
	})
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ip := clientIP(r)
	if allowed, _ := s.limiter.Allow(r.Context(), "verify:"+ip); !allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	snap := req.Telemetry.snapshot()
	assessment, kind, err := s.manager.BeginLogin(req.UserID, ip, snap)
	if err != nil {
		s.verifyTotal.Inc(map[string]string{"result": "invalid"})
		writeCoreError(w, err)
		return
	}

	s.trustScores.Observe(assessment.Score)

	resp := verifyResponse{
		TrustScore:        assessment.Score,
		RequiresChallenge: assessment.RequiresChallenge,
	}
	if assessment.RequiresChallenge {
		resp.ChallengeType = string(kind)
		s.verifyTotal.Inc(map[string]string{"result": "challenge"})
		log.Printf("[api] user=%s score=%.1f challenge=%s factors=%v", req.UserID, assessment.Score, kind, assessment.Factors)
	} else {
		// Only accepted sessions train the fingerprint; a scripted attempt
		// must not steer a user's baseline.
		s.updateBaseline(r, req.UserID, snap)
		s.verifyTotal.Inc(map[string]string{"result": "success"})
		if token, perr := s.issuer.Issue(req.UserID, assessment.Score); perr == nil {
			resp.Proof = token
		} else {
			log.Printf("[api] proof issue failed for user=%s: %v", req.UserID, perr)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ip := clientIP(r)
	if allowed, _ := s.limiter.Allow(r.Context(), "challenge:"+ip); !allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	passed, assessment, verdict, err := s.manager.CompleteChallenge(req.UserID, req.Success, req.Trace)
	if err != nil {
		s.challengeTotal.Inc(map[string]string{"result": "invalid"})
		writeCoreError(w, err)
		return
	}

	if !passed {
		s.challengeTotal.Inc(map[string]string{"result": "rejected"})
		// The failed attempt is reported once and then cleared so the user
		// can retry from login.
		if rerr := s.manager.Reset(req.UserID); rerr != nil {
			log.Printf("[api] reset after failed challenge user=%s: %v", req.UserID, rerr)
		}
		msg := "challenge failed"
		if verdict != nil {
			msg = "movement pattern not recognized as human"
			log.Printf("[api] user=%s physics verdict: confidence=%.2f reasons=%v", req.UserID, verdict.Confidence, verdict.Reasons)
		}
		writeJSON(w, http.StatusOK, challengeResponse{Status: "rejected", Message: msg})
		return
	}

	s.challengeTotal.Inc(map[string]string{"result": "accepted"})
	resp := challengeResponse{Status: "accepted"}
	if token, perr := s.issuer.Issue(req.UserID, assessment.Score); perr == nil {
		resp.Proof = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	events := s.auditLog.List()
	writeJSON(w, http.StatusOK, eventListResponse{Events: events, Count: len(events)})
}

// updateBaseline folds the accepted snapshot into the user's behavioral
// fingerprint. Baseline state is advisory; store failures are logged, never
// surfaced to the caller.
func (s *server) updateBaseline(r *http.Request, userID string, snap telemetry.Snapshot) {
	ctx := r.Context()
	fp, found, err := s.baselines.Load(ctx, userID)
	if err != nil {
		log.Printf("[baseline] load user=%s: %v", userID, err)
		return
	}
	if found {
		log.Printf("[baseline] user=%s similarity=%.2f samples=%d", userID, baseline.Compare(fp, snap), fp.SampleCount)
	}
	fp = baseline.Train(fp, userID, snap)
	if err := s.baselines.Save(ctx, fp); err != nil {
		log.Printf("[baseline] save user=%s: %v", userID, err)
	}
}

func writeCoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, telemetry.ErrInvalidInput) || errors.Is(err, session.ErrInvalidTransition) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
