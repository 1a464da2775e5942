package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/drone-geolocator/geoindex"
	"github.com/signalsfoundry/drone-geolocator/model"
)

type addObservationRequest struct {
	TargetID      string         `json:"target_id"`
	DronePosition model.Position `json:"drone_position"`
	BearingDeg    float64        `json:"bearing_deg"`
	ElevationDeg  float64        `json:"elevation_deg"`
	Confidence    *float64       `json:"confidence"` // optional; defaults to 1.0
}

type targetRequest struct {
	TargetID string `json:"target_id"`
}

type correlateRequest struct {
	ImageB64            string          `json:"image_b64"`
	Telemetry           model.Telemetry `json:"telemetry"`
	ConfidenceThreshold float64         `json:"confidence_threshold"` // optional; engine default applies
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	id := s.triangulation.CreateTarget()
	s.setTargetGauge()
	writeJSON(w, http.StatusOK, map[string]string{"target_id": id})
}

func (s *Server) handleAddObservation(w http.ResponseWriter, r *http.Request) {
	var req addObservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TargetID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "target_id is required")
		return
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	obsID := s.triangulation.AddObservation(
		req.TargetID, req.DronePosition, req.BearingDeg, req.ElevationDeg, confidence)
	if s.collector != nil {
		s.collector.ObservationsAdded.Inc()
	}
	s.setTargetGauge()
	writeJSON(w, http.StatusOK, map[string]string{"observation_id": obsID})
}

func (s *Server) handleCalculatePosition(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TargetID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "target_id is required")
		return
	}

	est, err := s.triangulation.CalculatePosition(req.TargetID)
	if s.collector != nil {
		s.collector.PositionCalcs.WithLabelValues(calcOutcome(err)).Inc()
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.index != nil {
		s.index.Upsert(geoindex.TargetPoint{
			TargetID:  req.TargetID,
			Latitude:  est.Latitude,
			Longitude: est.Longitude,
		})
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleResetTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reset := s.triangulation.ResetTarget(req.TargetID)
	if reset && s.index != nil {
		// The estimate is void once its observations are gone.
		s.index.Remove(req.TargetID)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": reset})
}

func (s *Server) handleResolveTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": s.triangulation.MarkResolved(req.TargetID)})
}

type targetSummary struct {
	TargetID         string `json:"target_id"`
	Status           string `json:"status"`
	ObservationCount int    `json:"observation_count"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets := s.triangulation.Targets()
	summaries := make([]targetSummary, 0, len(targets))
	for _, tgt := range targets {
		summaries = append(summaries, targetSummary{
			TargetID:         tgt.ID,
			Status:           tgt.Status.String(),
			ObservationCount: len(tgt.Observations),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]targetSummary{"targets": summaries})
}

func (s *Server) handleNearbyTargets(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeErrorMsg(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	radiusM := 1000.0
	if raw := r.URL.Query().Get("radius_m"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeErrorMsg(w, http.StatusBadRequest, "radius_m must be a positive number")
			return
		}
		radiusM = v
	}

	points := []geoindex.TargetPoint{}
	if s.index != nil {
		points = s.index.Nearby(lat, lon, radiusM)
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": points})
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "image_b64 is not valid base64")
		return
	}

	result, err := s.correlation.Correlate(r.Context(), image, req.Telemetry, req.ConfidenceThreshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.collector != nil {
		s.collector.Correlations.WithLabelValues(strconv.FormatBool(result.Accepted)).Inc()
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) setTargetGauge() {
	if s.collector != nil {
		s.collector.ActiveTargets.Set(float64(len(s.triangulation.ListTargets())))
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
