// Package api provides a REST API for parsing and retrieving ICAO Field 15
// route descriptions.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"field15parser/internal/field15"
	"field15parser/internal/storage"
)

var tracer = otel.Tracer("field15parser/internal/api")

// Server provides REST API access to the Field 15 parser and its stores.
type Server struct {
	ch          *storage.ClickHouseDB
	pg          *storage.PostgresDB
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the parser API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a new parser API server.
func NewServer(ch *storage.ClickHouseDB, pg *storage.PostgresDB, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		ch:          ch,
		pg:          pg,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	log.Printf("Field 15 API starting at http://localhost%s", addr)
	if s.authEnabled {
		log.Printf("Authentication: ENABLED (API key required)")
	} else {
		log.Printf("Authentication: DISABLED (open access)")
	}

	return http.ListenAndServe(addr, s.Router())
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}
		r.Post("/parse", s.handleParse)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Get("/events", s.handleQueryEvents)
		r.Get("/waypoints/{name}", s.handleGetWaypoint)
		r.Get("/routes", s.handleListATSRoutes)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ParseRequest is the request body for a parse operation.
type ParseRequest struct {
	Field15 string `json:"field15"`
	ADEP    string `json:"adep,omitempty"`
	ADES    string `json:"ades,omitempty"`
	Persist bool   `json:"persist,omitempty"`
}

// ElementResponse mirrors one field15.RouteElement for JSON transport.
type ElementResponse struct {
	PointName string  `json:"point_name"`
	Rules     string  `json:"rules"`
	Speed     string  `json:"speed,omitempty"`
	Level     string  `json:"level,omitempty"`
	BreakText string  `json:"break_text,omitempty"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
}

// ErrorResponse mirrors one field15.ErrorRecord for JSON transport.
type ErrorResponse struct {
	Message string `json:"message"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// ParseResponse is the JSON response for a parse operation.
type ParseResponse struct {
	EventID  uint64            `json:"event_id,omitempty"`
	Elements []ElementResponse `json:"elements"`
	Errors   []ErrorResponse   `json:"errors,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleParse")
	defer span.End()

	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Field15 == "" {
		writeError(w, http.StatusBadRequest, "field15 is required")
		return
	}
	span.SetAttributes(attribute.String("field15.raw", req.Field15))

	ers := field15.ParseF15(field15.Tokenize(req.Field15))
	resp := ersToResponse(ers)

	if req.Persist && s.ch != nil {
		id, err := s.persist(ctx, req, ers)
		if err != nil {
			log.Printf("persist parse event: %v", err)
		} else {
			resp.EventID = id
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) persist(ctx context.Context, req ParseRequest, ers *field15.ExtractedRouteSequence) (uint64, error) {
	var firstError string
	if ers.NumberOfErrors() > 0 {
		firstError = ers.Errors()[0].Message
	}

	id := uint64(time.Now().UnixNano())
	err := s.ch.Insert(ctx, storage.CHInsertParams{
		ID:           id,
		TraceID:      uuid.New(),
		Timestamp:    time.Now().UTC(),
		Rules:        ers.FirstElement().Rules.String(),
		ADEP:         req.ADEP,
		ADES:         req.ADES,
		RawField15:   req.Field15,
		ERS:          ersToResponse(ers).Elements,
		ElementCount: uint32(ers.NumberOfElements()),
		ErrorCount:   uint32(ers.NumberOfErrors()),
		FirstError:   firstError,
	})
	return id, err
}

func ersToResponse(ers *field15.ExtractedRouteSequence) ParseResponse {
	resp := ParseResponse{}
	for i := 0; i < ers.NumberOfElements(); i++ {
		e := ers.ElementAt(i)
		er := ElementResponse{
			PointName: e.PointName,
			Rules:     e.Rules.String(),
			Speed:     e.Speed,
			Level:     e.Level,
			BreakText: e.BreakText,
			Start:     e.Start,
			End:       e.End,
		}
		if e.Coord != nil {
			lat, lon := e.Coord.Decimal()
			er.Lat, _ = lat.Float64()
			er.Lon, _ = lon.Float64()
		}
		resp.Elements = append(resp.Elements, er)
	}
	for _, e := range ers.Errors() {
		resp.Errors = append(resp.Errors, ErrorResponse{Message: e.Message, Start: e.Start, End: e.End})
	}
	return resp
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleGetEvent")
	defer span.End()

	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if s.ch == nil {
		writeError(w, http.StatusServiceUnavailable, "ClickHouse store unavailable")
		return
	}

	event, err := s.ch.GetByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	if s.ch == nil {
		writeError(w, http.StatusServiceUnavailable, "ClickHouse store unavailable")
		return
	}

	q := r.URL.Query()
	params := storage.CHQueryParams{
		Rules:     q.Get("rules"),
		ADEP:      q.Get("adep"),
		ADES:      q.Get("ades"),
		HasErrors: q.Get("has_errors") == "true",
		FullText:  q.Get("q"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		params.Offset = offset
	}

	events, err := s.ch.Query(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetWaypoint(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "PostgreSQL store unavailable")
		return
	}

	name := strings.ToUpper(chi.URLParam(r, "name"))
	wp, err := s.pg.GetWaypoint(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if wp == nil {
		writeError(w, http.StatusNotFound, "waypoint not found")
		return
	}

	writeJSON(w, http.StatusOK, wp)
}

func (s *Server) handleListATSRoutes(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "PostgreSQL store unavailable")
		return
	}

	minObservations := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("min_observations")); err == nil {
		minObservations = v
	}
	routes, err := s.pg.ListATSRoutes(r.Context(), minObservations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, routes)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
