// Package api exposes the HTTP interface for the catalog service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obscurecore/eduscan/internal/export"
	"github.com/obscurecore/eduscan/internal/institution"
	"github.com/obscurecore/eduscan/internal/landplot"
	"github.com/obscurecore/eduscan/internal/metrics"
	"github.com/obscurecore/eduscan/internal/scrape"
	"github.com/obscurecore/eduscan/internal/session"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 32 << 20

// Server wires HTTP handlers to the scraper and converters.
type Server struct {
	router  chi.Router
	scraper institution.Scraper
	plots   *landplot.Service
	images  session.ImageExtractor
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scraper institution.Scraper,
	plots *landplot.Service,
	images session.ImageExtractor,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper: scraper,
		plots:   plots,
		images:  images,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(10 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/institutions", s.getInstitutions)
	r.Post("/landplots", s.postLandplots)
	r.Post("/pdf/images", s.postPdfImages)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

// getInstitutions serves the catalog, optionally refreshing it from the
// source first. Unknown district codes are dropped; an all-unknown
// filter degrades to "no filter".
func (s *Server) getInstitutions(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	codes := knownCodes(r.URL.Query().Get("districts"))

	records, summary, err := s.scraper.Run(r.Context(), refresh, codes)
	if err != nil {
		writeError(s.logger, w, scrapeStatus(err), err.Error())
		return
	}
	s.logger.Info("catalog served",
		zap.Bool("refresh", refresh),
		zap.Strings("districts", codes),
		zap.Int("records", len(records)),
		zap.Int("discovered", summary.Discovered),
	)

	if r.URL.Query().Get("format") == "spreadsheet" {
		data, err := export.Excel(records)
		if err != nil {
			writeError(s.logger, w, http.StatusInternalServerError, "failed to build spreadsheet")
			return
		}
		writeAttachment(s.logger, w, "institutions.xlsx", "application/octet-stream", data)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, export.Text(records)); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}

// postLandplots decodes an uploaded land-parcel workbook. With ?text=true
// the response is the human-readable summary; otherwise JSON.
func (s *Server) postLandplots(w http.ResponseWriter, r *http.Request) {
	name, mime, data, err := readUpload(r)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	plots := s.plots.Parse(name, mime, data)
	if asText, _ := strconv.ParseBool(r.URL.Query().Get("text")); asText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.WriteString(w, landplot.RenderText(plots)); err != nil {
			s.logger.Error("write response failed", zap.Error(err))
		}
		return
	}
	writeJSON(s.logger, w, http.StatusOK, plots)
}

func (s *Server) postPdfImages(w http.ResponseWriter, r *http.Request) {
	_, _, data, err := readUpload(r)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	archive, images, err := s.images.Extract(data)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "failed to extract images: "+err.Error())
		return
	}
	if images == 0 {
		writeError(s.logger, w, http.StatusUnprocessableEntity, "no images found in document")
		return
	}
	writeAttachment(s.logger, w, "extracted_images.zip", "application/zip", archive)
}

// scrapeStatus maps the scraper failure taxonomy onto HTTP statuses.
func scrapeStatus(err error) int {
	switch {
	case errors.Is(err, scrape.ErrSourceUnreachable),
		errors.Is(err, scrape.ErrNoDistricts),
		errors.Is(err, scrape.ErrNoMatchingDistricts):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// knownCodes parses the comma-separated district filter, keeping only
// codes the catalog recognizes.
func knownCodes(param string) []string {
	if param == "" {
		return nil
	}
	var codes []string
	for _, raw := range strings.Split(param, ",") {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if _, ok := institution.DistrictByCode(code); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

func readUpload(r *http.Request) (name, mime string, data []byte, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, errors.New("missing file field")
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, elapsed)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}

func writeAttachment(logger *zap.Logger, w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logger.Error("write attachment failed", zap.Error(err))
	}
}
