package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Amrutha-01/swaply-backend/internal/config"
	"github.com/Amrutha-01/swaply-backend/internal/match"
	"github.com/Amrutha-01/swaply-backend/internal/model"
	"github.com/Amrutha-01/swaply-backend/internal/search"
	"github.com/Amrutha-01/swaply-backend/internal/store"
)

// Extractor turns an uploaded document into an extraction result.
type Extractor interface {
	Extract(ctx context.Context, document []byte, mimeType, originalName string) model.ExtractionResult
}

// Server serves the coupon API.
type Server struct {
	store          store.Store
	extractor      Extractor
	cfg            config.ServerConfig
	maxUploadBytes int64
}

// New builds a Server. maxUploadMB bounds the multipart body size.
func New(st store.Store, extractor Extractor, cfg config.ServerConfig, maxUploadMB int) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &Server{
		store:          st,
		extractor:      extractor,
		cfg:            cfg,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// Router builds the chi router with middleware and all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Route("/api/coupons", func(r chi.Router) {
		r.Post("/extract-coupons", s.handleExtractCoupons)
		r.Post("/upload-coupon", s.handleUploadCoupon)
		r.Put("/edit-coupon", s.handleEditCoupon)
		r.Get("/", s.handleListCoupons)
		r.Get("/matches/{uid}", s.handleMatches)
		r.Get("/search", s.handleSearch)
	})

	r.Route("/api/trades", func(r chi.Router) {
		r.Post("/upload-trade", s.handleUploadTrade)
		r.Get("/{uid}", s.handleListTrades)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	zap.L().Info("http server shutting down")
	return eris.Wrap(srv.Shutdown(shutdownCtx), "server: shutdown")
}

func (s *Server) handleExtractCoupons(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	header := firstFile(r)
	if header == nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	result := s.extractor.Extract(r.Context(), document, uploadMIMEType(header.Filename, header.Header.Get("Content-Type")), header.Filename)
	status := http.StatusOK
	if result.Err != "" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// uploadCouponRequest is the manual submission body.
type uploadCouponRequest struct {
	UID         string  `json:"uid"`
	Platform    string  `json:"platform"`
	Category    string  `json:"category"`
	Summary     string  `json:"summary"`
	CouponCode  *string `json:"coupon_code"`
	Value       string  `json:"value"`
	ExpiryDate  string  `json:"expiry_date"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

func (s *Server) handleUploadCoupon(w http.ResponseWriter, r *http.Request) {
	var req uploadCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UID == "" || req.Platform == "" || req.Category == "" || req.Value == "" || req.ExpiryDate == "" {
		writeError(w, http.StatusBadRequest, "uid, platform, category, value and expiry_date are required")
		return
	}

	user, err := s.store.GetUser(r.Context(), req.UID)
	if err != nil {
		s.internalError(w, "load user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	id, err := s.store.AddCoupon(r.Context(), model.Coupon{
		Platform:    req.Platform,
		Category:    req.Category,
		Summary:     req.Summary,
		CouponCode:  req.CouponCode,
		Value:       req.Value,
		ExpiryDate:  req.ExpiryDate,
		OwnerUID:    req.UID,
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		s.internalError(w, "add coupon", err)
		return
	}

	if err := s.store.AddCouponToWallet(r.Context(), req.UID, id); err != nil {
		s.internalError(w, "update wallet", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Coupon uploaded successfully",
		"id":      id,
	})
}

type editCouponRequest struct {
	CouponID string         `json:"couponId"`
	Updates  map[string]any `json:"updates"`
}

func (s *Server) handleEditCoupon(w http.ResponseWriter, r *http.Request) {
	var req editCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CouponID == "" || len(req.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "couponId and updates are required")
		return
	}

	err := s.store.UpdateCoupon(r.Context(), req.CouponID, req.Updates)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Coupon updated successfully"})
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "coupon not found")
	case eris.Is(err, store.ErrInvalidField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.internalError(w, "update coupon", err)
	}
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.store.ListCoupons(r.Context())
	if err != nil {
		s.internalError(w, "list coupons", err)
		return
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}
	writeJSON(w, http.StatusOK, coupons)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	results, err := match.ForUser(r.Context(), s.store, uid)
	switch {
	case err == nil:
		if results == nil {
			results = []model.MatchResult{}
		}
		writeJSON(w, http.StatusOK, results)
	case eris.Is(err, match.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		s.internalError(w, "match coupons", err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sortDir := r.URL.Query().Get("sort")

	coupons, err := s.store.ListCoupons(r.Context())
	if err != nil {
		s.internalError(w, "list coupons", err)
		return
	}

	results, err := search.Search(coupons, query, sortDir)
	switch {
	case err == nil:
		if results == nil {
			results = []model.Coupon{}
		}
		writeJSON(w, http.StatusOK, results)
	case eris.Is(err, search.ErrMissingQuery):
		writeError(w, http.StatusBadRequest, "query parameter q is required")
	default:
		s.internalError(w, "search coupons", err)
	}
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	trades, err := s.store.ListTradesForUser(r.Context(), uid)
	if err != nil {
		s.internalError(w, "list trades", err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleUploadTrade(w http.ResponseWriter, r *http.Request) {
	var trade model.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if trade.User1 == "" || trade.User2 == "" {
		writeError(w, http.StatusBadRequest, "user1 and user2 are required")
		return
	}
	if len(trade.User1Coupons) == 0 && len(trade.User2Coupons) == 0 {
		writeError(w, http.StatusBadRequest, "at least one coupon must be offered")
		return
	}

	stored, err := s.store.AddTrade(r.Context(), trade)
	if err != nil {
		s.internalError(w, "add trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// firstFile returns the first uploaded file, preferring the "file" field.
func firstFile(r *http.Request) *multipart.FileHeader {
	form := r.MultipartForm
	if form == nil {
		return nil
	}
	if headers := form.File["file"]; len(headers) > 0 {
		return headers[0]
	}
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if headers := form.File[field]; len(headers) > 0 {
			return headers[0]
		}
	}
	return nil
}

// uploadMIMEType resolves the document media type, falling back to the
// file extension when the part header is missing or generic.
func uploadMIMEType(filename, headerType string) string {
	if headerType != "" && headerType != "application/octet-stream" {
		return headerType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// requestLogger logs each request with method, path, status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
