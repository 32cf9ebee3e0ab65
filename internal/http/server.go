package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/biplovgautam/bilearnhub/internal/auth"
	"github.com/biplovgautam/bilearnhub/internal/config"
	"github.com/biplovgautam/bilearnhub/internal/operations"
)

type Server struct {
	cfg      config.Config
	ops      *operations.Service
	verifier auth.Verifier
	redis    *redis.Client
	logger   *zap.Logger
}

func NewServer(cfg config.Config, ops *operations.Service, verifier auth.Verifier, redisClient *redis.Client, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		ops:      ops,
		verifier: verifier,
		redis:    redisClient,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/profile", s.handleCreateProfile)
		r.Get("/profile", s.handleGetProfile)
		r.Post("/sessions/touch", s.handleTouchSignIn)
		r.Post("/enrollments", s.handleEnroll)
	})

	r.With(s.serviceAuthMiddleware).Post("/internal/events/user-created", s.handleUserCreatedEvent)

	return r
}

type createProfileRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeOpError(w, "create_user_profile", invalidBody())
		return
	}

	result, err := s.ops.CreateUserProfile(r.Context(), principalFromContext(r.Context()), req.Provider)
	if err != nil {
		s.writeOpError(w, "create_user_profile", err)
		return
	}
	observeOperation("create_user_profile", "ok")
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	aggregate, err := s.ops.GetProfile(r.Context(), principalFromContext(r.Context()))
	if err != nil {
		s.writeOpError(w, "get_profile", err)
		return
	}
	observeOperation("get_profile", "ok")
	writeJSON(w, http.StatusOK, aggregate)
}

func (s *Server) handleTouchSignIn(w http.ResponseWriter, r *http.Request) {
	result, err := s.ops.UpdateLastSignIn(r.Context(), principalFromContext(r.Context()))
	if err != nil {
		s.writeOpError(w, "update_last_sign_in", err)
		return
	}
	observeOperation("update_last_sign_in", "ok")
	writeJSON(w, http.StatusOK, result)
}

type enrollRequest struct {
	CourseID string `json:"courseId"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeOpError(w, "enroll_in_course", invalidBody())
		return
	}

	result, err := s.ops.EnrollInCourse(r.Context(), principalFromContext(r.Context()), req.CourseID)
	if err != nil {
		s.writeOpError(w, "enroll_in_course", err)
		return
	}
	observeOperation("enroll_in_course", "ok")
	writeJSON(w, http.StatusOK, result)
}

// pushEnvelope is the Pub/Sub push delivery wrapper. Message.Data is
// base64 on the wire; encoding/json decodes it into the byte slice.
type pushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type userCreatedEvent struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// handleUserCreatedEvent provisions the student profile for a freshly
// created identity record. Delivery is at-least-once: duplicates are
// filtered by message id when Redis is configured, and a storage fault
// returns 500 so the subscription redelivers against the idempotent
// create.
func (s *Server) handleUserCreatedEvent(w http.ResponseWriter, r *http.Request) {
	// Push envelopes carry fields this service ignores (attributes,
	// publish time), so the strict decoder is not used here.
	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, operations.CodeInvalidArgument, "invalid push envelope")
		return
	}

	dedupKey := ""
	if s.redis != nil && envelope.Message.MessageID != "" {
		dedupKey = "events:user-created:" + envelope.Message.MessageID
		fresh, err := s.redis.SetNX(r.Context(), dedupKey, 1, s.cfg.EventDedupTTL).Result()
		if err != nil {
			s.logger.Error("event dedup check failed", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !fresh {
			observeEnsureOutcome("duplicate")
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	var event userCreatedEvent
	if len(envelope.Message.Data) > 0 {
		if err := json.Unmarshal(envelope.Message.Data, &event); err != nil {
			s.logger.Warn("user created event payload unreadable",
				zap.String("message_id", envelope.Message.MessageID),
				zap.Error(err),
			)
		}
	}

	outcome, err := s.ops.EnsureStudentProfile(r.Context(), event.UID, event.Email, event.DisplayName, event.PhotoURL)
	if err != nil {
		// Release the dedup slot so the redelivery is processed.
		if dedupKey != "" {
			if delErr := s.redis.Del(r.Context(), dedupKey).Err(); delErr != nil {
				s.logger.Error("event dedup release failed", zap.Error(delErr))
			}
		}
		observeEnsureOutcome("failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	observeEnsureOutcome(outcome)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, operations.CodeUnauthenticated, "user must be authenticated")
			return
		}

		principal, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, operations.CodeUnauthenticated, "user must be authenticated")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// serviceAuthMiddleware guards the internal event endpoint with the
// shared service token. With no token configured the endpoint is closed.
func (s *Server) serviceAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ServiceAuthToken == "" {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "event intake is not configured")
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ServiceAuthToken)) != 1 {
			writeError(w, http.StatusUnauthorized, operations.CodeUnauthenticated, "invalid service token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type principalKey struct{}

func principalFromContext(ctx context.Context) *auth.Principal {
	principal, _ := ctx.Value(principalKey{}).(*auth.Principal)
	return principal
}

func (s *Server) writeOpError(w http.ResponseWriter, operation string, err error) {
	var opErr *operations.Error
	if !errors.As(err, &opErr) {
		s.logger.Error("unexpected operation error", zap.String("operation", operation), zap.Error(err))
		opErr = &operations.Error{Code: operations.CodeInternal, Message: "internal error"}
	}
	observeOperation(operation, opErr.Code)
	writeError(w, statusForCode(opErr.Code), opErr.Code, opErr.Message)
}

func statusForCode(code string) int {
	switch code {
	case operations.CodeUnauthenticated:
		return http.StatusUnauthorized
	case operations.CodeInvalidArgument:
		return http.StatusBadRequest
	case operations.CodeNotFound:
		return http.StatusNotFound
	case operations.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func invalidBody() *operations.Error {
	return &operations.Error{Code: operations.CodeInvalidArgument, Message: "invalid request body"}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
