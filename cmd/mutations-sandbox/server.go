package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parseq/mutation_sdk_go/internal/httpx"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/internal/metrics"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
	"github.com/parseq/mutation_sdk_go/pkg/mutations/mock"
)

type failConfig struct {
	rate float64
	code int
}

type serverOptions struct {
	latency time.Duration
	fail    failConfig
	metrics bool
	log     *zap.Logger
}

func newRouter(api *mock.Mock, opts serverOptions) http.Handler {
	if opts.log == nil {
		opts.log = zap.NewNop()
	}
	h := &handlers{api: api}

	r := chi.NewRouter()
	r.Use(requestLogger(opts.log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(inject(opts.latency, opts.fail))

		r.Get("/mutations", h.listMutations)
		r.Get("/lists", h.listLists)
		r.Post("/lists/create", h.createList)
		r.Put("/lists/{name}/mutations", h.updateList)
		r.Patch("/lists/{name}/mutations", h.patchMembers)
		r.Delete("/lists/{name}", h.deleteList)
	})
	return r
}

// requestLogger tags each request with an id, logs it and counts it.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(httpx.RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(httpx.RequestIDHeader, reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLog := log.With(logger.RequestID(reqID))
			next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.SandboxRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			reqLog.Info("request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(status),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

func inject(delay time.Duration, failCfg failConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
				status := failCfg.code
				if status == 0 {
					status = http.StatusInternalServerError
				}
				writeError(w, status, "failure injected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type handlers struct {
	api *mock.Mock
}

func (h *handlers) listMutations(w http.ResponseWriter, r *http.Request) {
	page, size := 0, mutations.DefaultPageSize
	if err := runtime.BindQueryParameter("form", true, false, "pageZeroBasedNumber", r.URL.Query(), &page); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "pageSize", r.URL.Query(), &size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.api.FetchMutations(r.Context(), page, size)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.api.FetchMutationLists(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *handlers) createList(w http.ResponseWriter, r *http.Request) {
	var name string
	if err := runtime.BindQueryParameter("form", true, true, "name", r.URL.Query(), &name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.api.CreateMutationList(r.Context(), name)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list})
}

// updateList addresses the list by the new name in the path. A rename names
// the source list in the previousName query parameter.
func (h *handlers) updateList(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}
	listID := name
	if err := runtime.BindQueryParameter("form", true, false, mutations.PreviousNameParam, r.URL.Query(), &listID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body mutations.UpdateListRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name != name {
		writeError(w, http.StatusBadRequest, "list name in path and body differ")
		return
	}
	list, err := h.api.UpdateMutationList(r.Context(), listID, body.Name, body.Description)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list})
}

func (h *handlers) patchMembers(w http.ResponseWriter, r *http.Request) {
	listName, ok := pathName(w, r)
	if !ok {
		return
	}
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	if err := h.api.PatchMutations(r.Context(), listName, ids); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteList(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathName(w, r)
	if !ok {
		return
	}
	if err := h.api.DeleteMutationList(r.Context(), listID); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var name string
	if err := runtime.BindStyledParameterWithLocation("simple", false, "name", runtime.ParamLocationPath, chi.URLParam(r, "name"), &name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return name, true
}

func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mutations.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mutations.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mutations.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L().Warn("encode response", zap.Error(err))
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v out of [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
