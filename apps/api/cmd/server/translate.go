package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/translation"
)

const maxTranslateBody = 16 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

type translateInput struct {
	Text   string `json:"text" validate:"required,max=5000"`
	Source string `json:"source" validate:"required,len=2"`
	Target string `json:"target" validate:"required,len=2"`
}

type languagesResponse struct {
	Languages []session.Language `json:"languages"`
	Source    string             `json:"source"`
	Target    string             `json:"target"`
}

type translatorHealthResponse struct {
	Provider string `json:"provider"`
	translation.HealthStatus
}

func languagesHandler(pair session.Pair, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, languagesResponse{
			Languages: session.SupportedLanguages(),
			Source:    pair.A.Code,
			Target:    pair.B.Code,
		})
	}
}

func translatorHealthHandler(translator translation.Translator, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := translator.Probe(r.Context())
		code := http.StatusOK
		if !health.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, code, translatorHealthResponse{Provider: translator.Name(), HealthStatus: health})
	}
}

func translateHandler(translator translation.Translator, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := r.Body.Close(); err != nil {
				logger.Errorw("failed to close request body", "error", err)
			}
		}()

		var input translateInput
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTranslateBody))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&input); err != nil {
			writeError(w, logger, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
		input.Text = strings.TrimSpace(input.Text)
		if err := validate.Struct(input); err != nil {
			writeError(w, logger, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
		pair, err := session.NewPair(input.Source, input.Target)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err)
			return
		}

		result, err := translator.Translate(r.Context(), input.Text, pair.A.Code, pair.B.Code)
		if err != nil {
			code := statusForFailure(translation.Classify(err))
			if code >= http.StatusInternalServerError {
				logger.Warnw("translation failed", "error", err, "provider", translator.Name())
			}
			writeError(w, logger, code, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}

func statusForFailure(f translation.Failure) int {
	switch f {
	case translation.FailureInput:
		return http.StatusBadRequest
	case translation.FailureQuota, translation.FailureRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.SugaredLogger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	writeJSON(w, logger, status, map[string]string{"error": err.Error()})
}
