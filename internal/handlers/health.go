package handlers

import (
	"math"
	"net/http"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/config"
	"anprserver/internal/services/pipeline"
)

const serverVersion = "1.0.0"

// HealthHandler reports server status, uptime, request counters and masked
// credentials.
func HealthHandler(engines *anpr.State, pl *pipeline.Pipeline, cfg *config.Config, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := baseEngineConfig(engines, cfg)
		creds := active.Credentials

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":                 "ok",
			"credentials_configured": engines.Valid(),
			"models_loaded":          engines.Valid(),
			"uptime":                 math.Round(time.Since(startTime).Seconds()*100) / 100,
			"version":                serverVersion,
			"requests":               pl.Counters(),
			"credentials": map[string]interface{}{
				"username":          orNil(creds.Username),
				"serial_key_masked": orNil(maskKey(creds.SerialKey)),
				"signature_masked":  orNil(maskSignature(creds.Signature)),
			},
		})
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > 8 {
		return key[:4] + "***" + key[len(key)-4:]
	}
	return "***"
}

func maskSignature(signature string) string {
	if signature == "" {
		return ""
	}
	if len(signature) > 4 {
		return signature[:4] + "********"
	}
	return "***"
}

func orNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
