// internal/descriptor/handler.go
package descriptor

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qalilab/pkg/config"
)

func RegisterRoutes(r chi.Router, cfg config.Config, log *zap.SugaredLogger) {
	r.Get("/atlassian-connect.json", func(w http.ResponseWriter, req *http.Request) {
		d := Build(cfg)
		log.Infow("descriptor served", "baseUrl", d.BaseURL)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d)
	})
}
