// internal/lifecycle/handler.go
package lifecycle

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qalilab/pkg/tenants"
)

// installPayload is the body of the "installed" callback. Jira also sends
// productType, description etc.; only the trust-relevant fields matter here.
type installPayload struct {
	ClientKey    string `json:"clientKey"`
	BaseURL      string `json:"baseUrl"`
	SharedSecret string `json:"sharedSecret"`
	PublicKey    string `json:"publicKey"`
}

// RegisterRoutes mounts the install/uninstall callbacks. The platform retries
// and eventually disables the app on non-200, so both handlers acknowledge
// with 200 regardless of what happened internally; genuine problems are
// logged instead.
func RegisterRoutes(r chi.Router, store tenants.Store, log *zap.SugaredLogger) {
	r.Post("/installed", func(w http.ResponseWriter, req *http.Request) {
		var p installPayload
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			log.Warnw("install callback with unreadable body", "err", err)
			ack(w)
			return
		}
		if p.ClientKey == "" || p.SharedSecret == "" {
			log.Warnw("install callback missing clientKey or sharedSecret", "clientKey", p.ClientKey)
			ack(w)
			return
		}
		err := store.Put(req.Context(), tenants.Installation{
			ClientKey:    p.ClientKey,
			BaseURL:      p.BaseURL,
			SharedSecret: p.SharedSecret,
			PublicKey:    p.PublicKey,
			InstalledAt:  time.Now().UTC(),
		})
		if err != nil {
			log.Errorw("install store failed", "clientKey", p.ClientKey, "err", err)
		} else {
			log.Infow("tenant installed", "clientKey", p.ClientKey, "baseUrl", p.BaseURL)
		}
		ack(w)
	})

	r.Post("/uninstalled", func(w http.ResponseWriter, req *http.Request) {
		var p installPayload
		_ = json.NewDecoder(req.Body).Decode(&p)
		if p.ClientKey != "" {
			// Unknown keys are a no-op by Store contract.
			if err := store.Delete(req.Context(), p.ClientKey); err != nil {
				log.Errorw("uninstall delete failed", "clientKey", p.ClientKey, "err", err)
			} else {
				log.Infow("tenant uninstalled", "clientKey", p.ClientKey)
			}
		}
		ack(w)
	})
}

func ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
