package eventide

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

// maxBatchBytes bounds a POSTed delivery batch
const maxBatchBytes = 8 << 20

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket frame stream
// - Version for programmatic use
// - Frame, ingestion, config and plugin control API
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)
	api.HandleFunc("/version", v.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/system", v.SystemInfoHandler).Methods(http.MethodGet)
	api.HandleFunc("/frame", v.FrameHandler).Methods(http.MethodGet)
	api.HandleFunc("/events", v.EventsHandler).Methods(http.MethodPost)
	api.HandleFunc("/config", v.ConfigHandler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/archive", v.ArchiveHandler).Methods(http.MethodGet)
	api.HandleFunc("/plugin/{action}", v.PluginControlHandler)

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// SystemInfo is the runtime summary served at /api/system
type SystemInfo struct {
	Version      string         `json:"version"`
	Uptime       float64        `json:"uptimeSeconds"`
	EngineNow    float64        `json:"engineNow"`
	Events       int            `json:"events"`
	Boundaries   int            `json:"boundaries"`
	TrialRecords int            `json:"trialRecords"`
	Output       string         `json:"output"`
	SourceURL    string         `json:"sourceUrl,omitempty"`
	FrameURL     string         `json:"frameUrl"`
	StreamURL    string         `json:"streamUrl"`
	Ticking      bool           `json:"ticking"`
	Window       Et.WindowState `json:"window"`
	Config       Es.Config      `json:"config"`
}

func (v *View) SystemInfoHandler(w http.ResponseWriter, r *http.Request) {
	events, boundaries, trials := v.Engine.Stats()
	frame := v.CurrentFrame()

	info := SystemInfo{
		Version:      Version,
		Uptime:       time.Since(v.started).Seconds(),
		EngineNow:    v.Engine.Now(),
		Events:       events,
		Boundaries:   boundaries,
		TrialRecords: trials,
		Output:       "none",
		SourceURL:    v.Runtime.SourceURL,
		FrameURL:     Es.ServeURL(v.Runtime.Addr, "api", "frame"),
		StreamURL:    Es.StreamURL(v.Runtime.Addr, "ws"),
		Ticking:      v.TickSup != nil && v.TickSup.Running(),
		Window:       frame.Window,
		Config:       v.Engine.CurrentConfig(),
	}
	if out := v.Engine.CurrentOutput(); out != nil {
		info.Output = out.Type()
	}
	writeJSON(w, http.StatusOK, info)
}

// FrameHandler serves the current frame.
// A now query parameter computes the frame for that engine time instead.
func (v *View) FrameHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("now")
	if q == "" {
		writeJSON(w, http.StatusOK, v.CurrentFrame())
		return
	}

	now, err := strconv.ParseFloat(q, 64)
	if err != nil {
		http.Error(w, "invalid now: "+q, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, v.Engine.Compute(now))
}

// EventsHandler ingests a POSTed JSON array of deliveries
func (v *View) EventsHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBytes)

	var batch []Et.Delivery
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		slog.Error("Could not decode batch", slog.Any("Error", err))
		http.Error(w, "invalid batch: "+err.Error(), http.StatusBadRequest)
		return
	}

	report := v.IngestBatch(r.Context(), batch)
	writeJSON(w, http.StatusAccepted, report)
}

// ConfigHandler returns the engine config, or applies a POSTed config file
func (v *View) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var cf Es.ConfigFile
		if err := json.NewDecoder(r.Body).Decode(&cf); err != nil {
			http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
			return
		}
		v.ReloadConfig(Es.NewConfig(cf))
	}
	writeJSON(w, http.StatusOK, v.Engine.CurrentConfig())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Could not encode response", slog.Any("Error", err))
	}
}
