package eventide

import (
	"net/http"
	"path"
	"strconv"

	"github.com/gorilla/mux"

	Et "github.com/maroda/eventide/types"
)

// PluginControlHandler drives the archive output:
// type reports it, flush writes buffered events, close detaches it
func (v *View) PluginControlHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method, use POST", http.StatusMethodNotAllowed)
		return
	}

	action := mux.Vars(r)["action"]
	if action == "" {
		action = path.Base(r.URL.Path)
	}

	out := v.Engine.CurrentOutput()
	if out == nil {
		http.Error(w, "no output configured", http.StatusInternalServerError)
		return
	}

	switch action {
	case "type":
		writeJSON(w, http.StatusOK, map[string]string{"type": out.Type()})
	case "flush":
		if err := out.Flush(); err != nil {
			http.Error(w, "flush failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
	case "close":
		v.Engine.SetOutput(nil)
		if err := out.Close(); err != nil {
			http.Error(w, "close failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	default:
		http.Error(w, "invalid action: "+action, http.StatusNotFound)
	}
}

// ArchiveHandler queries the archive output for [start, end] in engine seconds
func (v *View) ArchiveHandler(w http.ResponseWriter, r *http.Request) {
	out := v.Engine.CurrentOutput()
	if out == nil {
		http.Error(w, "no output configured", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	start, err := strconv.ParseFloat(q.Get("start"), 64)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := strconv.ParseFloat(q.Get("end"), 64)
	if err != nil || end < start {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	// buffered events are not visible to the query until flushed
	if err := out.Flush(); err != nil {
		http.Error(w, "flush failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	events, err := out.QueryRange(start, end)
	if err != nil {
		http.Error(w, "query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*Et.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
