package adapthttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"weighbridge/internal/app"
	"weighbridge/internal/domain"
)

type listEvent struct {
	Status app.ListStatus   `json:"status"`
	Param  domain.SortParam `json:"param"`
	Items  []recordView     `json:"items"`
	Error  string           `json:"error,omitempty"`
}

// handleRecordsWatch streams the sorted listing as server-sent events, one
// "state" event per presenter state.
func (s *Server) handleRecordsWatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	param, sorted, err := sortQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	ctx := r.Context()
	p := app.NewListPresenter(s.repo)
	defer p.Close()
	if sorted {
		p.SetSortOption(param.Option, param.Ascending)
	}
	states := p.Observe(ctx)
	p.Start(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range states.Updates() {
		st := snap.Value
		ev := listEvent{Status: st.Status, Param: st.Param, Items: viewsOf(st.Records)}
		if st.Err != nil {
			ev.Error = st.Err.Error()
		}
		b, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", b); err != nil {
			return
		}
		flusher.Flush()
	}
}
