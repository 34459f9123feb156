package adapthttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"weighbridge/internal/app"
	"weighbridge/internal/domain"
)

// recordView is the JSON shape of a record with its display fields.
type recordView struct {
	domain.WeighbridgeRecord
	NetWeight          float64 `json:"netWeight"`
	FormattedNetWeight string  `json:"formattedNetWeight"`
	ShortID            string  `json:"shortId"`
}

func viewOf(r domain.WeighbridgeRecord) recordView {
	return recordView{
		WeighbridgeRecord:  r,
		NetWeight:          r.NetWeight(),
		FormattedNetWeight: domain.FormatWeight(r.NetWeight()),
		ShortID:            domain.FormatRecordID(r.RecordID),
	}
}

func viewsOf(records []domain.WeighbridgeRecord) []recordView {
	out := make([]recordView, len(records))
	for i, r := range records {
		out[i] = viewOf(r)
	}
	return out
}

// weightText accepts a JSON number or string and keeps it as typed text.
type weightText string

func (w *weightText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = weightText(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*w = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*w = weightText(n.String())
	return nil
}

type ticketRequest struct {
	FleetType     string     `json:"fleetType"`
	LicenseNumber string     `json:"licenseNumber"`
	DriverName    string     `json:"driverName"`
	TareWeight    weightText `json:"tareWeight"`
	GrossWeight   weightText `json:"grossWeight"`
	EntryDate     *time.Time `json:"entryDate,omitempty"`
}

// apply copies the request onto f. An empty fleet type keeps the form's.
func (req ticketRequest) apply(f app.TicketForm) (app.TicketForm, error) {
	if req.FleetType != "" {
		ft, err := domain.ParseFleetType(req.FleetType)
		if err != nil {
			return f, err
		}
		f.FleetType = ft
	}
	f.LicenseNumber = req.LicenseNumber
	f.DriverName = req.DriverName
	f.TareWeight = string(req.TareWeight)
	f.GrossWeight = string(req.GrossWeight)
	if req.EntryDate != nil && f.Mode == app.ModeCreate {
		f.EntryDate = *req.EntryDate
	}
	return f, nil
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		param, sorted, err := sortQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var p *domain.SortParam
		if sorted {
			p = &param
		}
		records, err := s.tickets.List(ctx, p)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"param": param, "items": viewsOf(records)})

	case http.MethodPost:
		var req ticketRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		form, err := req.apply(s.tickets.NewForm())
		if err != nil {
			writeAppError(w, err)
			return
		}
		rec, err := s.tickets.Save(ctx, form)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"record": viewOf(rec)})

	case http.MethodDelete:
		if confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirm {
			writeError(w, http.StatusBadRequest, errors.New("clearing all records requires confirm=true"))
			return
		}
		if err := s.tickets.DeleteAll(ctx); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		rec, err := s.tickets.Get(ctx, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": viewOf(*rec)})

	case http.MethodPut:
		var req ticketRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		form, err := s.tickets.LoadForm(ctx, id, app.ModeView)
		if err != nil {
			writeAppError(w, err)
			return
		}
		form, err = req.apply(s.tickets.BeginEdit(form))
		if err != nil {
			writeAppError(w, err)
			return
		}
		rec, err := s.tickets.Save(ctx, form)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": viewOf(rec)})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := s.tickets.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	token, err := s.tickets.RequestDelete(rec.RecordID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"token": token, "record": viewOf(*rec)})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req tokenRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.tickets.ConfirmDelete(r.Context(), req.Token)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

func (s *Server) handleDeleteCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req tokenRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.tickets.CancelDelete(req.Token) {
		writeAppError(w, app.ErrConfirmationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
