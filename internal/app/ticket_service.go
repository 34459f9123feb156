package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"weighbridge/internal/domain"
)

var (
	// ErrFormIncomplete means the form does not pass the save gate; the
	// store was not called.
	ErrFormIncomplete = errors.New("ticket form is incomplete")
	// ErrRecordNotFound indicates that no record has the requested id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrMissingRecordID is returned when an operation needs an existing id.
	ErrMissingRecordID = errors.New("record id is required")
	// ErrConfirmationNotFound covers unknown, used, cancelled and expired
	// delete confirmations.
	ErrConfirmationNotFound = errors.New("delete confirmation not found")
)

// deleteConfirmationTTL bounds how long a delete request waits for its
// confirmation.
const deleteConfirmationTTL = 5 * time.Minute

// OpError reports a store failure during a ticket operation.
type OpError struct {
	Op       string
	RecordID string
	Err      error
}

func (e *OpError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// OpRecorder observes the outcome of ticket operations.
type OpRecorder interface {
	ObserveTicketOp(op string, err error)
}

// FormMode is how a ticket form was opened.
type FormMode string

const (
	ModeCreate FormMode = "CREATE"
	ModeView   FormMode = "VIEW"
	ModeEdit   FormMode = "EDIT"
)

// TicketForm holds ticket input as typed by the operator. Weights are raw
// text; see NetWeight for how they are read.
type TicketForm struct {
	Mode          FormMode         `json:"mode"`
	RecordID      string           `json:"recordId,omitempty"`
	EntryDate     time.Time        `json:"entryDate"`
	FleetType     domain.FleetType `json:"fleetType"`
	LicenseNumber string           `json:"licenseNumber"`
	DriverName    string           `json:"driverName"`
	TareWeight    string           `json:"tareWeight"`
	GrossWeight   string           `json:"grossWeight"`
}

// parseWeight reads a weight field. Text that is not a finite number counts
// as zero.
func parseWeight(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NetWeight is gross minus tare, with unparsable weights read as zero.
func (f TicketForm) NetWeight() float64 {
	return parseWeight(f.GrossWeight) - parseWeight(f.TareWeight)
}

// CanSave reports whether the save action is enabled: license number,
// driver name and both weights filled in, tare not negative and a positive
// net weight.
func (f TicketForm) CanSave() bool {
	return strings.TrimSpace(f.LicenseNumber) != "" &&
		strings.TrimSpace(f.DriverName) != "" &&
		strings.TrimSpace(f.TareWeight) != "" &&
		strings.TrimSpace(f.GrossWeight) != "" &&
		parseWeight(f.TareWeight) >= 0 &&
		f.NetWeight() > 0
}

// FormFromRecord fills a form from a stored record.
func FormFromRecord(r domain.WeighbridgeRecord, mode FormMode) TicketForm {
	return TicketForm{
		Mode:          mode,
		RecordID:      r.RecordID,
		EntryDate:     r.EntryDate,
		FleetType:     r.FleetType,
		LicenseNumber: r.LicenseNumber,
		DriverName:    r.DriverName,
		TareWeight:    strconv.FormatFloat(r.TareWeight, 'f', -1, 64),
		GrossWeight:   strconv.FormatFloat(r.GrossWeight, 'f', -1, 64),
	}
}

type pendingDelete struct {
	recordID string
	expires  time.Time
}

// TicketService encapsulates the create, view, edit and delete workflow.
type TicketService struct {
	repo     domain.RecordRepository
	recorder OpRecorder

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	pending map[string]pendingDelete
}

// NewTicketService creates a TicketService backed by the given repository.
// rec may be nil.
func NewTicketService(repo domain.RecordRepository, rec OpRecorder) *TicketService {
	return &TicketService{
		repo:     repo,
		recorder: rec,
		now:      time.Now,
		newID:    uuid.NewString,
		pending:  make(map[string]pendingDelete),
	}
}

// NewForm returns a blank create form dated now.
func (s *TicketService) NewForm() TicketForm {
	return TicketForm{
		Mode:      ModeCreate,
		EntryDate: s.now().UTC().Truncate(time.Millisecond),
		FleetType: domain.FleetInbound,
	}
}

// LoadForm opens an existing record for viewing or editing.
func (s *TicketService) LoadForm(ctx context.Context, recordID string, mode FormMode) (TicketForm, error) {
	if strings.TrimSpace(recordID) == "" {
		return TicketForm{}, ErrMissingRecordID
	}
	r, err := s.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return TicketForm{}, &OpError{Op: "load", RecordID: recordID, Err: err}
	}
	if r == nil {
		return TicketForm{}, ErrRecordNotFound
	}
	return FormFromRecord(*r, mode), nil
}

// BeginEdit switches a viewed form into edit mode.
func (s *TicketService) BeginEdit(f TicketForm) TicketForm {
	f.Mode = ModeEdit
	return f
}

// Get returns the record with the given id.
func (s *TicketService) Get(ctx context.Context, recordID string) (*domain.WeighbridgeRecord, error) {
	r, err := s.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return nil, &OpError{Op: "load", RecordID: recordID, Err: err}
	}
	if r == nil {
		return nil, ErrRecordNotFound
	}
	return r, nil
}

// List returns every record, newest first, or in the given order when
// param is non-nil.
func (s *TicketService) List(ctx context.Context, param *domain.SortParam) ([]domain.WeighbridgeRecord, error) {
	var (
		records []domain.WeighbridgeRecord
		err     error
	)
	if param == nil {
		records, err = s.repo.ListRecords(ctx)
	} else {
		records, err = s.repo.ListRecordsSortedBy(ctx, param.Option, param.Ascending)
	}
	if err != nil {
		return nil, &OpError{Op: "list", Err: err}
	}
	return records, nil
}

// Save stores the form. Edit mode overwrites the record with the form's id;
// every other mode stores a new record under a fresh id. Forms that fail
// CanSave are rejected with ErrFormIncomplete before the store is touched.
func (s *TicketService) Save(ctx context.Context, f TicketForm) (rec domain.WeighbridgeRecord, err error) {
	defer func() {
		// An incomplete form is the save button being disabled, not a failure.
		if !errors.Is(err, ErrFormIncomplete) {
			s.observe("save", err)
		}
	}()

	if !f.CanSave() {
		return domain.WeighbridgeRecord{}, ErrFormIncomplete
	}

	recordID := s.newID()
	if f.Mode == ModeEdit {
		if strings.TrimSpace(f.RecordID) == "" {
			return domain.WeighbridgeRecord{}, ErrMissingRecordID
		}
		recordID = f.RecordID
	}

	entryDate := f.EntryDate
	if entryDate.IsZero() {
		entryDate = s.now()
	}

	rec = domain.WeighbridgeRecord{
		RecordID:      recordID,
		FleetType:     f.FleetType,
		LicenseNumber: strings.TrimSpace(f.LicenseNumber),
		DriverName:    strings.TrimSpace(f.DriverName),
		TareWeight:    parseWeight(f.TareWeight),
		GrossWeight:   parseWeight(f.GrossWeight),
		EntryDate:     entryDate.UTC().Truncate(time.Millisecond),
	}
	if err := rec.Validate(); err != nil {
		return domain.WeighbridgeRecord{}, fmt.Errorf("%w: %v", ErrFormIncomplete, err)
	}

	if err := s.repo.InsertRecord(ctx, rec); err != nil {
		return domain.WeighbridgeRecord{}, &OpError{Op: "save", RecordID: recordID, Err: err}
	}
	return rec, nil
}

// RequestDelete starts a delete. The returned token must be passed to
// ConfirmDelete before anything is removed.
func (s *TicketService) RequestDelete(recordID string) (string, error) {
	if strings.TrimSpace(recordID) == "" {
		return "", ErrMissingRecordID
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, p := range s.pending {
		if now.After(p.expires) {
			delete(s.pending, t)
		}
	}
	s.pending[token] = pendingDelete{recordID: recordID, expires: now.Add(deleteConfirmationTTL)}
	return token, nil
}

// CancelDelete discards a pending delete. It reports whether one existed.
func (s *TicketService) CancelDelete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[token]
	delete(s.pending, token)
	return ok
}

// ConfirmDelete removes the record named by a pending delete and returns
// its id. Each token works once.
func (s *TicketService) ConfirmDelete(ctx context.Context, token string) (recordID string, err error) {
	s.mu.Lock()
	p, ok := s.pending[token]
	delete(s.pending, token)
	s.mu.Unlock()

	if !ok || s.now().After(p.expires) {
		return "", ErrConfirmationNotFound
	}

	defer func() { s.observe("delete", err) }()
	if err := s.repo.DeleteRecordByID(ctx, p.recordID); err != nil {
		return "", &OpError{Op: "delete", RecordID: p.recordID, Err: err}
	}
	return p.recordID, nil
}

// DeleteAll clears every record.
func (s *TicketService) DeleteAll(ctx context.Context) (err error) {
	defer func() { s.observe("delete_all", err) }()
	if err := s.repo.DeleteAllRecords(ctx); err != nil {
		return &OpError{Op: "delete_all", Err: err}
	}
	return nil
}

func (s *TicketService) observe(op string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveTicketOp(op, err)
	}
}
