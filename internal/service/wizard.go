package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinicdesk/internal/model"
	"clinicdesk/internal/repository"
	"clinicdesk/internal/session"
	"clinicdesk/internal/storage"
	"clinicdesk/internal/validation"
	"clinicdesk/internal/wizard"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrWizardNotFound   = errors.New("wizard not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrUnsupportedMedia = errors.New("file type is not accepted for this category")
	ErrFileNotFound     = errors.New("attachment not found")
)

// errSubmissionLost completes a submission whose outcome was never recorded.
var errSubmissionLost = errors.New("submission outcome was not recorded")

const previewURLExpiry = 15 * time.Minute

const outcomeSaveAttempts = 3

var outcomeRetryDelay = 200 * time.Millisecond

// Submitter sends a completed draft to the Patient Records API.
type Submitter interface {
	Submit(ctx context.Context, sess session.Session, draft model.Draft) (model.Patient, error)
}

// WizardView is what clients render for one wizard.
type WizardView struct {
	ID           string               `json:"id"`
	State        wizard.State         `json:"state"`
	Step         wizard.Step          `json:"step"`
	Values       map[string]string    `json:"values"`
	Errors       validation.Errors    `json:"errors"`
	Draft        model.Draft          `json:"draft"`
	Reports      []model.FileRef      `json:"reports"`
	Images       []model.FileRef      `json:"images"`
	Notification *wizard.Notification `json:"notification,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// WizardSummary is one row of the wizard listing.
type WizardSummary struct {
	ID        string       `json:"id"`
	State     wizard.State `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WizardListResult is the service-level DTO for paginated wizards.
type WizardListResult struct {
	Items []WizardSummary `json:"data"`
	Total int             `json:"total"`
}

// Upload is one attachment received from a client.
type Upload struct {
	Filename    string
	ContentType string
	// Size is the exact byte count, or -1 when unknown.
	Size int64
	Body io.Reader
}

// WizardService runs the intake wizards. Every operation on a wizard is
// serialised per ID; the controller snapshot is loaded, mutated and saved
// under that lock.
type WizardService interface {
	Create(ctx context.Context) (*WizardView, error)
	Get(ctx context.Context, id string) (*WizardView, error)
	List(ctx context.Context, limit, offset int) (*WizardListResult, error)
	// Delete discards a wizard and its staged attachments.
	Delete(ctx context.Context, id string) error

	EditFields(ctx context.Context, id string, values map[string]string) (*WizardView, error)
	Touch(ctx context.Context, id string, fields []string) (*WizardView, error)
	// Advance validates the current step and moves forward. From the visit
	// step it submits the draft and returns once the outcome is recorded.
	// On wizard.ErrValidation the returned view carries the field errors.
	Advance(ctx context.Context, sess session.Session, id string, values map[string]string) (*WizardView, error)
	Retreat(ctx context.Context, id string) (*WizardView, error)

	AddFile(ctx context.Context, id string, category string, up Upload) (*WizardView, wizard.AddResult, error)
	RemoveFile(ctx context.Context, id string, category string, handle string) (*WizardView, error)
	// FileURL returns a short-lived download URL for a staged attachment.
	FileURL(ctx context.Context, id string, category string, handle string) (string, error)

	// PurgeExpired deletes wizards idle longer than the session TTL.
	PurgeExpired(ctx context.Context) (int, error)
	// Close stops pending reset timers.
	Close()
}

// WizardOptions tune a WizardService.
type WizardOptions struct {
	// ResetDelay is how long Done is shown before the wizard returns to the
	// first step. A Done row older than this is reset when next loaded.
	ResetDelay time.Duration
	// SubmitTimeout bounds how long a row may stay Submitting. An older one
	// is completed as failed when next loaded. Zero disables the check.
	SubmitTimeout time.Duration
	SessionTTL    time.Duration
	Metrics       *WizardMetrics
	Logger        zerolog.Logger
}

type wizardService struct {
	repo      repository.WizardSessionRepository
	store     storage.Storage
	submitter Submitter
	opts      WizardOptions
	now       func() time.Time

	locks *keyedMutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

// NewWizardService constructs a WizardService.
func NewWizardService(repo repository.WizardSessionRepository, store storage.Storage, submitter Submitter, opts WizardOptions) WizardService {
	return &wizardService{
		repo:      repo,
		store:     store,
		submitter: submitter,
		opts:      opts,
		// Postgres timestamps keep microseconds.
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		locks:     newKeyedMutex(),
		timers:    make(map[string]*time.Timer),
	}
}

func (s *wizardService) Create(ctx context.Context) (*WizardView, error) {
	c := wizard.New()
	snap, err := json.Marshal(c.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode wizard: %w", err)
	}
	now := s.now()
	row, err := s.repo.Create(ctx, &model.WizardSession{
		ID:        uuid.NewString(),
		State:     string(c.State()),
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create wizard: %w", err)
	}
	s.opts.Logger.Info().Str("wizard_id", row.ID).Msg("wizard created")
	return newView(row.ID, c, row.UpdatedAt), nil
}

func (s *wizardService) Get(ctx context.Context, id string) (*WizardView, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	c, row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(id, c, row.UpdatedAt), nil
}

func (s *wizardService) List(ctx context.Context, limit, offset int) (*WizardListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	items := make([]WizardSummary, 0, len(res.Items))
	for _, row := range res.Items {
		items = append(items, WizardSummary{
			ID:        row.ID,
			State:     wizard.State(row.State),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return &WizardListResult{Items: items, Total: res.Total}, nil
}

func (s *wizardService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	c, _, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if c.State() == wizard.StateSubmitting {
		return wizard.ErrSubmissionInFlight
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete wizard: %w", err)
	}
	s.stopTimer(id)
	s.discardStaged(ctx, id)
	s.opts.Logger.Info().Str("wizard_id", id).Msg("wizard deleted")
	return nil
}

func (s *wizardService) EditFields(ctx context.Context, id string, values map[string]string) (*WizardView, error) {
	return s.mutate(ctx, id, func(c *wizard.Controller) error {
		for _, k := range slices.Sorted(maps.Keys(values)) {
			if err := c.EditField(k, values[k]); err != nil {
				return fmt.Errorf("%w: %s", err, k)
			}
		}
		return nil
	})
}

func (s *wizardService) Touch(ctx context.Context, id string, fields []string) (*WizardView, error) {
	return s.mutate(ctx, id, func(c *wizard.Controller) error {
		for _, f := range fields {
			if err := c.TouchField(f); err != nil {
				return fmt.Errorf("%w: %s", err, f)
			}
		}
		return nil
	})
}

func (s *wizardService) Retreat(ctx context.Context, id string) (*WizardView, error) {
	return s.mutate(ctx, id, func(c *wizard.Controller) error {
		from := c.State()
		if err := c.Retreat(); err != nil {
			return err
		}
		s.opts.Metrics.transition(from, c.State())
		return nil
	})
}

func (s *wizardService) Advance(ctx context.Context, sess session.Session, id string, values map[string]string) (*WizardView, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	unlock := s.locks.Lock(id)
	c, row, err := s.load(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}

	out, err := c.Advance(values)
	if err != nil {
		if errors.Is(err, wizard.ErrValidation) {
			row, saveErr := s.save(ctx, row, c)
			unlock()
			if saveErr != nil {
				return nil, saveErr
			}
			return newView(id, c, row.UpdatedAt), err
		}
		unlock()
		return newView(id, c, row.UpdatedAt), err
	}
	s.opts.Metrics.transition(out.From, out.To)

	// Submitting is persisted before the request leaves so a concurrent
	// advance sees it and is refused.
	row, err = s.save(ctx, row, c)
	if err != nil {
		unlock()
		return nil, err
	}
	if !out.Submit {
		unlock()
		return newView(id, c, row.UpdatedAt), nil
	}
	draft := c.Draft()
	unlock()

	return s.submit(context.WithoutCancel(ctx), sess, id, draft, row.UpdatedAt)
}

// saveOutcome retries the save that ends a submission. If every attempt
// fails the row stays Submitting until SubmitTimeout marks it failed.
func (s *wizardService) saveOutcome(ctx context.Context, row *model.WizardSession, c *wizard.Controller) (*model.WizardSession, error) {
	var err error
	for attempt := 1; attempt <= outcomeSaveAttempts; attempt++ {
		var saved *model.WizardSession
		if saved, err = s.save(ctx, row, c); err == nil {
			return saved, nil
		}
		if errors.Is(err, ErrWizardNotFound) || attempt == outcomeSaveAttempts {
			break
		}
		s.opts.Logger.Warn().Err(err).Str("wizard_id", row.ID).Int("attempt", attempt).Msg("save submission outcome")
		time.Sleep(time.Duration(attempt) * outcomeRetryDelay)
	}
	return nil, err
}

// submit runs the network call outside the wizard lock and records the
// outcome under it. started is the updated_at written with Submitting;
// nothing else writes the row while it is Submitting.
func (s *wizardService) submit(ctx context.Context, sess session.Session, id string, draft model.Draft, started time.Time) (*WizardView, error) {
	l := s.opts.Logger.With().Str("wizard_id", id).Logger()

	patient, subErr := s.submitter.Submit(ctx, sess, draft)
	s.opts.Metrics.submission(subErr)
	if subErr != nil {
		l.Warn().Err(subErr).Msg("patient submission failed")
	} else {
		l.Info().Str("patient_id", patient.ID).Msg("patient submission succeeded")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	c, row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.State()
	if from != wizard.StateSubmitting || !row.UpdatedAt.Equal(started) {
		// settled elsewhere while the request was out
		l.Warn().Str("state", string(from)).Bool("submitted", subErr == nil).Msg("submission outcome arrived late")
		return newView(id, c, row.UpdatedAt), nil
	}
	if err := c.CompleteSubmission(subErr); err != nil {
		return nil, err
	}
	row, err = s.saveOutcome(ctx, row, c)
	if err != nil {
		l.Error().Err(err).Msg("record submission outcome")
		return nil, err
	}
	s.opts.Metrics.transition(from, c.State())

	if subErr == nil {
		s.discardStaged(ctx, id)
		s.scheduleReset(id)
	}
	return newView(id, c, row.UpdatedAt), nil
}

func (s *wizardService) AddFile(ctx context.Context, id string, category string, up Upload) (*WizardView, wizard.AddResult, error) {
	if id == "" {
		return nil, 0, ErrIDRequired
	}
	if up.Body == nil {
		return nil, 0, ErrReaderNil
	}
	cat, ok := model.ParseCategory(category)
	if !ok {
		return nil, 0, wizard.ErrUnknownCategory
	}
	if !cat.Accepts(up.ContentType) {
		s.opts.Metrics.upload(category, "rejected")
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedMedia, up.ContentType)
	}

	// Uploads to a wizard that cannot take them are refused before streaming.
	c, row, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if err := c.CheckEditable(); err != nil {
		return newView(id, c, row.UpdatedAt), 0, err
	}

	// The object is streamed and hashed without holding the wizard lock.
	filename := path.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	key := storage.StagingKey(id, category, filename)
	h := sha256.New()
	info, err := s.store.Put(ctx, key, io.TeeReader(up.Body, h), storage.PutObjectOptions{
		Size:        up.Size,
		ContentType: up.ContentType,
		Metadata:    map[string]string{"original-filename": filename},
	})
	if err != nil {
		s.opts.Metrics.upload(category, "error")
		return nil, 0, fmt.Errorf("upload to storage: %w", err)
	}
	ref := model.FileRef{
		Handle:      hex.EncodeToString(h.Sum(nil)),
		Category:    cat,
		Filename:    filename,
		ContentType: up.ContentType,
		Size:        info.Size,
		StorageKey:  key,
		Status:      model.UploadPending,
		CreatedAt:   s.now(),
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	c, row, err = s.load(ctx, id)
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, 0, err
	}
	res, err := c.AddFile(cat, ref)
	if err != nil || res == wizard.Duplicate {
		s.deleteObject(ctx, key)
	}
	if err != nil {
		if !errors.Is(err, wizard.ErrSubmissionInFlight) && !errors.Is(err, wizard.ErrInvalidTransition) {
			s.opts.Metrics.upload(category, "rejected")
		}
		return newView(id, c, row.UpdatedAt), 0, err
	}
	if res == wizard.Duplicate {
		s.opts.Metrics.upload(category, "duplicate")
		return newView(id, c, row.UpdatedAt), res, nil
	}

	row, err = s.save(ctx, row, c)
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, 0, err
	}
	s.opts.Metrics.upload(category, "added")
	return newView(id, c, row.UpdatedAt), res, nil
}

func (s *wizardService) RemoveFile(ctx context.Context, id string, category string, handle string) (*WizardView, error) {
	cat, ok := model.ParseCategory(category)
	if !ok {
		return nil, wizard.ErrUnknownCategory
	}
	var removed model.FileRef
	view, err := s.mutate(ctx, id, func(c *wizard.Controller) error {
		ref, ok, err := c.RemoveFile(cat, handle)
		if ok {
			removed = ref
		}
		return err
	})
	if err == nil && removed.StorageKey != "" {
		s.deleteObject(ctx, removed.StorageKey)
	}
	return view, err
}

func (s *wizardService) FileURL(ctx context.Context, id string, category string, handle string) (string, error) {
	cat, ok := model.ParseCategory(category)
	if !ok {
		return "", wizard.ErrUnknownCategory
	}
	if id == "" {
		return "", ErrIDRequired
	}
	c, _, err := s.loadLocked(ctx, id)
	if err != nil {
		return "", err
	}
	for _, ref := range c.Uploads().Files(cat) {
		if ref.Handle == handle && ref.StorageKey != "" {
			u, err := s.store.PresignGet(ctx, ref.StorageKey, previewURLExpiry)
			if err != nil {
				return "", fmt.Errorf("presign attachment: %w", err)
			}
			return u, nil
		}
	}
	return "", ErrFileNotFound
}

func (s *wizardService) PurgeExpired(ctx context.Context) (int, error) {
	if s.opts.SessionTTL <= 0 {
		return 0, nil
	}
	ids, err := s.repo.DeleteExpired(ctx, s.now().Add(-s.opts.SessionTTL))
	if err != nil {
		return 0, fmt.Errorf("purge wizards: %w", err)
	}
	for _, id := range ids {
		s.stopTimer(id)
		s.discardStaged(ctx, id)
	}
	if len(ids) > 0 {
		s.opts.Logger.Info().Int("count", len(ids)).Msg("expired wizards purged")
	}
	return len(ids), nil
}

// RunJanitor purges expired wizards every interval until ctx is done.
func RunJanitor(ctx context.Context, svc WizardService, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := svc.PurgeExpired(ctx); err != nil {
				logger.Error().Err(err).Msg("wizard janitor")
			}
		}
	}
}

func (s *wizardService) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// mutate loads a wizard under its lock, applies fn and saves the result.
// A validation failure is saved too so its field errors survive.
func (s *wizardService) mutate(ctx context.Context, id string, fn func(c *wizard.Controller) error) (*WizardView, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	c, row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil && !errors.Is(err, wizard.ErrValidation) {
		return newView(id, c, row.UpdatedAt), err
	}
	row, err = s.save(ctx, row, c)
	if err != nil {
		return nil, err
	}
	return newView(id, c, row.UpdatedAt), nil
}

func (s *wizardService) load(ctx context.Context, id string) (*wizard.Controller, *model.WizardSession, error) {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrWizardNotFound
		}
		return nil, nil, fmt.Errorf("load wizard: %w", err)
	}
	var snap wizard.Snapshot
	if err := json.Unmarshal(row.Snapshot, &snap); err != nil {
		return nil, nil, fmt.Errorf("decode wizard %s: %w", id, err)
	}
	c, err := wizard.Restore(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("restore wizard %s: %w", id, err)
	}
	if row, err = s.settle(ctx, c, row); err != nil {
		return nil, nil, err
	}
	return c, row, nil
}

// loadLocked is load for callers that do not already hold the wizard lock.
func (s *wizardService) loadLocked(ctx context.Context, id string) (*wizard.Controller, *model.WizardSession, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.load(ctx, id)
}

// settle applies the time-driven transitions that are due on a loaded
// wizard: Done past ResetDelay returns to the first step, and Submitting
// past SubmitTimeout is completed as failed. Both are persisted so they
// hold across restarts and replicas. The caller holds the wizard lock.
func (s *wizardService) settle(ctx context.Context, c *wizard.Controller, row *model.WizardSession) (*model.WizardSession, error) {
	idle := s.now().Sub(row.UpdatedAt)
	from := c.State()
	l := s.opts.Logger.With().Str("wizard_id", row.ID).Logger()

	switch {
	case from == wizard.StateDone && idle >= s.opts.ResetDelay:
		if err := c.Reset(); err != nil {
			return nil, err
		}
	case from == wizard.StateSubmitting && s.opts.SubmitTimeout > 0 && idle >= s.opts.SubmitTimeout:
		if err := c.CompleteSubmission(errSubmissionLost); err != nil {
			return nil, err
		}
		s.opts.Metrics.submission(errSubmissionLost)
		l.Warn().Dur("idle", idle).Msg("stale submission marked failed")
	default:
		return row, nil
	}

	saved, err := s.save(ctx, row, c)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.transition(from, c.State())
	if c.State() == wizard.StateStep1 {
		s.stopTimer(row.ID)
		s.discardStaged(ctx, row.ID)
		l.Debug().Msg("wizard reset")
	}
	return saved, nil
}

func (s *wizardService) save(ctx context.Context, row *model.WizardSession, c *wizard.Controller) (*model.WizardSession, error) {
	snap, err := json.Marshal(c.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode wizard: %w", err)
	}
	next := *row
	next.State = string(c.State())
	next.Snapshot = snap
	next.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWizardNotFound
		}
		return nil, fmt.Errorf("save wizard: %w", err)
	}
	return &next, nil
}

func (s *wizardService) scheduleReset(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.opts.ResetDelay, func() { s.resetDone(id) })
}

func (s *wizardService) stopTimer(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// resetDone is the timer path of the Done reset. By the time it fires the
// row is due, so loading it settles the reset.
func (s *wizardService) resetDone(id string) {
	s.timersMu.Lock()
	delete(s.timers, id)
	s.timersMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, _, err := s.loadLocked(ctx, id); err != nil && !errors.Is(err, ErrWizardNotFound) {
		s.opts.Logger.Error().Err(err).Str("wizard_id", id).Msg("wizard reset")
	}
}

func (s *wizardService) discardStaged(ctx context.Context, id string) {
	if err := s.store.DeletePrefix(ctx, storage.StagingPrefix(id)); err != nil {
		s.opts.Logger.Warn().Err(err).Str("wizard_id", id).Msg("discard staged attachments")
	}
}

func (s *wizardService) deleteObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.opts.Logger.Warn().Err(err).Str("key", key).Msg("delete staged attachment")
	}
}

func newView(id string, c *wizard.Controller, updated time.Time) *WizardView {
	return &WizardView{
		ID:           id,
		State:        c.State(),
		Step:         c.Step(),
		Values:       c.Form().Values(),
		Errors:       c.Form().VisibleErrors(),
		Draft:        c.Draft(),
		Reports:      c.Uploads().Files(model.CategoryReports),
		Images:       c.Uploads().Files(model.CategoryImages),
		Notification: c.Notification(),
		UpdatedAt:    updated,
	}
}
