package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/model"
	"clinicdesk/internal/repository"
	"clinicdesk/internal/session"
	"clinicdesk/internal/storage"
	storeMocks "clinicdesk/internal/storage/mocks"
	"clinicdesk/internal/wizard"
)

// memRepo keeps sessions in memory so controller snapshots round-trip
// through the service exactly as they would through Postgres.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]model.WizardSession
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]model.WizardSession{}}
}

func (r *memRepo) Create(_ context.Context, s *model.WizardSession) (*model.WizardSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = *s
	out := *s
	return &out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*model.WizardSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (r *memRepo) Save(_ context.Context, s *model.WizardSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[s.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[s.ID] = *s
	return nil
}

func (r *memRepo) List(_ context.Context, pq repository.PageQuery) (*repository.PageResult[model.WizardSession], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.WizardSession, 0, len(r.rows))
	for _, row := range r.rows {
		items = append(items, row)
	}
	total := len(items)
	if pq.Offset < len(items) {
		items = items[pq.Offset:]
	} else {
		items = nil
	}
	if len(items) > pq.Limit {
		items = items[:pq.Limit]
	}
	return &repository.PageResult[model.WizardSession]{Items: items, Total: total}, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memRepo) DeleteExpired(_ context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, row := range r.rows {
		if row.UpdatedAt.Before(before) {
			ids = append(ids, id)
			delete(r.rows, id)
		}
	}
	return ids, nil
}

func (r *memRepo) age(id string, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.UpdatedAt = row.UpdatedAt.Add(-by)
	r.rows[id] = row
}

// flakyRepo fails the next failSaves calls to Save.
type flakyRepo struct {
	*memRepo
	failSaves atomic.Int32
}

func (r *flakyRepo) Save(ctx context.Context, s *model.WizardSession) error {
	if r.failSaves.Add(-1) >= 0 {
		return errors.New("connection reset by peer")
	}
	r.failSaves.Store(0)
	return r.memRepo.Save(ctx, s)
}

// gateSubmitter blocks every Submit until release is closed.
type gateSubmitter struct {
	started chan struct{}
	release chan struct{}
	err     error
	calls   atomic.Int32
	drafts  chan model.Draft
}

func newGateSubmitter(err error) *gateSubmitter {
	return &gateSubmitter{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
		err:     err,
		drafts:  make(chan model.Draft, 4),
	}
}

func (g *gateSubmitter) Submit(ctx context.Context, _ session.Session, draft model.Draft) (model.Patient, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	g.drafts <- draft
	<-g.release
	if g.err != nil {
		return model.Patient{}, g.err
	}
	return model.Patient{ID: "p-1", FirstName: draft.Get(model.FieldFirstName)}, nil
}

func drainingPut(ctx context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
	n, _ := io.Copy(io.Discard, r)
	return storage.ObjectInfo{Key: key, Size: n}
}

// newBlockingStore returns a store whose first Put signals entered and then
// waits for proceed.
func newBlockingStore() (st *storeMocks.MockStorage, entered, proceed chan struct{}) {
	st = new(storeMocks.MockStorage)
	entered = make(chan struct{})
	proceed = make(chan struct{})
	blocking := func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		close(entered)
		<-proceed
		return drainingPut(ctx, key, r, opt)
	}
	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(blocking, nil).Once()
	st.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	st.On("DeletePrefix", mock.Anything, mock.Anything).Return(nil).Maybe()
	return st, entered, proceed
}

func newTestStore() *storeMocks.MockStorage {
	st := new(storeMocks.MockStorage)
	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(drainingPut, nil).Maybe()
	st.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	st.On("DeletePrefix", mock.Anything, mock.Anything).Return(nil).Maybe()
	return st
}

func stepValues() []map[string]string {
	return []map[string]string{
		{
			model.FieldFirstName:     "Jane",
			model.FieldLastName:      "Doe",
			model.FieldEmail:         "jane@x.com",
			model.FieldPhone:         "5551234567",
			model.FieldGender:        model.GenderFemale,
			model.FieldBirthDate:     "1990-01-01",
			model.FieldMaritalStatus: model.MaritalSingle,
		},
		{
			model.FieldMedicalHistory:        "asthma",
			model.FieldMedications:           "salbutamol",
			model.FieldSummaryReport:         "stable",
			model.FieldReasonForConsultation: "follow-up",
		},
		{
			model.FieldVisitDate:           "2024-05-01",
			model.FieldNextAppointmentDate: "2024-06-01",
		},
	}
}

func upload(name, ct, body string) Upload {
	return Upload{Filename: name, ContentType: ct, Size: int64(len(body)), Body: strings.NewReader(body)}
}

// toVisitStep creates a wizard, fills the first two steps and attaches one
// report and one image.
func toVisitStep(t *testing.T, svc WizardService, sess session.Session) string {
	t.Helper()
	ctx := context.Background()
	v, err := svc.Create(ctx)
	require.NoError(t, err)
	steps := stepValues()
	for _, vals := range steps[:2] {
		v, err = svc.Advance(ctx, sess, v.ID, vals)
		require.NoError(t, err)
	}
	require.Equal(t, wizard.StateStep3, v.State)

	_, res, err := svc.AddFile(ctx, v.ID, "reports", upload("report.pdf", "application/pdf", "%PDF-1"))
	require.NoError(t, err)
	require.Equal(t, wizard.Added, res)
	_, _, err = svc.AddFile(ctx, v.ID, "images", upload("xray.png", "image/png", "\x89PNG"))
	require.NoError(t, err)
	return v.ID
}

func TestWizardService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewWizardService(newMemRepo(), newTestStore(), newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, wizard.StateStep1, v.State)
	assert.Equal(t, wizard.StepDemographic, v.Step)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrWizardNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)

	list, err := svc.List(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Len(t, list.Items, 1)
}

func TestWizardService_AdvanceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewWizardService(newMemRepo(), newTestStore(), newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(ctx)
	require.NoError(t, err)

	v, err = svc.Advance(ctx, session.Session{Token: "tok"}, v.ID, nil)
	require.ErrorIs(t, err, wizard.ErrValidation)
	require.NotNil(t, v)
	assert.Equal(t, wizard.StateStep1, v.State)
	assert.Len(t, v.Errors, 7)

	// errors survive a reload
	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, got.Errors, 7)

	_, err = svc.EditFields(ctx, v.ID, map[string]string{model.FieldVisitDate: "2024-01-01"})
	assert.ErrorIs(t, err, wizard.ErrUnknownField)
}

func TestWizardService_EditTouchRetreat(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	svc := NewWizardService(newMemRepo(), newTestStore(), newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(ctx)
	require.NoError(t, err)

	v, err = svc.Touch(ctx, v.ID, []string{model.FieldEmail})
	require.NoError(t, err)
	assert.Empty(t, v.Errors)

	_, err = svc.Touch(ctx, v.ID, []string{"nope"})
	assert.ErrorIs(t, err, wizard.ErrUnknownField)

	v, err = svc.Advance(ctx, sess, v.ID, nil)
	require.ErrorIs(t, err, wizard.ErrValidation)
	assert.Equal(t, "Email is required", v.Errors[model.FieldEmail])

	v, err = svc.EditFields(ctx, v.ID, map[string]string{model.FieldEmail: "jane@x.com"})
	require.NoError(t, err)
	assert.NotContains(t, v.Errors, model.FieldEmail)
	assert.Equal(t, "jane@x.com", v.Values[model.FieldEmail])

	v, err = svc.Advance(ctx, sess, v.ID, stepValues()[0])
	require.NoError(t, err)
	v, err = svc.EditFields(ctx, v.ID, map[string]string{model.FieldMedicalHistory: "none"})
	require.NoError(t, err)

	v, err = svc.Retreat(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateStep1, v.State)
	assert.Equal(t, "Jane", v.Values[model.FieldFirstName])

	_, err = svc.Retreat(ctx, v.ID)
	assert.ErrorIs(t, err, wizard.ErrInvalidTransition)
}

func TestWizardService_AddFile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := NewWizardService(newMemRepo(), st, newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(ctx)
	require.NoError(t, err)

	t.Run("stages under the wizard prefix", func(t *testing.T) {
		got, res, err := svc.AddFile(ctx, v.ID, "reports", upload("Lab.PDF", "application/pdf", "lab"))
		require.NoError(t, err)
		assert.Equal(t, wizard.Added, res)
		require.Len(t, got.Reports, 1)
		ref := got.Reports[0]
		assert.Equal(t, "Lab.PDF", ref.Filename)
		assert.EqualValues(t, 3, ref.Size)
		assert.True(t, strings.HasPrefix(ref.StorageKey, storage.StagingPrefix(v.ID)+"reports/"))
		assert.True(t, strings.HasSuffix(ref.StorageKey, ".pdf"))
		assert.Len(t, ref.Handle, 64)
	})

	t.Run("same content is a duplicate and is unstaged", func(t *testing.T) {
		got, res, err := svc.AddFile(ctx, v.ID, "reports", upload("copy.pdf", "application/pdf", "lab"))
		require.NoError(t, err)
		assert.Equal(t, wizard.Duplicate, res)
		assert.Len(t, got.Reports, 1)
		st.AssertCalled(t, "Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, ".pdf") && strings.Contains(key, v.ID)
		}))
	})

	t.Run("wrong media type", func(t *testing.T) {
		_, _, err := svc.AddFile(ctx, v.ID, "images", upload("a.pdf", "application/pdf", "x"))
		assert.ErrorIs(t, err, ErrUnsupportedMedia)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, _, err := svc.AddFile(ctx, v.ID, "videos", upload("a.mp4", "video/mp4", "x"))
		assert.ErrorIs(t, err, wizard.ErrUnknownCategory)
	})

	t.Run("nil body", func(t *testing.T) {
		_, _, err := svc.AddFile(ctx, v.ID, "images", Upload{Filename: "a.png", ContentType: "image/png"})
		assert.ErrorIs(t, err, ErrReaderNil)
	})

	t.Run("eleventh image is refused", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			_, _, err := svc.AddFile(ctx, v.ID, "images", upload("x.png", "image/png", strings.Repeat("i", i+1)))
			require.NoError(t, err)
		}
		got, _, err := svc.AddFile(ctx, v.ID, "images", upload("x.png", "image/png", "overflow"))
		assert.ErrorIs(t, err, wizard.ErrCategoryFull)
		assert.Len(t, got.Images, 10)
	})

	t.Run("preview url for a staged file", func(t *testing.T) {
		cur, err := svc.Get(ctx, v.ID)
		require.NoError(t, err)
		ref := cur.Reports[0]
		st.On("PresignGet", mock.Anything, ref.StorageKey, previewURLExpiry).Return("https://signed", nil).Once()

		u, err := svc.FileURL(ctx, v.ID, "reports", ref.Handle)
		require.NoError(t, err)
		assert.Equal(t, "https://signed", u)

		_, err = svc.FileURL(ctx, v.ID, "reports", "nope")
		assert.ErrorIs(t, err, ErrFileNotFound)
		_, err = svc.FileURL(ctx, v.ID, "videos", ref.Handle)
		assert.ErrorIs(t, err, wizard.ErrUnknownCategory)
	})

	t.Run("remove deletes the staged object", func(t *testing.T) {
		cur, err := svc.Get(ctx, v.ID)
		require.NoError(t, err)
		ref := cur.Reports[0]
		got, err := svc.RemoveFile(ctx, v.ID, "reports", ref.Handle)
		require.NoError(t, err)
		assert.Empty(t, got.Reports)
		st.AssertCalled(t, "Delete", mock.Anything, ref.StorageKey)
	})
}

func TestWizardService_AddFileStagesOutsideLock(t *testing.T) {
	ctx := context.Background()

	t.Run("edits proceed while an upload streams", func(t *testing.T) {
		st, entered, proceed := newBlockingStore()
		svc := NewWizardService(newMemRepo(), st, newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
		defer svc.Close()
		v, err := svc.Create(ctx)
		require.NoError(t, err)

		type result struct {
			view *WizardView
			res  wizard.AddResult
			err  error
		}
		added := make(chan result, 1)
		go func() {
			view, res, err := svc.AddFile(ctx, v.ID, "reports", upload("lab.pdf", "application/pdf", "lab"))
			added <- result{view, res, err}
		}()
		<-entered

		edited := make(chan error, 1)
		go func() {
			_, err := svc.EditFields(ctx, v.ID, map[string]string{model.FieldFirstName: "Jane"})
			edited <- err
		}()
		select {
		case err := <-edited:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("edit blocked behind the upload")
		}

		close(proceed)
		got := <-added
		require.NoError(t, got.err)
		assert.Equal(t, wizard.Added, got.res)
		assert.Len(t, got.view.Reports, 1)
		assert.Equal(t, "Jane", got.view.Values[model.FieldFirstName])
	})

	t.Run("wizard deleted while staging unstages the object", func(t *testing.T) {
		st, entered, proceed := newBlockingStore()
		svc := NewWizardService(newMemRepo(), st, newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
		defer svc.Close()
		v, err := svc.Create(ctx)
		require.NoError(t, err)

		added := make(chan error, 1)
		go func() {
			_, _, err := svc.AddFile(ctx, v.ID, "images", upload("xray.png", "image/png", "\x89PNG"))
			added <- err
		}()
		<-entered
		require.NoError(t, svc.Delete(ctx, v.ID))
		close(proceed)

		assert.ErrorIs(t, <-added, ErrWizardNotFound)
		st.AssertCalled(t, "Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, storage.StagingPrefix(v.ID)+"images/")
		}))
	})
}

func TestWizardService_StorageFailure(t *testing.T) {
	ctx := context.Background()
	st := new(storeMocks.MockStorage)
	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("bucket gone"))
	svc := NewWizardService(newMemRepo(), st, newGateSubmitter(nil), WizardOptions{Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.AddFile(ctx, v.ID, "reports", upload("a.pdf", "application/pdf", "x"))
	assert.EqualError(t, err, "upload to storage: bucket gone")

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Reports)
}

func TestWizardService_ConcurrentSubmitIsRefused(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	sub := newGateSubmitter(nil)
	svc := NewWizardService(newMemRepo(), newTestStore(), sub, WizardOptions{ResetDelay: time.Hour, Logger: zerolog.Nop()})
	defer svc.Close()

	id := toVisitStep(t, svc, sess)

	type result struct {
		view *WizardView
		err  error
	}
	first := make(chan result, 1)
	go func() {
		v, err := svc.Advance(ctx, sess, id, stepValues()[2])
		first <- result{v, err}
	}()
	<-sub.started

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateSubmitting, got.State)

	_, err = svc.Advance(ctx, sess, id, nil)
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)
	_, _, err = svc.AddFile(ctx, id, "images", upload("late.png", "image/png", "late"))
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)
	assert.ErrorIs(t, svc.Delete(ctx, id), wizard.ErrSubmissionInFlight)

	close(sub.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, wizard.StateDone, res.view.State)
	require.NotNil(t, res.view.Notification)
	assert.Equal(t, wizard.NoticeSuccess, res.view.Notification.Level)
	assert.EqualValues(t, 1, sub.calls.Load())

	draft := <-sub.drafts
	assert.Equal(t, "Jane", draft.Get(model.FieldFirstName))
	assert.Equal(t, "2024-06-01", draft.Get(model.FieldNextAppointmentDate))
	assert.Len(t, draft.Reports, 1)
	assert.Len(t, draft.Images, 1)
}

func TestWizardService_SubmitSuccessResets(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	st := newTestStore()
	sub := newGateSubmitter(nil)
	close(sub.release)
	reg := prometheus.NewRegistry()
	metrics, err := NewWizardMetrics(reg)
	require.NoError(t, err)

	svc := NewWizardService(newMemRepo(), st, sub, WizardOptions{
		ResetDelay: 20 * time.Millisecond,
		Metrics:    metrics,
		Logger:     zerolog.Nop(),
	})
	defer svc.Close()

	id := toVisitStep(t, svc, sess)
	v, err := svc.Advance(ctx, sess, id, stepValues()[2])
	require.NoError(t, err)
	assert.Equal(t, wizard.StateDone, v.State)
	assert.Equal(t, wizard.MessageSubmitted, v.Notification.Message)
	st.AssertCalled(t, "DeletePrefix", mock.Anything, storage.StagingPrefix(id))

	assert.Eventually(t, func() bool {
		got, err := svc.Get(ctx, id)
		return err == nil && got.State == wizard.StateStep1
	}, time.Second, 10*time.Millisecond)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Draft.IsEmpty())
	assert.Empty(t, got.Reports)
	assert.Empty(t, got.Images)
	assert.Nil(t, got.Notification)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("done", "step1")))
}

func TestWizardService_SubmitFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	st := newTestStore()
	sub := newGateSubmitter(errors.New("clinic api: status 500: boom"))
	close(sub.release)
	svc := NewWizardService(newMemRepo(), st, sub, WizardOptions{ResetDelay: 10 * time.Millisecond, Logger: zerolog.Nop()})
	defer svc.Close()

	id := toVisitStep(t, svc, sess)
	v, err := svc.Advance(ctx, sess, id, stepValues()[2])
	require.NoError(t, err)
	assert.Equal(t, wizard.StateFailed, v.State)
	assert.Equal(t, wizard.NoticeError, v.Notification.Level)
	assert.Equal(t, "Jane", v.Draft.Get(model.FieldFirstName))
	assert.Len(t, v.Reports, 1)
	st.AssertNotCalled(t, "DeletePrefix", mock.Anything, mock.Anything)

	time.Sleep(30 * time.Millisecond)
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateFailed, got.State)

	// retry from Failed submits again
	_, err = svc.Advance(ctx, sess, id, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sub.calls.Load())
}

func TestWizardService_DoneResetSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	repo := newMemRepo()
	sub := newGateSubmitter(nil)
	close(sub.release)

	first := NewWizardService(repo, newTestStore(), sub, WizardOptions{ResetDelay: time.Hour, Logger: zerolog.Nop()})
	id := toVisitStep(t, first, sess)
	v, err := first.Advance(ctx, sess, id, stepValues()[2])
	require.NoError(t, err)
	require.Equal(t, wizard.StateDone, v.State)
	first.Close()

	st := newTestStore()
	reg := prometheus.NewRegistry()
	metrics, err := NewWizardMetrics(reg)
	require.NoError(t, err)
	second := NewWizardService(repo, st, sub, WizardOptions{ResetDelay: time.Minute, Metrics: metrics, Logger: zerolog.Nop()})
	defer second.Close()

	got, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateDone, got.State)

	repo.age(id, 2*time.Minute)
	got, err = second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateStep1, got.State)
	assert.True(t, got.Draft.IsEmpty())
	assert.Empty(t, got.Reports)
	assert.Empty(t, got.Images)
	assert.Nil(t, got.Notification)
	st.AssertCalled(t, "DeletePrefix", mock.Anything, storage.StagingPrefix(id))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("done", "step1")))

	row, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(wizard.StateStep1), row.State)

	_, err = second.Retreat(ctx, id)
	assert.ErrorIs(t, err, wizard.ErrInvalidTransition)
	v, err = second.Advance(ctx, sess, id, stepValues()[0])
	require.NoError(t, err)
	assert.Equal(t, wizard.StateStep2, v.State)
}

func TestWizardService_StaleSubmissionFails(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok"}
	repo := newMemRepo()
	sub := newGateSubmitter(nil)

	first := NewWizardService(repo, newTestStore(), sub, WizardOptions{ResetDelay: time.Hour, Logger: zerolog.Nop()})
	defer first.Close()
	id := toVisitStep(t, first, sess)

	outcome := make(chan error, 1)
	go func() {
		_, err := first.Advance(ctx, sess, id, stepValues()[2])
		outcome <- err
	}()
	<-sub.started

	reg := prometheus.NewRegistry()
	metrics, err := NewWizardMetrics(reg)
	require.NoError(t, err)
	second := NewWizardService(repo, newTestStore(), sub, WizardOptions{
		SubmitTimeout: time.Minute,
		Metrics:       metrics,
		Logger:        zerolog.Nop(),
	})
	defer second.Close()

	got, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateSubmitting, got.State)
	assert.ErrorIs(t, second.Delete(ctx, id), wizard.ErrSubmissionInFlight)

	repo.age(id, 2*time.Minute)
	got, err = second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateFailed, got.State)
	require.NotNil(t, got.Notification)
	assert.Equal(t, wizard.NoticeError, got.Notification.Level)
	assert.Equal(t, wizard.MessageSubmitFailed, got.Notification.Message)
	assert.Equal(t, "Jane", got.Draft.Get(model.FieldFirstName))
	assert.Len(t, got.Reports, 1)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("submitting", "failed")))

	v, err := second.Retreat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateStep2, v.State)

	// the original request finishing late does not overwrite the recovery
	close(sub.release)
	require.NoError(t, <-outcome)
	got, err = second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateStep2, got.State)

	require.NoError(t, second.Delete(ctx, id))
}

func TestWizardService_OutcomeSaveIsRetried(t *testing.T) {
	delay := outcomeRetryDelay
	outcomeRetryDelay = time.Millisecond
	t.Cleanup(func() { outcomeRetryDelay = delay })

	ctx := context.Background()
	sess := session.Session{Token: "tok"}

	advance := func(t *testing.T, svc WizardService, repo *flakyRepo, sub *gateSubmitter, failures int32) (*WizardView, error) {
		t.Helper()
		id := toVisitStep(t, svc, sess)
		type result struct {
			view *WizardView
			err  error
		}
		out := make(chan result, 1)
		go func() {
			v, err := svc.Advance(ctx, sess, id, stepValues()[2])
			if v == nil {
				v = &WizardView{ID: id}
			}
			out <- result{v, err}
		}()
		<-sub.started
		repo.failSaves.Store(failures)
		sub.release <- struct{}{}
		res := <-out
		return res.view, res.err
	}

	t.Run("transient failures are absorbed", func(t *testing.T) {
		repo := &flakyRepo{memRepo: newMemRepo()}
		sub := newGateSubmitter(nil)
		svc := NewWizardService(repo, newTestStore(), sub, WizardOptions{ResetDelay: time.Hour, Logger: zerolog.Nop()})
		defer svc.Close()

		v, err := advance(t, svc, repo, sub, outcomeSaveAttempts-1)
		require.NoError(t, err)
		assert.Equal(t, wizard.StateDone, v.State)

		got, err := svc.Get(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, wizard.StateDone, got.State)
	})

	t.Run("exhausted retries fall back to failed", func(t *testing.T) {
		repo := &flakyRepo{memRepo: newMemRepo()}
		sub := newGateSubmitter(nil)
		svc := NewWizardService(repo, newTestStore(), sub, WizardOptions{
			ResetDelay:    time.Hour,
			SubmitTimeout: time.Minute,
			Logger:        zerolog.Nop(),
		})
		defer svc.Close()

		v, err := advance(t, svc, repo, sub, outcomeSaveAttempts)
		require.Error(t, err)

		got, err := svc.Get(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, wizard.StateSubmitting, got.State)

		repo.age(v.ID, 2*time.Minute)
		got, err = svc.Get(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, wizard.StateFailed, got.State)
		assert.Equal(t, "Jane", got.Draft.Get(model.FieldFirstName))
	})
}

func TestWizardService_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	st := newTestStore()
	svc := NewWizardService(repo, st, newGateSubmitter(nil), WizardOptions{SessionTTL: time.Hour, Logger: zerolog.Nop()})
	defer svc.Close()

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	b, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	st.AssertCalled(t, "DeletePrefix", mock.Anything, storage.StagingPrefix(a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrWizardNotFound)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	repo.age(b.ID, 2*time.Hour)
	n, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st.AssertCalled(t, "DeletePrefix", mock.Anything, storage.StagingPrefix(b.ID))

	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrWizardNotFound)
}

func TestRunJanitor(t *testing.T) {
	repo := newMemRepo()
	svc := NewWizardService(repo, newTestStore(), newGateSubmitter(nil), WizardOptions{SessionTTL: time.Minute, Logger: zerolog.Nop()})
	defer svc.Close()

	v, err := svc.Create(context.Background())
	require.NoError(t, err)
	repo.age(v.ID, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, svc, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := svc.Get(context.Background(), v.ID)
		return errors.Is(err, ErrWizardNotFound)
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
