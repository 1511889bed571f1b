// Package submission turns a completed intake draft into the multipart
// create-patient request of the Patient Records API.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
	"clinicdesk/internal/storage"
)

var tracer = otel.Tracer("clinicdesk/submission")

// ErrMissingContent is returned when an attached file has no staged object.
var ErrMissingContent = errors.New("attachment has no staged content")

// PatientCreator is the part of the API client the adapter needs.
type PatientCreator interface {
	CreatePatient(ctx context.Context, sess session.Session, body io.Reader, contentType string) (model.Patient, error)
}

// Adapter streams a draft to the API. Attachment bytes are read from
// staging storage while the request body is being sent.
type Adapter struct {
	api   PatientCreator
	store storage.Storage
}

func New(api PatientCreator, store storage.Storage) *Adapter {
	return &Adapter{api: api, store: store}
}

// Submit sends draft as one multipart request: each scalar field as a text
// part, then every report and image as a file part keyed by its category.
// The error wraps *clinicapi.APIError when the API answered non-2xx.
func (a *Adapter) Submit(ctx context.Context, sess session.Session, draft model.Draft) (model.Patient, error) {
	ctx, span := tracer.Start(ctx, "submission.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("intake.reports", len(draft.Reports)),
			attribute.Int("intake.images", len(draft.Images)),
		),
	)
	defer span.End()

	patient, err := a.submit(ctx, sess, draft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return model.Patient{}, err
	}
	span.SetAttributes(attribute.String("patient.id", patient.ID))
	return patient, nil
}

func (a *Adapter) submit(ctx context.Context, sess session.Session, draft model.Draft) (model.Patient, error) {
	for _, c := range model.Categories {
		for _, ref := range draft.Files(c) {
			if ref.StorageKey == "" {
				return model.Patient{}, fmt.Errorf("%w: %s/%s", ErrMissingContent, c, ref.Filename)
			}
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	writeErr := make(chan error, 1)
	go func() {
		err := a.writeParts(ctx, mw, draft)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
		writeErr <- err
	}()

	patient, err := a.api.CreatePatient(ctx, sess, pr, mw.FormDataContentType())
	pr.Close()
	if werr := <-writeErr; werr != nil && !errors.Is(werr, io.ErrClosedPipe) {
		return model.Patient{}, fmt.Errorf("build patient payload: %w", werr)
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("create patient: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("patient_id", patient.ID).
		Int("reports", len(draft.Reports)).
		Int("images", len(draft.Images)).
		Msg("patient submitted")
	return patient, nil
}

func (a *Adapter) writeParts(ctx context.Context, mw *multipart.Writer, draft model.Draft) error {
	for _, name := range fieldOrder(draft.Fields) {
		if err := mw.WriteField(name, draft.Fields[name]); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, c := range model.Categories {
		for _, ref := range draft.Files(c) {
			if err := a.writeFile(ctx, mw, c, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Adapter) writeFile(ctx context.Context, mw *multipart.Writer, c model.Category, ref model.FileRef) error {
	rc, _, err := a.store.Get(ctx, ref.StorageKey)
	if err != nil {
		return fmt.Errorf("open %s: %w", ref.StorageKey, err)
	}
	defer rc.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(string(c)), quoteEscaper.Replace(ref.Filename)))
	ct := ref.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", ref.Filename, err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy %s: %w", ref.Filename, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// fieldOrder returns the record fields first, then any other keys sorted.
func fieldOrder(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	known := make(map[string]bool, len(model.RecordFields))
	for _, name := range model.RecordFields {
		known[name] = true
		if _, ok := fields[name]; ok {
			out = append(out, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if !known[name] {
			out = append(out, name)
		}
	}
	return out
}
