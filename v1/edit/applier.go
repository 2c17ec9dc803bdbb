package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-fedit/v1/adapter"
	"github.com/mirkobrombin/go-fedit/v1/content"
	"github.com/mirkobrombin/go-fedit/v1/lock"
	"github.com/mirkobrombin/go-fedit/v1/metrics"
	"github.com/mirkobrombin/go-fedit/v1/model"
	"github.com/mirkobrombin/go-fedit/v1/syncbus"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-fedit/v1/edit")

// DefaultLockPrefix is prepended to the status URI to name its lease.
const DefaultLockPrefix = "update:"

// DefaultAcceptedTypes are the object types that can be edited.
var DefaultAcceptedTypes = []string{"Note", "Question"}

// ErrNilStatus is carried by a skipped result when Apply got no status.
var ErrNilStatus = errors.New("fedit: no status to edit")

// Applier applies edit documents to statuses.
type Applier struct {
	store    adapter.Store
	gate     *lock.Gate
	accounts adapter.AccountSource
	bus      syncbus.Bus
	types    []string
	ttl      time.Duration
	prefix   string
	now      func() time.Time
	logger   *slog.Logger
	trace    bool
}

// Option configures an Applier.
type Option func(*Applier)

// WithAcceptedTypes replaces the editable object types.
func WithAcceptedTypes(types ...string) Option {
	return func(a *Applier) {
		a.types = append([]string(nil), types...)
	}
}

// WithLockTTL sets how long the lease may be held before it expires.
func WithLockTTL(d time.Duration) Option {
	return func(a *Applier) {
		a.ttl = d
	}
}

// WithLockPrefix sets the prefix used to derive lease keys.
func WithLockPrefix(p string) Option {
	return func(a *Applier) {
		a.prefix = p
	}
}

// WithClock sets the time source used when a document has no "updated".
func WithClock(now func() time.Time) Option {
	return func(a *Applier) {
		a.now = now
	}
}

// WithAccounts sets where ApplyByURI looks up authors. The store is used
// otherwise.
func WithAccounts(src adapter.AccountSource) Option {
	return func(a *Applier) {
		a.accounts = src
	}
}

// WithBus announces committed edits on bus.
func WithBus(bus syncbus.Bus) Option {
	return func(a *Applier) {
		a.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Applier) {
		a.logger = l
	}
}

// WithTracing enables OpenTelemetry spans for Apply.
func WithTracing() Option {
	return func(a *Applier) {
		a.trace = true
	}
}

// New returns an Applier writing to store under leases taken through gate.
func New(store adapter.Store, gate *lock.Gate, opts ...Option) *Applier {
	a := &Applier{
		store:    store,
		gate:     gate,
		accounts: store,
		types:    DefaultAcceptedTypes,
		ttl:      lock.DefaultTTL,
		prefix:   DefaultLockPrefix,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LockKey returns the lease key protecting the status identified by uri.
func (a *Applier) LockKey(uri string) string {
	return a.prefix + uri
}

// NotificationKey returns the bus key announced after uri is edited.
func NotificationKey(uri string) string {
	return "status:" + uri
}

// Apply writes the state claimed by doc onto status, whose author is account.
//
// Documents of another type, or claiming another identity, are skipped. On
// OutcomeCommitted status is updated in place with the stored values; for
// every other outcome it is left untouched.
func (a *Applier) Apply(ctx context.Context, status *model.Status, account model.Account, doc *content.Document) (res Result) {
	start := time.Now()
	var span trace.Span
	if a.trace {
		var uri string
		if status != nil {
			uri = status.URI
		}
		ctx, span = tracer.Start(ctx, "Applier.Apply", trace.WithAttributes(attribute.String("fedit.status.uri", uri)))
		defer span.End()
	}
	defer func() {
		metrics.EditCounter.WithLabelValues(res.Outcome.String()).Inc()
		metrics.EditDuration.Observe(time.Since(start).Seconds())
		if span != nil {
			span.SetAttributes(attribute.String("fedit.outcome", res.Outcome.String()))
			if err := res.Fault(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
	}()

	if status == nil {
		return Result{Outcome: OutcomeSkipped, Err: ErrNilStatus}
	}
	if !doc.HasType(a.types...) {
		a.logger.Debug("fedit: skipping document", "uri", status.URI, "type", typesOf(doc))
		return Result{Outcome: OutcomeSkipped}
	}
	if doc.ID != "" && doc.ID != status.URI {
		a.logger.Debug("fedit: document identity mismatch", "uri", status.URI, "id", doc.ID)
		return Result{Outcome: OutcomeSkipped}
	}

	key := a.LockKey(status.URI)
	err := a.gate.WithLock(ctx, key, a.ttl, func(ctx context.Context) error {
		var fields model.EditFields
		err := a.store.Transaction(ctx, func(ctx context.Context, tx adapter.Tx) error {
			fields = a.fields(account, doc)
			return tx.SaveEdit(ctx, status.URI, fields)
		})
		if err != nil {
			return err
		}
		// The handle only changes while the lease is held.
		status.ApplyEdit(fields)
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		a.logger.Warn("fedit: edit dropped, lease held elsewhere", "uri", status.URI, "key", key)
		return Result{Outcome: OutcomeRaceCondition, Err: fmt.Errorf("%w: %s", ErrRaceCondition, status.URI)}
	}
	if err != nil {
		a.logger.Error("fedit: edit failed", "uri", status.URI, "error", err)
		return Result{Outcome: OutcomePersistenceFault, Err: &PersistenceError{URI: status.URI, Err: err}}
	}

	a.announce(ctx, status.URI)
	return Result{Outcome: OutcomeCommitted, Status: status}
}

// fields derives the new attribute values. It only depends on its inputs
// and the clock.
func (a *Applier) fields(account model.Account, doc *content.Document) model.EditFields {
	r := content.Resolve(doc)
	sensitive := account.Sensitized || (doc.Sensitive != nil && *doc.Sensitive)
	editedAt := a.now().UTC()
	if doc.Updated != nil {
		editedAt = *doc.Updated
	}
	return model.EditFields{
		Text:        r.Text,
		SpoilerText: r.Summary,
		Sensitive:   sensitive,
		Language:    r.Language,
		EditedAt:    editedAt,
	}
}

func (a *Applier) announce(ctx context.Context, uri string) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(ctx, NotificationKey(uri)); err != nil {
		a.logger.Warn("fedit: edit notification failed", "uri", uri, "error", err)
	}
}

// ApplyJSON parses raw and applies it. A document that cannot be parsed is
// skipped with the parse error in Err.
func (a *Applier) ApplyJSON(ctx context.Context, status *model.Status, account model.Account, raw []byte) Result {
	doc, err := content.ParseDocument(raw)
	if err != nil {
		metrics.EditCounter.WithLabelValues(OutcomeSkipped.String()).Inc()
		return Result{Outcome: OutcomeSkipped, Err: err}
	}
	return a.Apply(ctx, status, account, doc)
}

// ApplyByURI loads the status identified by uri and its author, then applies
// raw. Unparsable documents, other types and unknown statuses are skipped
// before anything is loaded or locked where possible; a failed author lookup
// is a persistence fault.
func (a *Applier) ApplyByURI(ctx context.Context, uri string, raw []byte) Result {
	doc, err := content.ParseDocument(raw)
	if err != nil {
		metrics.EditCounter.WithLabelValues(OutcomeSkipped.String()).Inc()
		return Result{Outcome: OutcomeSkipped, Err: err}
	}
	if !doc.HasType(a.types...) {
		metrics.EditCounter.WithLabelValues(OutcomeSkipped.String()).Inc()
		return Result{Outcome: OutcomeSkipped}
	}
	status, err := a.store.Status(ctx, uri)
	if errors.Is(err, adapter.ErrNotFound) {
		metrics.EditCounter.WithLabelValues(OutcomeSkipped.String()).Inc()
		return Result{Outcome: OutcomeSkipped, Err: err}
	}
	if err != nil {
		metrics.EditCounter.WithLabelValues(OutcomePersistenceFault.String()).Inc()
		return Result{Outcome: OutcomePersistenceFault, Err: &PersistenceError{URI: uri, Err: err}}
	}
	account, err := a.accounts.Account(ctx, status.AccountID)
	if err != nil {
		metrics.EditCounter.WithLabelValues(OutcomePersistenceFault.String()).Inc()
		return Result{Outcome: OutcomePersistenceFault, Err: &PersistenceError{URI: uri, Err: fmt.Errorf("load account %d: %w", status.AccountID, err)}}
	}
	return a.Apply(ctx, &status, account, doc)
}

func typesOf(doc *content.Document) []string {
	if doc == nil {
		return nil
	}
	return doc.Type
}
