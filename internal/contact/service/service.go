// Package service implements identity resolution: matching an observed
// (email, phoneNumber) pair against known contacts, linking it into an
// identity group, and merging groups that a new observation bridges.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"contactgraph/internal/audit"
	"contactgraph/internal/contact"
	"contactgraph/internal/contact/metrics"
	"contactgraph/internal/contact/store"
	dErrors "contactgraph/pkg/domain-errors"
	"contactgraph/pkg/requestcontext"
)

// ViewCache caches consolidated views per submitted pair. Implementations may
// serve slightly stale views, bounded by their TTL; deletes invalidate every
// pair of the affected group so a removed contact is never served from cache.
type ViewCache interface {
	Get(ctx context.Context, email, phoneNumber string) (*contact.ConsolidatedContact, bool)
	Set(ctx context.Context, email, phoneNumber string, view *contact.ConsolidatedContact)
	Invalidate(ctx context.Context, email, phoneNumber string)
}

// Service orchestrates contact resolution over the store. All mutations run
// inside the TxRunner boundary so concurrent resolves of the same pair cannot
// create competing primaries.
type Service struct {
	store   store.Store
	txr     store.TxRunner
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   ViewCache
	audit   *audit.Publisher
	tracer  trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Service)

// WithViewCache enables the consolidated-view cache.
func WithViewCache(c ViewCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithAuditPublisher enables audit event emission.
func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// New constructs the resolver service.
func New(st store.Store, txr store.TxRunner, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   st,
		txr:     txr,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("contactgraph/internal/contact/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// identifyOutcome carries the transaction's results out of the closure so
// metrics and audit events are only recorded after a successful commit.
type identifyOutcome struct {
	view    *contact.ConsolidatedContact
	events  []audit.Event
	created bool
	linked  bool
	merges  int
}

// Identify resolves an observed pair to its identity group, creating or
// extending contacts as needed, and returns the consolidated view.
func (s *Service) Identify(ctx context.Context, email, phoneNumber string) (*contact.ConsolidatedContact, error) {
	if email == "" && phoneNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email or phoneNumber is required")
	}

	ctx, span := s.tracer.Start(ctx, "contact.identify")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.ObserveIdentifyDuration(time.Since(start).Seconds())
	}()

	if s.cache != nil {
		if view, ok := s.cache.Get(ctx, email, phoneNumber); ok {
			s.metrics.IncViewCacheHit()
			return view, nil
		}
		s.metrics.IncViewCacheMiss()
	}

	var out identifyOutcome
	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.resolve(ctx, email, phoneNumber)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		for _, event := range out.events {
			s.audit.Emit(ctx, event)
		}
	}
	if out.created {
		s.metrics.IncContactsCreated()
	}
	if out.linked {
		s.metrics.IncSecondariesLinked()
	}
	for i := 0; i < out.merges; i++ {
		s.metrics.IncPrimariesMerged()
	}
	if out.merges > 0 {
		s.logger.InfoContext(ctx, "identity groups merged",
			"request_id", requestcontext.RequestID(ctx),
			"primary_contact_id", out.view.PrimaryContactID,
			"demoted", out.merges,
		)
	}

	if s.cache != nil {
		s.cache.Set(ctx, email, phoneNumber, out.view)
	}
	return out.view, nil
}

// resolve runs the match-decide-write sequence. It must be called inside the
// transaction boundary.
func (s *Service) resolve(ctx context.Context, email, phoneNumber string) (identifyOutcome, error) {
	var out identifyOutcome
	now := requestcontext.Now(ctx).UTC()

	matched, err := s.store.FindByEmailOrPhone(ctx, email, phoneNumber)
	if err != nil {
		return out, dErrors.Wrap(err, dErrors.CodeInternal, "match contacts")
	}

	if len(matched) == 0 {
		c := &contact.Contact{
			Email:          optional(email),
			PhoneNumber:    optional(phoneNumber),
			LinkPrecedence: contact.LinkPrecedencePrimary,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.store.Create(ctx, c); err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeInternal, "create primary contact")
		}
		out.created = true
		out.events = append(out.events, audit.Event{
			Action:      audit.ActionContactCreated,
			ContactID:   c.ID,
			Email:       email,
			PhoneNumber: phoneNumber,
		})
		out.view, err = s.buildView(ctx, c.ID)
		return out, err
	}

	survivor, mergeEvents, merges, err := s.consolidate(ctx, matched, now)
	if err != nil {
		return out, err
	}
	out.events = append(out.events, mergeEvents...)
	out.merges = merges

	group, err := s.store.FindGroup(ctx, survivor.ID)
	if err != nil {
		return out, dErrors.Wrap(err, dErrors.CodeInternal, "load identity group")
	}

	// A pair already fully known to the group inserts nothing; resubmission
	// is a read.
	if hasNewInformation(group, email, phoneNumber) {
		secondary := &contact.Contact{
			Email:          optional(email),
			PhoneNumber:    optional(phoneNumber),
			LinkedID:       &survivor.ID,
			LinkPrecedence: contact.LinkPrecedenceSecondary,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.store.Create(ctx, secondary); err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeInternal, "create secondary contact")
		}
		out.linked = true
		out.events = append(out.events, audit.Event{
			Action:      audit.ActionContactLinked,
			ContactID:   secondary.ID,
			LinkedToID:  survivor.ID,
			Email:       email,
			PhoneNumber: phoneNumber,
		})
	}

	out.view, err = s.buildView(ctx, survivor.ID)
	return out, err
}

// consolidate resolves the matched contacts to their primaries and merges the
// groups: the oldest primary survives, the rest are demoted under it and
// their secondaries re-pointed. Returns the surviving primary.
func (s *Service) consolidate(ctx context.Context, matched []contact.Contact, now time.Time) (*contact.Contact, []audit.Event, int, error) {
	roots := make(map[int64]struct{})
	for _, m := range matched {
		switch {
		case m.IsPrimary():
			roots[m.ID] = struct{}{}
		case m.LinkedID != nil:
			roots[*m.LinkedID] = struct{}{}
		default:
			// Degenerate row: marked secondary but linked to nothing.
			roots[m.ID] = struct{}{}
		}
	}

	primaries := make([]contact.Contact, 0, len(roots))
	for id := range roots {
		p, err := s.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Orphaned link; the group it named is gone.
				continue
			}
			return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load primary contact")
		}
		primaries = append(primaries, *p)
	}
	if len(primaries) == 0 {
		// Every matched contact pointed at a missing primary; the oldest
		// match roots the group.
		primaries = append(primaries, matched[0])
	}

	sort.Slice(primaries, func(i, j int) bool {
		if primaries[i].CreatedAt.Equal(primaries[j].CreatedAt) {
			return primaries[i].ID < primaries[j].ID
		}
		return primaries[i].CreatedAt.Before(primaries[j].CreatedAt)
	})
	survivor := primaries[0]

	var events []audit.Event
	merges := 0
	for _, p := range primaries[1:] {
		if err := s.store.UpdateLink(ctx, p.ID, contact.LinkPrecedenceSecondary, &survivor.ID, now); err != nil {
			return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "demote primary contact")
		}
		secondaries, err := s.store.FindByLinkedID(ctx, p.ID)
		if err != nil {
			return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load demoted group")
		}
		for _, sec := range secondaries {
			if err := s.store.UpdateLink(ctx, sec.ID, contact.LinkPrecedenceSecondary, &survivor.ID, now); err != nil {
				return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "relink secondary contact")
			}
		}
		merges++
		events = append(events, audit.Event{
			Action:     audit.ActionPrimaryDemoted,
			ContactID:  p.ID,
			LinkedToID: survivor.ID,
		})
	}

	if !survivor.IsPrimary() {
		if err := s.store.UpdateLink(ctx, survivor.ID, contact.LinkPrecedencePrimary, nil, now); err != nil {
			return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "promote group root")
		}
		survivor.LinkPrecedence = contact.LinkPrecedencePrimary
		survivor.LinkedID = nil
	}

	return &survivor, events, merges, nil
}

// hasNewInformation reports whether the pair carries an email or phone the
// group has not seen.
func hasNewInformation(group []contact.Contact, email, phoneNumber string) bool {
	knownEmails := make(map[string]struct{}, len(group))
	knownPhones := make(map[string]struct{}, len(group))
	for _, c := range group {
		if v := c.EmailValue(); v != "" {
			knownEmails[v] = struct{}{}
		}
		if v := c.PhoneValue(); v != "" {
			knownPhones[v] = struct{}{}
		}
	}

	if email != "" {
		if _, ok := knownEmails[email]; !ok {
			return true
		}
	}
	if phoneNumber != "" {
		if _, ok := knownPhones[phoneNumber]; !ok {
			return true
		}
	}
	return false
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
