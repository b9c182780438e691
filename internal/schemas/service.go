// Package schemas implements the saved-schema operations independent of HTTP:
// create, fetch, render, update and preview. Every error it returns is an
// *apperr.Error.
package schemas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/schemakit/internal/apperr"
	"github.com/danmuck/schemakit/internal/jsonld"
	"github.com/danmuck/schemakit/internal/schema"
	"github.com/danmuck/schemakit/internal/store"
	"github.com/danmuck/schemakit/internal/validation"
)

// PatchPolicy selects how partial updates are validated.
type PatchPolicy string

const (
	// PatchTypedOnly validates a patch as a full record only when it names a type.
	PatchTypedOnly PatchPolicy = "typed-only"
	// PatchMerged validates the stored record with the patch applied.
	PatchMerged PatchPolicy = "merged"
)

// ParsePatchPolicy maps a config value to a policy. Empty means typed-only.
func ParsePatchPolicy(s string) (PatchPolicy, error) {
	switch PatchPolicy(s) {
	case "", PatchTypedOnly:
		return PatchTypedOnly, nil
	case PatchMerged:
		return PatchMerged, nil
	default:
		return "", fmt.Errorf("schemas: unknown patch policy %q", s)
	}
}

const (
	resource      = "Schema"
	maxIDAttempts = 3
)

type Service struct {
	store   store.Store
	policy  PatchPolicy
	timeout time.Duration
	now     func() time.Time
	newID   func() (string, error)
	log     zerolog.Logger
}

type Option func(*Service)

func WithPatchPolicy(p PatchPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newID = gen }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		policy: PatchTypedOnly,
		now:    time.Now,
		newID:  store.NewID,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy reports the active patch policy.
func (s *Service) Policy() PatchPolicy { return s.policy }

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Create validates payload and persists it as a new record owned by userID.
func (s *Service) Create(ctx context.Context, userID string, payload map[string]any) (schema.Record, error) {
	if userID == "" {
		return schema.Record{}, apperr.Unauthorized("")
	}
	rec, vs := validation.ValidateDocument(payload)
	if len(vs) > 0 {
		return schema.Record{}, invalid(vs)
	}
	rec.UserID = userID
	rec.CreatedAt = s.now().UTC()
	rec.UpdatedAt = nil

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return schema.Record{}, fmt.Errorf("schemas: %w", err)
		}
		rec.ID = id
		doc, err := rec.Document()
		if err != nil {
			return schema.Record{}, err
		}
		err = s.insert(ctx, doc)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrDuplicateID) {
			return schema.Record{}, apperr.Database("Failed to save schema", err)
		}
		s.log.Warn().Str("schema_id", id).Int("attempt", attempt).Msg("schema_id_collision")
	}
	return schema.Record{}, apperr.Conflict("Could not allocate a unique schema ID", store.ErrDuplicateID)
}

func (s *Service) insert(ctx context.Context, doc schema.Document) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Insert(ctx, doc)
}

// Get returns the stored document id owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (schema.Document, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("")
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.find(ctx, id, userID)
}

func (s *Service) find(ctx context.Context, id, userID string) (schema.Document, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	doc, err := s.store.FindOne(ctx, id, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(resource, id)
	case err != nil:
		return nil, apperr.Database("Failed to fetch schema", err)
	}
	return doc, nil
}

// Render returns the script fragment for a dynamic record. Lookup is by id
// alone.
func (s *Service) Render(ctx context.Context, id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	doc, err := s.find(ctx, id, "")
	if err != nil {
		return "", err
	}
	rec, err := schema.Decode(doc)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.KindDomain, Message: "Stored schema is malformed", Err: err}
	}
	if !rec.Dynamic {
		return "", apperr.Domain("This is not a dynamic schema")
	}
	return fragment(rec)
}

// Preview builds the JSON-LD document and fragment for payload without saving it.
func (s *Service) Preview(_ context.Context, payload map[string]any) (any, string, error) {
	rec, vs := validation.ValidateDocument(payload)
	if len(vs) > 0 {
		return nil, "", invalid(vs)
	}
	return build(rec)
}

func fragment(rec schema.Record) (string, error) {
	_, out, err := build(rec)
	return out, err
}

func build(rec schema.Record) (any, string, error) {
	doc, err := jsonld.BuildDocument(rec)
	if err != nil {
		return nil, "", &apperr.Error{Kind: apperr.KindDomain, Message: "Failed to generate schema", Err: err}
	}
	out, err := jsonld.Serialize(doc)
	if err != nil {
		return nil, "", fmt.Errorf("schemas: %w", err)
	}
	return doc, out, nil
}

func checkID(id string) error {
	if err := validation.ValidateIdentifier(id); err != nil {
		return apperr.Validation(err.Error(), validation.Violations{
			{Path: []string{"id"}, Message: err.Error()},
		})
	}
	return nil
}

func invalid(vs validation.Violations) *apperr.Error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "Invalid schema data",
		Details: vs,
		Err:     vs,
	}
}
