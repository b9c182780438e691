package schemas

import (
	"context"
	"errors"
	"sort"

	"github.com/danmuck/schemakit/internal/apperr"
	"github.com/danmuck/schemakit/internal/schema"
	"github.com/danmuck/schemakit/internal/store"
	"github.com/danmuck/schemakit/internal/validation"
)

// Update applies patch to the record id owned by userID. Only dynamic records
// can be updated; the rest are immutable snapshots.
func (s *Service) Update(ctx context.Context, userID, id string, patch map[string]any) error {
	if userID == "" {
		return apperr.Unauthorized("")
	}
	if err := checkID(id); err != nil {
		return err
	}
	if vs := checkPatch(patch); len(vs) > 0 {
		return apperr.Validation("Invalid update", vs)
	}

	stored, err := s.find(ctx, id, userID)
	if err != nil {
		return err
	}
	if dynamic, _ := stored[schema.FieldDynamic].(bool); !dynamic {
		return apperr.Domain("This is not a dynamic schema")
	}

	var set schema.Document
	switch s.policy {
	case PatchMerged:
		set, err = mergedSet(stored, patch)
	default:
		set, err = typedOnlySet(patch)
	}
	if err != nil {
		return err
	}
	set[schema.FieldUpdatedAt] = s.now().UTC()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.store.UpdateOne(sctx, id, userID, set)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(resource, id)
	case err != nil:
		return apperr.Database("Failed to update schema", err)
	}
	return nil
}

// checkPatch rejects empty patches, writes to immutable fields and a
// non-boolean dynamic flag.
func checkPatch(patch map[string]any) validation.Violations {
	if len(patch) == 0 {
		return validation.Violations{{Path: []string{"body"}, Message: "At least one field is required"}}
	}
	var vs validation.Violations
	for _, f := range schema.ImmutableFields {
		if _, ok := patch[f]; ok {
			vs = append(vs, validation.Violation{Path: []string{f}, Message: "Field cannot be modified"})
		}
	}
	if v, ok := patch[schema.FieldDynamic]; ok {
		if _, isBool := v.(bool); !isBool {
			vs = append(vs, validation.Violation{Path: []string{schema.FieldDynamic}, Message: "Expected boolean"})
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Path[0] < vs[j].Path[0] })
	return vs
}

// typedOnlySet passes an untyped patch through and validates a typed one as a
// full record. The validated values replace the patch's own, so defaults and
// trimming apply; keys the record does not know are dropped.
func typedOnlySet(patch map[string]any) (schema.Document, error) {
	if _, typed := patch[schema.FieldType]; !typed {
		return schema.Document(patch).Clone()
	}
	rec, vs := validation.ValidateDocument(patch)
	if len(vs) > 0 {
		return nil, invalid(vs)
	}
	fields, err := rec.Fields()
	if err != nil {
		return nil, err
	}
	set := make(schema.Document, len(patch))
	for k := range patch {
		if v, ok := fields[k]; ok {
			set[k] = v
		}
	}
	clearStalePayloads(set, rec.Type)
	return set, nil
}

// mergedSet validates the stored record with patch applied and returns the
// whole validated record as the update.
func mergedSet(stored schema.Document, patch map[string]any) (schema.Document, error) {
	merged := stored.Merge(patch)
	for _, f := range schema.ImmutableFields {
		delete(merged, f)
	}
	rec, vs := validation.ValidateDocument(merged)
	if len(vs) > 0 {
		return nil, invalid(vs)
	}
	set, err := rec.Fields()
	if err != nil {
		return nil, err
	}
	clearStalePayloads(set, rec.Type)
	return set, nil
}

// clearStalePayloads nulls every payload field other than the one for k so a
// type change does not leave the old variant behind.
func clearStalePayloads(set schema.Document, k schema.Kind) {
	keep := schema.PayloadField(k)
	for _, other := range schema.Kinds {
		if f := schema.PayloadField(other); f != keep {
			set[f] = nil
		}
	}
}
