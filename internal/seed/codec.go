package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/domain/model"
)

// Decode reads a dataset from r and validates every event. Event ids must be
// unique across both lists.
func Decode(r io.Reader) (Dataset, error) {
	var ds Dataset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks every event and id uniqueness.
func (ds Dataset) Validate() error {
	seen := make(map[string]struct{}, len(ds.PastEvents)+len(ds.PlannedEvents))
	for _, list := range []struct {
		name   string
		events []model.RawEvent
	}{
		{"past_events", ds.PastEvents},
		{"planned_events", ds.PlannedEvents},
	} {
		for i, ev := range list.events {
			if err := ev.Validate(); err != nil {
				return fmt.Errorf("%w: %s[%d]: %w", ErrInvalid, list.name, i, err)
			}
			if _, dup := seen[ev.ID]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateID, ev.ID)
			}
			seen[ev.ID] = struct{}{}
		}
	}
	return nil
}

// Encode writes ds to w as indented JSON.
func Encode(w io.Writer, ds Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}

// Save writes both lists of ds to dst.
func Save(ctx context.Context, dst repository.EventWriter, ds Dataset) error {
	if err := dst.SavePastEvents(ctx, ds.PastEvents); err != nil {
		return fmt.Errorf("save past events: %w", err)
	}
	if err := dst.SavePlannedEvents(ctx, ds.PlannedEvents); err != nil {
		return fmt.Errorf("save planned events: %w", err)
	}
	return nil
}
