// Package lines validates the item lines shared by deliveries and delivery
// templates.
package lines

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"encantar/internal/item/models"
	dErrors "encantar/pkg/domain-errors"
)

// Line is a quantity of one item.
type Line struct {
	ItemID   uuid.UUID `db:"item_id" json:"item_id"`
	Quantity int       `db:"quantity" json:"quantity"`
}

// View is a line with the item's name and unit resolved. OwnerID is the
// delivery or template the line belongs to.
type View struct {
	OwnerID  uuid.UUID   `db:"owner_id" json:"-"`
	ItemID   uuid.UUID   `db:"item_id" json:"item_id"`
	Name     string      `db:"name" json:"name"`
	Unit     models.Unit `db:"unit" json:"unit"`
	Quantity int         `db:"quantity" json:"quantity"`
}

// ItemFinder loads the items among ids that exist.
type ItemFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
}

// Check validates the shape of ls: at least one line, positive quantities and
// no repeated item.
func Check(ls []Line) error {
	if len(ls) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(ls))
	for _, l := range ls {
		if l.ItemID == uuid.Nil {
			return dErrors.New(dErrors.CodeValidation, "item_id is required")
		}
		if l.Quantity < 1 {
			return dErrors.New(dErrors.CodeValidation, "quantity must be at least 1")
		}
		if _, dup := seen[l.ItemID]; dup {
			return dErrors.New(dErrors.CodeValidation, "each item may appear only once")
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}

// Resolve checks that every line points at an existing, active item.
func Resolve(ctx context.Context, finder ItemFinder, ls []Line) error {
	ids := IDs(ls)
	found, err := finder.FindByIDs(ctx, ids)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load items")
	}
	byID := make(map[uuid.UUID]models.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	var missing, inactive []string
	for _, id := range ids {
		it, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id.String())
		case !it.Active:
			inactive = append(inactive, it.Name)
		}
	}
	if len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeBadRequest, "items not found: %s", strings.Join(missing, ", "))
	}
	if len(inactive) > 0 {
		return dErrors.Newf(dErrors.CodeBadRequest, "inactive items cannot be delivered: %s", strings.Join(inactive, ", "))
	}
	return nil
}

// Validate runs Check and then Resolve.
func Validate(ctx context.Context, finder ItemFinder, ls []Line) error {
	if err := Check(ls); err != nil {
		return err
	}
	return Resolve(ctx, finder, ls)
}

func IDs(ls []Line) []uuid.UUID {
	out := make([]uuid.UUID, len(ls))
	for i, l := range ls {
		out[i] = l.ItemID
	}
	return out
}

// Group attaches views to their owners in input order. Owners without lines
// get an empty slice.
func Group(views []View, owners []uuid.UUID) map[uuid.UUID][]View {
	out := make(map[uuid.UUID][]View, len(owners))
	for _, id := range owners {
		out[id] = []View{}
	}
	for _, v := range views {
		out[v.OwnerID] = append(out[v.OwnerID], v)
	}
	return out
}
