package service

import (
	"errors"
	"fmt"
)

// Классы ошибок; конкретные ошибки оборачивают их, так что errors.Is работает по классу.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrLotNotFound       = fmt.Errorf("lot %w", ErrNotFound)
	ErrWarehouseNotFound = fmt.Errorf("warehouse %w", ErrNotFound)
	ErrPickListNotFound  = fmt.Errorf("pick list %w", ErrNotFound)
	ErrPackListNotFound  = fmt.Errorf("pack list %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("pick list item %w", ErrNotFound)
	ErrPackageNotFound   = fmt.Errorf("package %w", ErrNotFound)

	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: unknown status", ErrValidation)
	ErrInvalidPickType = fmt.Errorf("%w: unknown pick type", ErrValidation)
	ErrLotNumberExists = fmt.Errorf("%w: lot number already exists for product", ErrValidation)
	ErrSKUExists       = fmt.Errorf("%w: sku already exists", ErrValidation)
	ErrLotNotAllocated = fmt.Errorf("%w: lot is not allocated to the item", ErrValidation)

	ErrNoPickableItems  = errors.New("no pickable items")
	ErrNoPackableItems  = fmt.Errorf("%w: pick list has no picked items", ErrInvalidState)
	ErrPendingItems     = fmt.Errorf("%w: pick list has pending items", ErrInvalidState)
	ErrMissingTracking  = fmt.Errorf("%w: every package needs a tracking number", ErrInvalidState)
	ErrPackListExists   = fmt.Errorf("%w: pack list already exists for pick list", ErrInvalidState)
	ErrNotAssignee      = fmt.Errorf("%w: caller is not the assignee", ErrForbidden)
	ErrPickListNotReady = fmt.Errorf("%w: pick list is not completed", ErrInvalidState)
)

func invalidState(entity string, status any, op string) error {
	return fmt.Errorf("%w: cannot %s %s in status %v", ErrInvalidState, op, entity, status)
}
