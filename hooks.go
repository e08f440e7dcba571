package sift

import "context"

// AfterLoad is called after T has been loaded and scanned.
// Return an error to signal a post-load invariant failure.
type AfterLoad interface {
	AfterLoad(ctx context.Context) error
}

// BeforeDelete is called before deleting a record.
// Invoked on a zero-value T (no loaded state). Return an error to abort the operation.
type BeforeDelete interface {
	BeforeDelete(ctx context.Context) error
}

// AfterDelete is called after a record has been successfully deleted.
// Invoked on a zero-value T (no loaded state).
type AfterDelete interface {
	AfterDelete(ctx context.Context) error
}

// callAfterLoad calls AfterLoad on value if T implements the interface.
func callAfterLoad[T any](ctx context.Context, value *T) error {
	if h, ok := any(value).(AfterLoad); ok {
		return h.AfterLoad(ctx)
	}
	return nil
}

// callAfterLoadSlice calls AfterLoad on each element if T implements the interface.
func callAfterLoadSlice[T any](ctx context.Context, values []*T) error {
	for _, v := range values {
		if err := callAfterLoad(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func callBeforeDelete[T any](ctx context.Context) error {
	var zero T
	if h, ok := any(&zero).(BeforeDelete); ok {
		return h.BeforeDelete(ctx)
	}
	return nil
}

func callAfterDelete[T any](ctx context.Context) error {
	var zero T
	if h, ok := any(&zero).(AfterDelete); ok {
		return h.AfterDelete(ctx)
	}
	return nil
}
