package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMissingCredential is returned when no Resource Graph token is
	// configured and no ambient Azure credential is available.
	ErrMissingCredential = errors.New("no Resource Graph credential configured")

	// ErrEmptyCatalog is returned when the catalog fetch succeeds but lists no
	// subscriptions. An authorized credential always sees at least one
	// subscription, so an empty catalog is a configuration error.
	ErrEmptyCatalog = errors.New("credential has no visible subscriptions")

	// ErrNoLookupResult is returned when an export is requested before any
	// lookup has completed.
	ErrNoLookupResult = errors.New("no results to export, run a search first")
)

// CatalogError wraps a failed subscription catalog fetch. It aborts the whole
// lookup before any per-subscription query is attempted.
type CatalogError struct {
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("listing subscriptions: %v", e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }
