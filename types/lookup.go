package types

// SubscriptionInfo is one entry of the subscription catalog visible to the
// configured credential. Name is empty for subscriptions the caller requested
// by id but the catalog does not contain.
type SubscriptionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// GraphRow is one row returned by a Resource Graph query. Rows are schema-less;
// rows from different resource types may carry different key sets.
type GraphRow = map[string]any

// LookupResult is the aggregated outcome of one lookup across all successfully
// queried subscriptions.
type LookupResult struct {
	Cidrs   []string   `json:"cidrs"`
	Rows    []GraphRow `json:"results"`
	Columns []string   `json:"columns"`
}

type SubscriptionStatus string

const (
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusRunning SubscriptionStatus = "running"
	SubscriptionStatusDone    SubscriptionStatus = "done"
	SubscriptionStatusError   SubscriptionStatus = "error"
)

// SubscriptionProgress is the transient per-subscription state of an in-flight
// lookup, superseded wholesale when the next lookup starts.
type SubscriptionProgress struct {
	ID           string             `json:"id"`
	Name         string             `json:"name,omitempty"`
	Status       SubscriptionStatus `json:"status"`
	MatchCount   int                `json:"matchCount,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
}
