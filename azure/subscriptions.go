package azure

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/azure/cidr-lookup/types"

	"github.com/sirupsen/logrus"
)

// subscriptionCatalogQuery lists every subscription the credential can see,
// through the same Resource Graph endpoint the prefix queries use.
const subscriptionCatalogQuery = `resourcecontainers
| where type =~ 'microsoft.resources/subscriptions'
| project id = subscriptionId, name
| order by name asc`

// Catalog memoizes the full subscription list, keyed by credential value.
// Entries are only ever replaced wholesale under the mutex, and the mutex is
// held across the fetch so concurrent resolutions share one request.
type Catalog struct {
	mu            sync.Mutex
	credentialKey string
	entries       []types.SubscriptionInfo
	fetchedAt     time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

type IResolver interface {
	List(ctx context.Context, graph IGraphClient) ([]types.SubscriptionInfo, error)
	Resolve(ctx context.Context, graph IGraphClient, requestedIDs []string) ([]types.SubscriptionInfo, error)
}

type Resolver struct {
	Catalog *Catalog
	Logger  *logrus.Logger
}

func NewResolver(catalog *Catalog, logger *logrus.Logger) *Resolver {
	return &Resolver{
		Catalog: catalog,
		Logger:  logger,
	}
}

// List returns the full subscription catalog for the client's credential,
// fetching it at most once per credential value.
func (resolver *Resolver) List(ctx context.Context, graph IGraphClient) ([]types.SubscriptionInfo, error) {
	catalog := resolver.Catalog
	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	if catalog.entries != nil && catalog.credentialKey == graph.CredentialKey() {
		resolver.Logger.Debugf("Using cached subscription catalog (%d entries)", len(catalog.entries))
		return catalog.entries, nil
	}

	rows, err := graph.Query(ctx, subscriptionCatalogQuery, "")
	if err != nil {
		return nil, &types.CatalogError{Err: err}
	}

	entries := []types.SubscriptionInfo{}
	for _, row := range rows {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		name, _ := row["name"].(string)
		entries = append(entries, types.SubscriptionInfo{ID: id, Name: name})
	}

	if len(entries) == 0 {
		return nil, &types.CatalogError{Err: types.ErrEmptyCatalog}
	}

	catalog.credentialKey = graph.CredentialKey()
	catalog.entries = entries
	catalog.fetchedAt = time.Now()
	resolver.Logger.Infof("Fetched %d subscriptions", len(entries))

	return entries, nil
}

// Resolve expands the caller's requested subscription ids against the catalog.
// An empty request resolves to the full catalog. Requested ids are matched
// case-insensitively and deduplicated, first occurrence wins; an id missing
// from the catalog still resolves to a bare id-only entry so the query attempt
// against it can surface a per-subscription error instead of vanishing.
func (resolver *Resolver) Resolve(ctx context.Context, graph IGraphClient, requestedIDs []string) ([]types.SubscriptionInfo, error) {
	catalog, err := resolver.List(ctx, graph)
	if err != nil {
		return nil, err
	}

	if len(requestedIDs) == 0 {
		return catalog, nil
	}

	byID := map[string]types.SubscriptionInfo{}
	for _, entry := range catalog {
		byID[strings.ToLower(entry.ID)] = entry
	}

	seen := map[string]bool{}
	resolved := []types.SubscriptionInfo{}
	for _, requested := range requestedIDs {
		requested = strings.TrimSpace(requested)
		if requested == "" {
			continue
		}
		key := strings.ToLower(requested)
		if seen[key] {
			continue
		}
		seen[key] = true

		if entry, exists := byID[key]; exists {
			resolved = append(resolved, entry)
			continue
		}
		resolver.Logger.Warnf("Requested subscription %s is not visible to the credential", requested)
		resolved = append(resolved, types.SubscriptionInfo{ID: requested})
	}

	return resolved, nil
}
