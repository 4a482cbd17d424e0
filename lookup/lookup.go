package lookup

import (
	"context"
	"time"

	"github.com/azure/cidr-lookup/azure"
	"github.com/azure/cidr-lookup/csv"
	"github.com/azure/cidr-lookup/query"
	"github.com/azure/cidr-lookup/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultQueryTimeout bounds one subscription's query so an unresponsive
// backend surfaces as that subscription's error instead of stalling the batch.
const DefaultQueryTimeout = 60 * time.Second

// ProgressSink receives lookup progress. Init is called once with the resolved
// subscription list before any query is issued; Status is called as each
// subscription's query settles, in resolved-list order.
type ProgressSink interface {
	Init(subscriptions []types.SubscriptionInfo)
	Status(subscriptionID string, status types.SubscriptionStatus, count int, message string)
}

type ILookupClient interface {
	Run(ctx context.Context, filters []string, requestedIDs []string, sink ProgressSink) (*types.LookupResult, error)
}

type LookupClient struct {
	Graph        azure.IGraphClient
	Resolver     azure.IResolver
	QueryTimeout time.Duration
	Logger       *logrus.Logger
}

func NewLookupClient(graph azure.IGraphClient, resolver azure.IResolver, queryTimeout time.Duration, logger *logrus.Logger) *LookupClient {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &LookupClient{
		Graph:        graph,
		Resolver:     resolver,
		QueryTimeout: queryTimeout,
		Logger:       logger,
	}
}

// Run resolves the requested subscription subset and queries each resolved
// subscription sequentially, accumulating rows from the successful ones. A
// failing subscription is reported through the sink and never aborts its
// siblings; only subscription resolution itself can fail the whole lookup.
func (client *LookupClient) Run(ctx context.Context, filters []string, requestedIDs []string, sink ProgressSink) (*types.LookupResult, error) {
	filters = query.Normalize(filters)

	subscriptions, err := client.Resolver.Resolve(ctx, client.Graph, requestedIDs)
	if err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return nil, errors.New("no subscriptions resolved")
	}

	sink.Init(subscriptions)

	queryText := query.Build(filters)
	client.Logger.Debugf("Running lookup across %d subscriptions", len(subscriptions))

	rows := []types.GraphRow{}
	for _, subscription := range subscriptions {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "lookup cancelled")
		}

		sink.Status(subscription.ID, types.SubscriptionStatusRunning, 0, "")

		matches, err := client.querySubscription(ctx, queryText, subscription.ID)
		if err != nil {
			client.Logger.Warnf("Query failed for subscription %s: %v", subscription.ID, err)
			sink.Status(subscription.ID, types.SubscriptionStatusError, 0, err.Error())
			continue
		}

		client.Logger.Infof("Subscription %s matched %d prefixes", subscription.ID, len(matches))
		rows = append(rows, matches...)
		sink.Status(subscription.ID, types.SubscriptionStatusDone, len(matches), "")
	}

	return &types.LookupResult{
		Cidrs:   filters,
		Rows:    rows,
		Columns: csv.DeriveColumns(rows),
	}, nil
}

func (client *LookupClient) querySubscription(ctx context.Context, queryText string, subscriptionID string) ([]types.GraphRow, error) {
	queryCtx, cancel := context.WithTimeout(ctx, client.QueryTimeout)
	defer cancel()
	return client.Graph.Query(queryCtx, queryText, subscriptionID)
}
