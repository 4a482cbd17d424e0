package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/azure/cidr-lookup/azure"
	"github.com/azure/cidr-lookup/types"
	"github.com/sirupsen/logrus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGraphClient struct {
	RowsBySubscription map[string][]types.GraphRow
	ErrsBySubscription map[string]error
	QueriedIDs         []string
}

func (m *mockGraphClient) Query(_ context.Context, _ string, subscriptionID string) ([]types.GraphRow, error) {
	m.QueriedIDs = append(m.QueriedIDs, subscriptionID)
	if err := m.ErrsBySubscription[subscriptionID]; err != nil {
		return nil, err
	}
	return m.RowsBySubscription[subscriptionID], nil
}

func (m *mockGraphClient) CredentialKey() string {
	return "token"
}

type mockResolver struct {
	Subscriptions []types.SubscriptionInfo
	Err           error
	RequestedIDs  []string
}

func (m *mockResolver) List(_ context.Context, _ azure.IGraphClient) ([]types.SubscriptionInfo, error) {
	return m.Subscriptions, m.Err
}

func (m *mockResolver) Resolve(_ context.Context, _ azure.IGraphClient, requestedIDs []string) ([]types.SubscriptionInfo, error) {
	m.RequestedIDs = requestedIDs
	return m.Subscriptions, m.Err
}

type sinkEvent struct {
	ID      string
	Status  types.SubscriptionStatus
	Count   int
	Message string
}

type recordingSink struct {
	InitSubscriptions []types.SubscriptionInfo
	Events            []sinkEvent
}

func (s *recordingSink) Init(subscriptions []types.SubscriptionInfo) {
	s.InitSubscriptions = subscriptions
}

func (s *recordingSink) Status(subscriptionID string, status types.SubscriptionStatus, count int, message string) {
	s.Events = append(s.Events, sinkEvent{ID: subscriptionID, Status: status, Count: count, Message: message})
}

func TestRunIsolatesSubscriptionFailure(t *testing.T) {
	graph := &mockGraphClient{
		RowsBySubscription: map[string][]types.GraphRow{
			"sub-a": {
				{"name": "vnet-1", "prefixStr": "10.0.0.0/24"},
				{"name": "vnet-2", "prefixStr": "10.1.0.0/24"},
				{"name": "vnet-3", "prefixStr": "10.2.0.0/24"},
			},
		},
		ErrsBySubscription: map[string]error{
			"sub-b": errors.New("connection refused"),
		},
	}
	resolver := &mockResolver{
		Subscriptions: []types.SubscriptionInfo{
			{ID: "sub-a", Name: "Prod"},
			{ID: "sub-b", Name: "Dev"},
		},
	}
	sink := &recordingSink{}
	client := NewLookupClient(graph, resolver, 0, logrus.New())

	result, err := client.Run(context.Background(), []string{"10.0.0.0/24"}, nil, sink)

	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, resolver.Subscriptions, sink.InitSubscriptions)
	assert.Equal(t, []sinkEvent{
		{ID: "sub-a", Status: types.SubscriptionStatusRunning},
		{ID: "sub-a", Status: types.SubscriptionStatusDone, Count: 3},
		{ID: "sub-b", Status: types.SubscriptionStatusRunning},
		{ID: "sub-b", Status: types.SubscriptionStatusError, Message: "connection refused"},
	}, sink.Events)
}

func TestRunResolutionFailureAbortsLookup(t *testing.T) {
	resolver := &mockResolver{Err: &types.CatalogError{Err: types.ErrEmptyCatalog}}
	sink := &recordingSink{}
	client := NewLookupClient(&mockGraphClient{}, resolver, 0, logrus.New())

	_, err := client.Run(context.Background(), nil, nil, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmptyCatalog)
	assert.Nil(t, sink.InitSubscriptions)
	assert.Empty(t, sink.Events)
}

func TestRunEmptyResolvedSetAbortsLookup(t *testing.T) {
	resolver := &mockResolver{Subscriptions: []types.SubscriptionInfo{}}
	client := NewLookupClient(&mockGraphClient{}, resolver, 0, logrus.New())

	_, err := client.Run(context.Background(), nil, nil, &recordingSink{})

	assert.Error(t, err)
}

func TestRunQueriesSubscriptionsInResolvedOrder(t *testing.T) {
	graph := &mockGraphClient{}
	resolver := &mockResolver{
		Subscriptions: []types.SubscriptionInfo{
			{ID: "sub-c"}, {ID: "sub-a"}, {ID: "sub-b"},
		},
	}
	client := NewLookupClient(graph, resolver, 0, logrus.New())

	_, err := client.Run(context.Background(), nil, nil, &recordingSink{})

	require.NoError(t, err)
	assert.Equal(t, []string{"sub-c", "sub-a", "sub-b"}, graph.QueriedIDs)
}

func TestRunNormalizesFilters(t *testing.T) {
	resolver := &mockResolver{Subscriptions: []types.SubscriptionInfo{{ID: "sub-a"}}}
	client := NewLookupClient(&mockGraphClient{}, resolver, 0, logrus.New())

	result, err := client.Run(context.Background(), []string{" 10.0.0.0/24", "10.0.0.0/24", "FD00::/8"}, nil, &recordingSink{})

	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24", "fd00::/8"}, result.Cidrs)
}

func TestRunDerivesColumnsFromAggregatedRows(t *testing.T) {
	graph := &mockGraphClient{
		RowsBySubscription: map[string][]types.GraphRow{
			"sub-a": {{"name": "vnet-1"}},
			"sub-b": {{"location": "westeurope"}},
		},
	}
	resolver := &mockResolver{
		Subscriptions: []types.SubscriptionInfo{{ID: "sub-a"}, {ID: "sub-b"}},
	}
	client := NewLookupClient(graph, resolver, 0, logrus.New())

	result, err := client.Run(context.Background(), nil, nil, &recordingSink{})

	require.NoError(t, err)
	assert.Equal(t, []string{"location", "name"}, result.Columns)
}

func TestRunCancelledContext(t *testing.T) {
	resolver := &mockResolver{Subscriptions: []types.SubscriptionInfo{{ID: "sub-a"}}}
	client := NewLookupClient(&mockGraphClient{}, resolver, 0, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Run(ctx, nil, nil, &recordingSink{})

	assert.ErrorIs(t, err, context.Canceled)
}
