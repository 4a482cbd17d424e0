package panel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/azure/cidr-lookup/azure"
	"github.com/azure/cidr-lookup/csv"
	"github.com/azure/cidr-lookup/lookup"
	"github.com/azure/cidr-lookup/query"
	"github.com/azure/cidr-lookup/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Poster delivers one outbound message to the webview. Implementations must be
// safe for concurrent use; the dispatcher posts from lookup goroutines.
type Poster interface {
	Post(message any) error
}

// TokenSource reads the configured Resource Graph token. It is called at the
// start of every lookup and catalog fetch so token changes take effect without
// a restart.
type TokenSource func() string

// Dispatcher handles the webview message protocol. It keeps the most recent
// completed lookup result for export and cancels the in-flight lookup when a
// new one starts.
type Dispatcher struct {
	Poster       Poster
	Token        TokenSource
	Resolver     azure.IResolver
	Exporter     csv.IExportClient
	QueryTimeout time.Duration
	Logger       *logrus.Logger

	// GraphFactory builds the per-operation Resource Graph client.
	GraphFactory func(token string, logger *logrus.Logger) (azure.IGraphClient, error)

	mu           sync.Mutex
	lastResult   *types.LookupResult
	cancelLookup context.CancelFunc
	generation   int
}

func NewDispatcher(poster Poster, token TokenSource, resolver azure.IResolver, exporter csv.IExportClient, queryTimeout time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Poster:       poster,
		Token:        token,
		Resolver:     resolver,
		Exporter:     exporter,
		QueryTimeout: queryTimeout,
		Logger:       logger,
		GraphFactory: func(token string, logger *logrus.Logger) (azure.IGraphClient, error) {
			return azure.NewGraphClient(token, logger)
		},
	}
}

// Handle processes one inbound webview message. Failures are reported back
// through the poster, never raised.
func (dispatcher *Dispatcher) Handle(ctx context.Context, data []byte) {
	var message InboundMessage
	if err := json.Unmarshal(data, &message); err != nil {
		dispatcher.Logger.Warnf("Discarding malformed message: %v", err)
		dispatcher.showError(errors.Wrap(err, "malformed message"))
		return
	}

	switch message.Command {
	case CommandRequestSubscriptions:
		dispatcher.handleRequestSubscriptions(ctx)
	case CommandLookupCidr:
		dispatcher.handleLookup(ctx, message)
	case CommandExportCsv:
		dispatcher.handleExport()
	default:
		dispatcher.Logger.Warnf("Unknown command: %s", message.Command)
	}
}

func (dispatcher *Dispatcher) handleRequestSubscriptions(ctx context.Context) {
	graph, err := dispatcher.GraphFactory(dispatcher.Token(), dispatcher.Logger)
	if err != nil {
		dispatcher.showError(err)
		return
	}

	subscriptions, err := dispatcher.Resolver.List(ctx, graph)
	if err != nil {
		dispatcher.showError(err)
		return
	}

	dispatcher.post(SubscriptionOptionsMessage{
		Command:       CommandSubscriptionOptions,
		Subscriptions: subscriptions,
	})
}

func (dispatcher *Dispatcher) handleLookup(ctx context.Context, message InboundMessage) {
	lookupCtx, generation := dispatcher.beginGeneration(ctx)

	dispatcher.post(SetLoadingMessage{Command: CommandSetLoading, Value: true})
	defer dispatcher.post(SetLoadingMessage{Command: CommandSetLoading, Value: false})

	graph, err := dispatcher.GraphFactory(dispatcher.Token(), dispatcher.Logger)
	if err != nil {
		dispatcher.showError(err)
		return
	}

	client := lookup.NewLookupClient(graph, dispatcher.Resolver, dispatcher.QueryTimeout, dispatcher.Logger)
	sink := &progressRelay{dispatcher: dispatcher, generation: generation}

	result, err := client.Run(lookupCtx, query.ParseFilters(message.Cidr), message.Subscriptions, sink)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			dispatcher.Logger.Debugf("Lookup generation %d superseded", generation)
			return
		}
		dispatcher.showError(err)
		return
	}

	dispatcher.mu.Lock()
	current := dispatcher.generation == generation
	if current {
		dispatcher.lastResult = result
	}
	dispatcher.mu.Unlock()
	if !current {
		return
	}

	dispatcher.post(DisplayResultsMessage{
		Command: CommandDisplayResults,
		Cidrs:   result.Cidrs,
		Results: result.Rows,
		Columns: result.Columns,
	})
}

func (dispatcher *Dispatcher) handleExport() {
	dispatcher.mu.Lock()
	result := dispatcher.lastResult
	dispatcher.mu.Unlock()

	if result == nil {
		dispatcher.post(NotificationMessage{Command: CommandShowInfo, Message: types.ErrNoLookupResult.Error()})
		return
	}

	filePath, err := dispatcher.Exporter.Export(result)
	if err != nil {
		dispatcher.showError(err)
		return
	}

	dispatcher.post(NotificationMessage{Command: CommandShowInfo, Message: "Results exported to " + filePath})
}

// beginGeneration cancels the in-flight lookup, if any, and opens a new
// lookup generation. Progress from a superseded generation is dropped.
func (dispatcher *Dispatcher) beginGeneration(ctx context.Context) (context.Context, int) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()

	if dispatcher.cancelLookup != nil {
		dispatcher.cancelLookup()
	}
	lookupCtx, cancel := context.WithCancel(ctx)
	dispatcher.cancelLookup = cancel
	dispatcher.generation++
	return lookupCtx, dispatcher.generation
}

func (dispatcher *Dispatcher) post(message any) {
	if err := dispatcher.Poster.Post(message); err != nil {
		dispatcher.Logger.Warnf("Posting message to panel failed: %v", err)
	}
}

func (dispatcher *Dispatcher) showError(err error) {
	dispatcher.post(NotificationMessage{Command: CommandShowError, Message: err.Error()})
}

// progressRelay forwards lookup progress to the webview, filtered to the
// generation it was created for.
type progressRelay struct {
	dispatcher *Dispatcher
	generation int
}

func (relay *progressRelay) current() bool {
	relay.dispatcher.mu.Lock()
	defer relay.dispatcher.mu.Unlock()
	return relay.dispatcher.generation == relay.generation
}

func (relay *progressRelay) Init(subscriptions []types.SubscriptionInfo) {
	if !relay.current() {
		return
	}
	relay.dispatcher.post(InitSubscriptionsMessage{
		Command:       CommandInitSubscriptions,
		Subscriptions: subscriptions,
	})
}

func (relay *progressRelay) Status(subscriptionID string, status types.SubscriptionStatus, count int, message string) {
	if !relay.current() {
		return
	}
	relay.dispatcher.post(SubscriptionStatusMessage{
		Command:        CommandSubscriptionStatus,
		SubscriptionID: subscriptionID,
		Status:         status,
		Count:          count,
		Message:        message,
	})
}
