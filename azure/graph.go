package azure

import (
	"context"
	"strings"
	"time"

	"github.com/azure/cidr-lookup/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

type IGraphClient interface {
	Query(ctx context.Context, query string, subscriptionID string) ([]types.GraphRow, error)
	CredentialKey() string
}

// GraphClient issues Resource Graph queries. It is constructed fresh for every
// lookup so that a changed token takes effect immediately.
type GraphClient struct {
	Client        *armresourcegraph.Client
	Logger        *logrus.Logger
	credentialKey string
}

// staticTokenCredential satisfies azcore.TokenCredential with a fixed bearer
// token supplied through configuration.
type staticTokenCredential struct {
	token string
}

func (credential *staticTokenCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     credential.token,
		ExpiresOn: time.Now().Add(time.Hour),
	}, nil
}

// NewGraphClient builds a client from the configured bearer token. A blank
// token falls back to the ambient Azure credential chain.
func NewGraphClient(token string, logger *logrus.Logger) (*GraphClient, error) {
	var credential azcore.TokenCredential
	credentialKey := "default-credential"

	token = strings.TrimSpace(token)
	if token != "" {
		credential = &staticTokenCredential{token: token}
		credentialKey = token
	} else {
		defaultCredential, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, errors.Wrapf(types.ErrMissingCredential, "creating default credential: %v", err)
		}
		credential = defaultCredential
	}

	client, err := armresourcegraph.NewClient(credential, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating Resource Graph client")
	}

	return &GraphClient{
		Client:        client,
		Logger:        logger,
		credentialKey: credentialKey,
	}, nil
}

// CredentialKey identifies the credential value backing this client. The
// subscription catalog cache is invalidated when it changes.
func (graph *GraphClient) CredentialKey() string {
	return graph.credentialKey
}

// Query runs one Resource Graph query. A non-empty subscriptionID scopes the
// query to that single subscription; an empty one queries the whole tenant.
func (graph *GraphClient) Query(ctx context.Context, query string, subscriptionID string) ([]types.GraphRow, error) {
	queryRequest := armresourcegraph.QueryRequest{
		Query: to.Ptr(query),
	}
	if subscriptionID != "" {
		queryRequest.Subscriptions = []*string{to.Ptr(subscriptionID)}
	}

	graph.Logger.Tracef("Query: %s", query)

	res, err := graph.Client.Resources(ctx, queryRequest, nil)
	if err != nil {
		if subscriptionID != "" {
			return nil, errors.Wrapf(err, "querying subscription %s", subscriptionID)
		}
		return nil, errors.Wrap(err, "querying tenant")
	}

	if res.QueryResponse.Data == nil {
		return []types.GraphRow{}, nil
	}

	results, ok := res.QueryResponse.Data.([]any)
	if !ok {
		return nil, errors.Errorf("unexpected query response shape %T", res.QueryResponse.Data)
	}

	rows := make([]types.GraphRow, 0, len(results))
	for _, result := range results {
		row, ok := result.(map[string]any)
		if !ok {
			return nil, errors.Errorf("unexpected row shape %T in query response", result)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
