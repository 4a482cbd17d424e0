package panel

import "github.com/azure/cidr-lookup/types"

// Inbound commands, sent by the webview.
const (
	CommandRequestSubscriptions = "requestSubscriptions"
	CommandLookupCidr           = "lookupCidr"
	CommandExportCsv            = "exportCsv"
)

// Outbound commands, pushed to the webview.
const (
	CommandSetLoading          = "setLoading"
	CommandSubscriptionOptions = "subscriptionOptions"
	CommandInitSubscriptions   = "initSubscriptions"
	CommandSubscriptionStatus  = "subscriptionStatus"
	CommandDisplayResults      = "displayResults"
	CommandShowError           = "showError"
	CommandShowInfo            = "showInfo"
)

// InboundMessage is the envelope for every webview-to-core message.
type InboundMessage struct {
	Command       string   `json:"command"`
	Cidr          string   `json:"cidr,omitempty"`
	Subscriptions []string `json:"subscriptions,omitempty"`
}

type SetLoadingMessage struct {
	Command string `json:"command"`
	Value   bool   `json:"value"`
}

type SubscriptionOptionsMessage struct {
	Command       string                   `json:"command"`
	Subscriptions []types.SubscriptionInfo `json:"subscriptions"`
}

type InitSubscriptionsMessage struct {
	Command       string                   `json:"command"`
	Subscriptions []types.SubscriptionInfo `json:"subscriptions"`
}

type SubscriptionStatusMessage struct {
	Command        string                   `json:"command"`
	SubscriptionID string                   `json:"subscriptionId"`
	Status         types.SubscriptionStatus `json:"status"`
	Count          int                      `json:"count,omitempty"`
	Message        string                   `json:"message,omitempty"`
}

type DisplayResultsMessage struct {
	Command string           `json:"command"`
	Cidrs   []string         `json:"cidrs"`
	Results []types.GraphRow `json:"results"`
	Columns []string         `json:"columns"`
}

type NotificationMessage struct {
	Command string `json:"command"`
	Message string `json:"message"`
}
