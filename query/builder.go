package query

import (
	"regexp"
	"sort"
	"strings"
)

// Build renders the Resource Graph (KQL) query that expands every address
// prefix of the scanned network resource types into one candidate row and
// filters it against the supplied CIDR filters.
//
// Filters are lower-cased and deduplicated before classification. A filter
// containing '*' becomes an anchored regex predicate ('*' is the only wildcard
// metacharacter); all others are collected into a single case-insensitive
// membership predicate. The two groups are OR-combined. An empty filter list
// yields a query with no filter clause at all.
func Build(filters []string) string {
	exacts, wildcards := classify(filters)

	var builder strings.Builder
	builder.WriteString(`resources
| where type =~ 'microsoft.network/virtualnetworks'
| mv-expand prefix = properties.addressSpace.addressPrefixes
| union (resources
	| where type =~ 'microsoft.network/virtualnetworks'
	| mv-expand subnet = properties.subnets
	| extend prefix = subnet.properties.addressPrefix)
| union (resources
	| where type =~ 'microsoft.network/publicipprefixes'
	| extend prefix = properties.ipPrefix)
| union (resources
	| where type =~ 'microsoft.network/ipgroups'
	| mv-expand prefix = properties.ipAddresses)
| extend prefixStr = tolower(tostring(prefix))
`)

	if clause := filterClause(exacts, wildcards); clause != "" {
		builder.WriteString("| where ")
		builder.WriteString(clause)
		builder.WriteString("\n")
	}

	builder.WriteString("| project name, type, location, resourceGroup, subscriptionId, prefixStr, id")
	return builder.String()
}

// ParseFilters splits the free-text filter field on commas and newlines and
// normalizes the parts.
func ParseFilters(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return Normalize(parts)
}

// Normalize trims and lower-cases each filter and deduplicates the list,
// first occurrence wins.
func Normalize(filters []string) []string {
	seen := map[string]bool{}
	normalized := []string{}
	for _, filter := range filters {
		filter = strings.ToLower(strings.TrimSpace(filter))
		if filter == "" || seen[filter] {
			continue
		}
		seen[filter] = true
		normalized = append(normalized, filter)
	}
	return normalized
}

// classify partitions normalized filters into exact tokens and wildcard
// patterns. Both groups come back sorted so the rendered query text is stable
// regardless of input order.
func classify(filters []string) ([]string, []string) {
	exacts := []string{}
	wildcards := []string{}

	for _, filter := range Normalize(filters) {
		if strings.Contains(filter, "*") {
			wildcards = append(wildcards, filter)
		} else {
			exacts = append(exacts, filter)
		}
	}

	sort.Strings(exacts)
	sort.Strings(wildcards)
	return exacts, wildcards
}

func filterClause(exacts []string, wildcards []string) string {
	predicates := []string{}

	if len(exacts) > 0 {
		quoted := make([]string, len(exacts))
		for i, token := range exacts {
			quoted[i] = quoteLiteral(token)
		}
		predicates = append(predicates, "prefixStr in~ ("+strings.Join(quoted, ", ")+")")
	}

	for _, pattern := range wildcards {
		predicates = append(predicates, "prefixStr matches regex "+quoteLiteral(wildcardToRegex(pattern)))
	}

	return strings.Join(predicates, " or ")
}

// wildcardToRegex escapes every regex metacharacter in the pattern, expands
// each '*' to '.*', and anchors the result at both ends. There is no escape
// for a literal '*'.
func wildcardToRegex(pattern string) string {
	escaped := regexp.QuoteMeta(pattern)
	return "^" + strings.ReplaceAll(escaped, `\*`, ".*") + "$"
}

// quoteLiteral renders s as a single-quoted KQL string literal.
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}
