// Package azure implements the cloud inventory connector: it translates
// a target pattern into a resource graph query, submits it through an
// opaque credentialed client, and reshapes the tabular result into
// inventory records grouped by resource group.
//
// The connector is inventory-only. Discovered hosts carry an
// ssh_hostname attribute and an "@ssh/<hostname>" reference so the
// engine's ssh connector can operate on them.
package azure

import (
	"context"
	"errors"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/tessera-io/tessera/pkg/connectors"
	"github.com/tessera-io/tessera/pkg/progress"
	"github.com/tessera-io/tessera/pkg/telemetry"
)

const (
	connectorKind = "azure"

	// sshKind is the connector kind that operates on discovered hosts.
	sshKind = "ssh"

	// defaultCacheSize bounds the fetch cache. The same discovery call
	// has been observed to be issued twice for one logical inventory
	// pass, and the query is slow enough to make re-issuing it hurt.
	defaultCacheSize = 8
)

var errInventoryOnly = errors.New("the azure connector is inventory-only; operate on discovered hosts through their @ssh reference")

// HostEntry is one discovered host inside an inventory bucket.
type HostEntry struct {
	Hostname   string
	Attributes map[string]any
}

// Inventory is the grouped result of a fetch. Hosts within a group
// follow the API's return order.
type Inventory struct {
	// Groups lists the bucket names in first-seen order.
	Groups []string

	// Hosts maps a group name to its hosts.
	Hosts map[string][]HostEntry
}

// Connector queries the cloud resource graph for inventory.
type Connector struct {
	client    GraphClient
	cache     *lru.Cache[string, *Inventory]
	cacheSize int
	reporter  progress.Reporter
}

// Option customizes a connector.
type Option func(*Connector)

// WithProgress sets the progress reporter used around queries.
func WithProgress(r progress.Reporter) Option {
	return func(c *Connector) { c.reporter = r }
}

// WithCacheSize overrides the bounded fetch cache capacity.
func WithCacheSize(n int) Option {
	return func(c *Connector) { c.cacheSize = n }
}

// New creates a cloud inventory connector over the given client.
func New(client GraphClient, opts ...Option) (*Connector, error) {
	c := &Connector{
		client:    client,
		cacheSize: defaultCacheSize,
		reporter:  progress.Silent{},
	}
	for _, opt := range opts {
		opt(c)
	}

	cache, err := lru.New[string, *Inventory](c.cacheSize)
	if err != nil {
		return nil, connectors.NewValidationError("configure azure connector", err)
	}
	c.cache = cache
	return c, nil
}

// Kind returns the connector kind.
func (c *Connector) Kind() string {
	return connectorKind
}

// HandlesExecution reports that this connector cannot execute commands.
func (c *Connector) HandlesExecution() bool {
	return false
}

// Execute is not supported; the connector is inventory-only.
func (c *Connector) Execute(context.Context, string, connectors.ExecOptions) (bool, connectors.CommandOutput, error) {
	return false, connectors.CommandOutput{}, connectors.NewExecError("azure exec", errInventoryOnly)
}

// Upload is not supported; the connector is inventory-only.
func (c *Connector) Upload(context.Context, connectors.FileSource, string, connectors.ExecOptions) error {
	return connectors.NewTransferError("azure upload", "", errInventoryOnly)
}

// Download is not supported; the connector is inventory-only.
func (c *Connector) Download(context.Context, string, connectors.FileDest, connectors.ExecOptions) error {
	return connectors.NewTransferError("azure download", "", errInventoryOnly)
}

// ParseTarget splits a target pattern into its groups and hosts filters.
//
//   - empty pattern: all groups, all hosts
//   - "dev,prod/": all hosts in groups dev and prod
//   - "db,webserver" or "/db,webserver": hosts matching db or webserver
//   - "dev,prod/webserver": hosts matching webserver in dev and prod
//
// The split happens at the first slash only; either side may be empty,
// meaning unrestricted.
func ParseTarget(pattern string) (groups, hosts string) {
	if pattern == "" {
		return "", ""
	}
	if g, h, found := strings.Cut(pattern, "/"); found {
		return g, h
	}
	return "", pattern
}

// Fetch returns the grouped inventory matching the filters, querying the
// resource graph at most once per exact filter combination. Results are
// cached in a bounded LRU for the life of the process; cached entries do
// not reflect live cloud state after the first fetch.
func (c *Connector) Fetch(ctx context.Context, filters map[string]string) (*Inventory, error) {
	key := cacheKey(filters)
	if inv, ok := c.cache.Get(key); ok {
		telemetry.InventoryCacheHits.Inc()
		log.Debug().Str("key", key).Msg("inventory fetch served from cache")
		return inv, nil
	}
	telemetry.InventoryCacheMisses.Inc()

	query, err := BuildQuery(filters)
	if err != nil {
		return nil, err
	}

	stop := c.reporter.Start("get Azure inventory")
	rows, queryErr := c.client.Resources(ctx, query)
	stop()
	if queryErr != nil {
		return nil, connectors.NewDiscoveryError("azure resource graph query", "", queryErr)
	}

	inv := &Inventory{Hosts: make(map[string][]HostEntry)}
	for _, row := range rows {
		if _, seen := inv.Hosts[row.Group]; !seen {
			inv.Groups = append(inv.Groups, row.Group)
			inv.Hosts[row.Group] = []HostEntry{}
		}

		attrs := map[string]any{"group": row.Group}
		if row.IP != "" {
			attrs["ssh_hostname"] = row.IP
		}
		if row.Location != "" {
			attrs["location"] = row.Location
		}
		if len(row.Zones) > 0 {
			attrs["zones"] = row.Zones
		}

		inv.Hosts[row.Group] = append(inv.Hosts[row.Group], HostEntry{
			Hostname:   row.Hostname,
			Attributes: attrs,
		})
	}

	c.cache.Add(key, inv)
	return inv, nil
}

// Discover enumerates the hosts matching the pattern, flattening the
// grouped inventory into records tagged with their bucket's group plus
// the connector-kind group.
func (c *Connector) Discover(ctx context.Context, pattern string) (records []connectors.Record, err error) {
	defer func() {
		telemetry.Discoveries.WithLabelValues(connectorKind, telemetry.StatusOf(err)).Inc()
	}()

	groups, hosts := ParseTarget(pattern)
	inv, err := c.Fetch(ctx, map[string]string{
		"resourceGroup": groups,
		"name":          hosts,
	})
	if err != nil {
		return nil, err
	}

	for _, group := range inv.Groups {
		for _, host := range inv.Hosts[group] {
			records = append(records, connectors.Record{
				Identifier: host.Hostname,
				Ref:        connectors.MakeRef(sshKind, host.Hostname),
				Attributes: host.Attributes,
				Groups:     []string{group, "@" + connectorKind},
			})
		}
	}
	return records, nil
}

// cacheKey serializes a filter map deterministically.
func cacheKey(filters map[string]string) string {
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(field)
		b.WriteByte('=')
		b.WriteString(filters[field])
	}
	return b.String()
}
