package incus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/tessera-io/tessera/pkg/connectors"
	"github.com/tessera-io/tessera/pkg/telemetry"
)

// listRow is one instance entry in the CLI's JSON list output. Devices
// stays raw so the device order reported by the CLI can be preserved.
type listRow struct {
	Name    string          `json:"name"`
	Devices json.RawMessage `json:"devices"`
}

// Discover enumerates the instances visible to the CLI.
//
// The pattern is "[<remote>:]<instance>": empty means all instances on
// the local connection, "example:" means all instances on the remote
// named example, and "example:foo" names one instance on that remote.
// Listing is slow, so it runs under a progress scope; results are never
// cached and every call re-queries the CLI.
func (c *Connector) Discover(ctx context.Context, pattern string) (records []connectors.Record, err error) {
	defer func() {
		telemetry.Discoveries.WithLabelValues(c.Kind(), telemetry.StatusOf(err)).Inc()
	}()

	listCmd := []string{c.cfg.Binary, "list", "--all-projects", "-c", "nc", "-f", "json"}
	if pattern == "" {
		log.Warn().
			Str("connector", c.Kind()).
			Msgf("no %s base ID provided, targeting the local server", c.cfg.Binary)
	} else {
		listCmd = append(listCmd, pattern)
	}

	remote, _ := SplitTarget(pattern)
	prefix := ""
	if remote != "" {
		prefix = remote + ":"
	}

	op := c.cfg.Binary + " list"
	stop := c.progressReporter().Start(op)
	ok, out, runErr := c.exec.Run(ctx, shellquote.Join(listCmd...), connectors.ExecOptions{})
	stop()

	if runErr != nil {
		err = connectors.NewDiscoveryError(op, out.Stderr, runErr)
		return nil, err
	}
	if !ok {
		err = connectors.NewDiscoveryError(op, out.Stderr, nil)
		return nil, err
	}

	var rows []listRow
	if jsonErr := json.Unmarshal([]byte(out.Stdout), &rows); jsonErr != nil {
		err = connectors.NewDiscoveryError(op, out.Stderr, fmt.Errorf("malformed list output: %w", jsonErr))
		return nil, err
	}

	records = make([]connectors.Record, 0, len(rows))
	for _, row := range rows {
		identifier := prefix + row.Name
		attrs := map[string]any{
			c.cfg.Binary + "_identifier": identifier,
		}
		// The first IPv4 address found wins. This is a documented
		// workaround for backends without agent-based execution: the
		// address lets the ssh connector reach the instance without a
		// separate resolution step. No attempt is made to pick a "best"
		// address.
		if addr := firstIPv4(row.Devices); addr != "" {
			attrs["ssh_hostname"] = addr
		}
		records = append(records, connectors.Record{
			Identifier: identifier,
			Ref:        connectors.MakeRef(c.cfg.Binary, identifier),
			Attributes: attrs,
			Groups:     []string{"@" + c.cfg.Binary},
		})
	}
	return records, nil
}

// firstIPv4 scans the devices object in the order the CLI returned it and
// returns the first "ipv4.address" property found. Absence of an address
// is not an error; it just means no address was found.
func firstIPv4(devices json.RawMessage) string {
	if len(devices) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(devices))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return ""
	}

	for dec.More() {
		// Device name.
		if _, err := dec.Token(); err != nil {
			return ""
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ""
		}

		var props map[string]string
		if err := json.Unmarshal(raw, &props); err != nil {
			// Not a flat property object; skip the device.
			continue
		}
		if addr := props["ipv4.address"]; addr != "" {
			return addr
		}
	}
	return ""
}
