package azure

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/tessera-io/tessera/pkg/connectors"
)

// queryHeader selects Linux virtual machines and expands each VM's
// network interfaces. Filter clauses are inserted after it.
const queryHeader = `Resources
| where type =~ 'microsoft.compute/VirtualMachines'
| where properties.storageProfile.osDisk.osType == "Linux"
| mv-expand netIf = properties.networkProfile.networkInterfaces
`

// queryFooter left-joins the primary private IP configuration of the
// matching network interface and projects the fixed result columns.
const queryFooter = `| project resourceGroup, name, nicResourceId = tostring(netIf.id), location, zones
| join kind=leftouter (
  Resources
  | where type =~ 'microsoft.network/NetworkInterfaces'
  | mv-expand ipConf = properties.ipConfigurations
  | where tobool(ipConf.properties.primary) == true
  | project nicResourceId = id, privateIP = tostring(ipConf.properties.privateIPAddress)
  ) on nicResourceId
| project group = resourceGroup, hostname = name, ip = privateIP, location, zones`

// BuildQuery generates the resource graph query for the given filters.
//
// Each filter field whose value is non-empty contributes one
// case-insensitive `| where <field> in~ (...)` clause; the value is a
// comma-separated list whose empty elements are dropped and whose single
// quotes are escaped by doubling. Field names must be purely alphabetic;
// anything else fails with a validation error before any client call is
// made, as a defense against query-language injection. Fields are
// rendered in sorted order so the query text is deterministic.
func BuildQuery(filters map[string]string) (string, error) {
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var clauses strings.Builder
	for _, field := range fields {
		if !isAlphaField(field) {
			return "", connectors.NewValidationError(
				"build resource graph query",
				fmt.Errorf("unsafe filter field name %q", field),
			)
		}

		members := make([]string, 0)
		for _, element := range strings.Split(filters[field], ",") {
			if element == "" {
				continue
			}
			members = append(members, "'"+strings.ReplaceAll(element, "'", "''")+"'")
		}
		if len(members) == 0 {
			// No restriction on this field.
			continue
		}

		fmt.Fprintf(&clauses, "| where %s in~ (%s)\n", field, strings.Join(members, ","))
	}

	return queryHeader + clauses.String() + queryFooter, nil
}

// isAlphaField reports whether field is a non-empty string of letters.
func isAlphaField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
