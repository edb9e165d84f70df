package adapter

import (
	"fmt"
	"strings"
)

// Diagnostic command names as they appear in Diagnostics maps
const (
	DiagRunningConfig  = "running-config"
	DiagInterfaces     = "interfaces"
	DiagRoutes         = "ip-route"
	DiagAccessLists    = "access-lists"
	DiagNATTranslation = "nat"
	DiagDHCPPool       = "dhcp"
)

// DiagnosticCommands is the fixed command set run against each router
var DiagnosticCommands = []Command{
	{Name: DiagRunningConfig, Line: "show running-config"},
	{Name: DiagInterfaces, Line: "show ip interface brief"},
	{Name: DiagRoutes, Line: "show ip route"},
	{Name: DiagAccessLists, Line: "show access-lists"},
	{Name: DiagNATTranslation, Line: "show ip nat translations"},
	{Name: DiagDHCPPool, Line: "show ip dhcp pool"},
}

// pingSuccessMarker appears in a remote ping's output only when every echo returned
const pingSuccessMarker = "Success rate is 100 percent"

// pingSummaryMarker appears in every completed remote ping
const pingSummaryMarker = "Success rate is"

// PingCommand builds the remote ping command line
func PingCommand(addr string) string {
	return "ping " + addr
}

// InterfaceStatus is one row of "show ip interface brief"
type InterfaceStatus struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Status   string `json:"status"`
	Protocol string `json:"protocol"`
}

// Up reports whether both line and protocol are up
func (i InterfaceStatus) Up() bool {
	return i.Status == "up" && i.Protocol == "up"
}

// ParseInterfaceBrief parses "show ip interface brief" output.
// Format: Interface IP-Address OK? Method Status Protocol
func ParseInterfaceBrief(output string) ([]InterfaceStatus, error) {
	if strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("empty interface output")
	}

	var rows []InterfaceStatus
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || (fields[2] != "YES" && fields[2] != "NO") {
			continue
		}

		// Status may be two words ("administratively down")
		status := strings.Join(fields[4:len(fields)-1], " ")
		rows = append(rows, InterfaceStatus{
			Name:     fields[0],
			Address:  fields[1],
			Status:   status,
			Protocol: fields[len(fields)-1],
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no interfaces found")
	}
	return rows, nil
}
