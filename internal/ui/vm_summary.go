package ui

import (
	"fmt"
	"strings"
)

// VMSummary holds the details shown after a VM is created.
type VMSummary struct {
	Name     string
	VMID     int
	Node     string
	Storage  string
	IP       string
	SSHAlias string
	Cores    int
	MemoryMB int
	DiskGB   int
}

// RenderVMSummary formats the post-create summary block.
func RenderVMSummary(s VMSummary) string {
	var sb strings.Builder

	sb.WriteString(SuccessStyle().Render(fmt.Sprintf("%s VM %q created", SymbolSuccess, s.Name)))
	sb.WriteString("\n\n")

	pairs := []KeyValue{
		{Key: "VMID", Value: fmt.Sprintf("%d", s.VMID)},
		{Key: "Node", Value: s.Node},
		{Key: "Storage", Value: s.Storage},
		{Key: "Resources", Value: fmt.Sprintf("%d cores, %d MB RAM, %d GB disk", s.Cores, s.MemoryMB, s.DiskGB)},
	}
	if s.IP != "" {
		pairs = append(pairs, KeyValue{Key: "IP", Value: s.IP})
	}
	sb.WriteString(RenderKeyValues(pairs))

	if s.SSHAlias != "" {
		sb.WriteString("\n")
		sb.WriteString(MutedStyle().Render("Connect with: "))
		sb.WriteString(InfoStyle().Render("ssh " + s.SSHAlias))
		sb.WriteString("\n")
	}

	return sb.String()
}
