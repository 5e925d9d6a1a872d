package rf433

import (
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
)

// BuiltinProtocols returns a fresh instance of every protocol this bridge
// ships with, in dispatch order.
func BuiltinProtocols() []protocol.Protocol {
	return []protocol.Protocol{
		selectplus.New(),
	}
}

// BuiltinProtocolIDs returns the ids of BuiltinProtocols.
func BuiltinProtocolIDs() []string {
	protos := BuiltinProtocols()
	ids := make([]string, len(protos))
	for i, p := range protos {
		ids[i] = p.Descriptor().ID
	}
	return ids
}
