package tools

import "github.com/alucardeht/logia/pkg/protocol"

func NewToolNotFoundError(name string) *protocol.Fault {
	return protocol.NewFault(protocol.CodeMethodNotFound, "Tool not found: %s", name)
}

func NewToolExecutionError(name string, err error) *protocol.Fault {
	return protocol.NewFault(protocol.CodeInternalError, "Error executing tool %s: %v", name, err)
}

func NewInvalidArgumentsError(name string, err error) *protocol.Fault {
	return protocol.NewFault(protocol.CodeInvalidParams, "Invalid arguments for tool %s: %v", name, err)
}
