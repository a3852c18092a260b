package constants

// ProcessorState is the lifecycle state of the document processor.
type ProcessorState string

const (
	ProcessorUninitialized ProcessorState = "UNINITIALIZED"
	ProcessorReady         ProcessorState = "READY"
	ProcessorFailed        ProcessorState = "FAILED" // terminal
)
