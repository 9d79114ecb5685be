package ir

// Version constants for pattern documents and the formatter engine.
const (
	// DocumentVersion is the only pattern document schema version understood.
	DocumentVersion = 1

	// EngineVersion participates in format cache keys; bump it whenever
	// output for an unchanged document may change.
	EngineVersion = "0.1.0"
)
