package event

// ResolvedData is the data for config.resolved events.
type ResolvedData struct {
	// ID identifies the resolution (a ULID).
	ID string `json:"id"`
	// Source is the file the resolved config came from, if any.
	Source string `json:"source,omitempty"`
	// Chain lists the loaded parent identifiers in load order.
	Chain    []string `json:"chain"`
	Duration string   `json:"duration"`
}

// ResolveFailedData is the data for config.resolve.failed events.
type ResolveFailedData struct {
	ID     string   `json:"id"`
	Source string   `json:"source,omitempty"`
	Chain  []string `json:"chain"`
	Error  string   `json:"error"`
}

// ChangedData is the data for config.changed events.
type ChangedData struct {
	// Path is the file that changed.
	Path string `json:"path"`
	// Source is the watched top-level config.
	Source string `json:"source"`
}
