package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowCosts labels edges with their cost.
	ShowCosts bool

	// ShowNames labels edges with their transition name.
	ShowNames bool

	// ShowEntryPoint draws the synthetic entry point and its edges. Mermaid
	// draws it as the start marker.
	ShowEntryPoint bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a route through the diagram, by full state
	// name.
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowCosts:      true,
		ShowNames:      false,
		ShowEntryPoint: true,
		Direction:      "TD",
	}
}

// WithShowCosts enables/disables cost labels.
func (o Options) WithShowCosts(show bool) Options {
	o.ShowCosts = show

	return o
}

// WithShowNames enables/disables transition name labels.
func (o Options) WithShowNames(show bool) Options {
	o.ShowNames = show

	return o
}

// WithShowEntryPoint enables/disables the entry point.
func (o Options) WithShowEntryPoint(show bool) Options {
	o.ShowEntryPoint = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
