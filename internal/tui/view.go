package tui

// ViewType represents which tab is active.
type ViewType int

const (
	ViewBrowse ViewType = iota
	ViewHost
	ViewSettings
)

var viewNames = []string{"Browse", "Host", "Settings"}

func (v ViewType) String() string {
	if int(v) < len(viewNames) {
		return viewNames[v]
	}
	return "unknown"
}

// next cycles through the tabs.
func (v ViewType) next() ViewType {
	return (v + 1) % ViewType(len(viewNames))
}
