package watcher

// ChangeAnalysis describes what a change requires before the network is rebuilt
type ChangeAnalysis struct {
	NeedConfigReload bool
	NeedRebuild      bool
	ChangedFiles     []string
}

// AnalyzeChanges determines which steps need to be re-run for a debounced change.
// Every change rebuilds; a config change reloads the configuration first since
// constants, paths or the graph override may have moved.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	return &ChangeAnalysis{
		NeedConfigReload: event.Type == ChangeTypeConfig,
		NeedRebuild:      true,
		ChangedFiles:     event.Paths,
	}
}
