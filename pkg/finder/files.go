package finder

import (
	"os"

	"github.com/ritzau/heatnet/pkg/model"
)

// ResolveGraph returns the graph file to load.
// A non-empty override is the only path consulted; otherwise candidates are tried in order
// and the first regular file wins. If nothing resolves, a *model.MissingInputError lists
// every path that was tried.
func ResolveGraph(override string, candidates []string) (string, error) {
	tried := candidates
	if override != "" {
		tried = []string{override}
	}

	for _, path := range tried {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return path, nil
	}

	return "", &model.MissingInputError{Candidates: tried}
}
