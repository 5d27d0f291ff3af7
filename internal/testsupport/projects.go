package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/viadorer/orchestrator-sub001/internal/projects"
)

// MustCreateProject inserts a project with the given orchestrator config JSON.
func MustCreateProject(t testing.TB, store *projects.Store, id, name, timezone, configJSON string) *projects.Project {
	t.Helper()

	var raw json.RawMessage
	if configJSON != "" {
		raw = json.RawMessage(configJSON)
	}
	project, err := store.Create(context.Background(), projects.NewProject{
		ID:       id,
		Name:     name,
		Timezone: timezone,
		Config:   raw,
	})
	if err != nil {
		t.Fatalf("create project %s: %v", id, err)
	}
	return project
}
