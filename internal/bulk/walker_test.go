package bulk

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tklein/scriptpad/internal/remote"
	"github.com/tklein/scriptpad/internal/script"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func TestWalkCollectsScriptFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alerts/cpu.flux", "from(bucket:\"m\")\n")
	writeFile(t, root, "jobs/report.py", "print(1)\n  \n")
	writeFile(t, root, "README.md", "not a script\n")
	writeFile(t, root, "ignored/skip.flux", "x\n")
	writeFile(t, root, ".gitignore", "ignored/\n")

	pending, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	byName := map[string]PendingScript{}
	for _, p := range pending {
		byName[p.Name] = p
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending scripts, got %d: %+v", len(pending), pending)
	}

	cpu, ok := byName["cpu"]
	if !ok {
		t.Fatal("expected cpu.flux to be collected")
	}
	if cpu.Language != script.LangFlux || cpu.Body != "from(bucket:\"m\")" {
		t.Errorf("unexpected cpu script: %+v", cpu)
	}

	report, ok := byName["report"]
	if !ok {
		t.Fatal("expected report.py to be collected")
	}
	if report.Language != script.LangPython {
		t.Errorf("expected python language, got %s", report.Language)
	}
	if report.Body != "print(1)" {
		t.Errorf("expected trailing whitespace trimmed, got %q", report.Body)
	}
}

func TestWalkAppliesManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cpu.flux", "from()\n")
	writeFile(t, root, ManifestFilename, `{
		"scripts": {
			"cpu.flux": {"name": "cpuRollup", "description": "hourly rollup"}
		}
	}`)

	pending, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending script, got %d", len(pending))
	}
	if pending[0].Name != "cpuRollup" || pending[0].Description != "hourly rollup" {
		t.Errorf("manifest metadata not applied: %+v", pending[0])
	}
}

func TestWalkRejectsInvalidManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cpu.flux", "from()\n")
	writeFile(t, root, ManifestFilename, `{"scripts": {"cpu.flux": {"nmae": "typo"}}}`)

	if _, err := Walk(root); err == nil {
		t.Fatal("expected manifest validation error")
	} else if !strings.Contains(err.Error(), "invalid manifest") {
		t.Errorf("expected an invalid-manifest error, got %v", err)
	}
}

// pushService records the remote calls a push makes.
type pushService struct {
	existing []script.Script
	creates  []remote.CreateScriptRequest
	updates  map[string]remote.UpdateScriptRequest
}

func (s *pushService) CreateScript(ctx context.Context, req remote.CreateScriptRequest) (*script.Script, error) {
	s.creates = append(s.creates, req)
	return &script.Script{ID: "new", Name: req.Name}, nil
}

func (s *pushService) UpdateScript(ctx context.Context, id string, req remote.UpdateScriptRequest) (*script.Script, error) {
	s.updates[id] = req
	return &script.Script{ID: id}, nil
}

func (s *pushService) ListScripts(ctx context.Context, limit int) ([]script.Script, error) {
	return s.existing, nil
}

func (s *pushService) ListOrganizations(ctx context.Context, nameFilter string) ([]remote.Organization, error) {
	return []remote.Organization{{ID: "org-1", Name: nameFilter}}, nil
}

func TestPushCreatesAndUpdates(t *testing.T) {
	svc := &pushService{
		existing: []script.Script{{ID: "42", Name: "cpu", Language: script.LangFlux}},
		updates:  map[string]remote.UpdateScriptRequest{},
	}

	pending := []PendingScript{
		{Name: "cpu", Language: script.LangFlux, Body: "from() // v2"},
		{Name: "fresh", Language: script.LangPython, Body: "print(1)", Description: "new job"},
	}

	res, err := Push(context.Background(), svc, "my-org", pending)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(res.Updated) != 1 || res.Updated[0] != "cpu" {
		t.Errorf("expected cpu updated, got %v", res.Updated)
	}
	if len(res.Created) != 1 || res.Created[0] != "fresh" {
		t.Errorf("expected fresh created, got %v", res.Created)
	}

	if req, ok := svc.updates["42"]; !ok || req.Script != "from() // v2" {
		t.Errorf("unexpected update calls: %v", svc.updates)
	}
	if len(svc.creates) != 1 || svc.creates[0].OrgID != "org-1" || svc.creates[0].Description != "new job" {
		t.Errorf("unexpected create calls: %+v", svc.creates)
	}
}
