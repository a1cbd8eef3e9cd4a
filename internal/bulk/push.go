package bulk

import (
	"context"
	"fmt"

	"github.com/tklein/scriptpad/internal/remote"
	"github.com/tklein/scriptpad/internal/script"
)

// Service is the slice of the remote client the push needs.
type Service interface {
	CreateScript(ctx context.Context, req remote.CreateScriptRequest) (*script.Script, error)
	UpdateScript(ctx context.Context, id string, req remote.UpdateScriptRequest) (*script.Script, error)
	ListScripts(ctx context.Context, limit int) ([]script.Script, error)
	ListOrganizations(ctx context.Context, nameFilter string) ([]remote.Organization, error)
}

// Result summarizes one push.
type Result struct {
	Created []string // script names created
	Updated []string // script names updated
}

// Push creates or updates every pending script. Scripts whose name already
// exists remotely are updated in place; the rest are created under the
// organization named org. The first remote failure aborts the push.
func Push(ctx context.Context, svc Service, org string, pending []PendingScript) (Result, error) {
	var res Result
	if len(pending) == 0 {
		return res, nil
	}

	orgs, err := svc.ListOrganizations(ctx, org)
	if err != nil {
		return res, fmt.Errorf("organization lookup failed: %w", err)
	}
	if len(orgs) != 1 {
		return res, fmt.Errorf("expected exactly one organization named %q, found %d", org, len(orgs))
	}
	orgID := orgs[0].ID

	existing, err := svc.ListScripts(ctx, 0)
	if err != nil {
		return res, fmt.Errorf("failed to list remote scripts: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, s := range existing {
		byName[s.Name] = s.ID
	}

	for _, p := range pending {
		if id, ok := byName[p.Name]; ok {
			_, err := svc.UpdateScript(ctx, id, remote.UpdateScriptRequest{
				Script:      p.Body,
				Description: p.Description,
			})
			if err != nil {
				return res, fmt.Errorf("failed to update %s: %w", p.Name, err)
			}
			res.Updated = append(res.Updated, p.Name)
			continue
		}

		_, err := svc.CreateScript(ctx, remote.CreateScriptRequest{
			Name:        p.Name,
			Description: p.Description,
			OrgID:       orgID,
			Script:      p.Body,
			Language:    string(p.Language),
		})
		if err != nil {
			return res, fmt.Errorf("failed to create %s: %w", p.Name, err)
		}
		res.Created = append(res.Created, p.Name)
	}

	return res, nil
}
