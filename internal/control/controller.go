// Package control wires form input and existing scripts into edit sessions
// and supplies the mode-appropriate remote commit callback.
package control

import (
	"context"
	"fmt"
	"log"

	"github.com/tklein/scriptpad/internal/remote"
	"github.com/tklein/scriptpad/internal/script"
	"github.com/tklein/scriptpad/internal/session"
)

// RemoteAPI is the slice of the script service client the controller uses.
type RemoteAPI interface {
	CreateScript(ctx context.Context, req remote.CreateScriptRequest) (*script.Script, error)
	UpdateScript(ctx context.Context, id string, req remote.UpdateScriptRequest) (*script.Script, error)
	ListOrganizations(ctx context.Context, nameFilter string) ([]remote.Organization, error)
}

// Options configures a controller. Workspace and NewEvents are optional;
// nil selects the real filesystem and an fsnotify watcher per session.
type Options struct {
	Client    RemoteAPI
	Host      session.Host
	Org       string
	Workspace session.Workspace
	NewEvents func(path string) (session.EventSource, error)
}

// Controller bridges external triggers into ephemeral edit sessions.
type Controller struct {
	client    RemoteAPI
	host      session.Host
	org       string
	workspace session.Workspace
	newEvents func(path string) (session.EventSource, error)
}

// New creates a controller committing against opts.Client, using opts.Org to
// resolve the organization for create calls.
func New(opts Options) *Controller {
	return &Controller{
		client:    opts.Client,
		host:      opts.Host,
		org:       opts.Org,
		workspace: opts.Workspace,
		newEvents: opts.NewEvents,
	}
}

// NewScript runs the create flow: render the form, wait for its message,
// then open a create-mode session seeded with the language template.
func (c *Controller) NewScript(ctx context.Context, form FormPresenter) error {
	msgCh := make(chan AddScriptMessage, 1)
	if err := form.Render(func(msg AddScriptMessage) { msgCh <- msg }); err != nil {
		return fmt.Errorf("failed to render script form: %w", err)
	}
	defer form.Destroy()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg := <-msgCh:
		return c.AddScript(ctx, msg)
	}
}

// AddScript opens a create-mode session for a submitted form message.
func (c *Controller) AddScript(ctx context.Context, msg AddScriptMessage) error {
	if msg.Command != "" && msg.Command != CommandSaveNewScript {
		return fmt.Errorf("unexpected form command %q", msg.Command)
	}

	lang, err := script.ParseLanguage(msg.Language)
	if err != nil {
		c.host.NotifyError(err.Error())
		return err
	}
	if msg.Name == "" {
		err := fmt.Errorf("script name must not be empty")
		c.host.NotifyError(err.Error())
		return err
	}
	// Only create needs an organization; edit sessions must keep working
	// without one.
	if c.org == "" {
		err := fmt.Errorf("no organization configured (set SCRIPTPAD_ORG or run 'scriptpad config -org ...')")
		c.host.NotifyError(err.Error())
		return err
	}

	sess, err := session.Open(session.Options{
		Name:        msg.Name,
		Language:    lang,
		Mode:        session.ModeCreate,
		InitialText: script.Template(lang),
		Host:        c.host,
		OnCommit:    c.createCommit(msg, lang),
		Workspace:   c.workspace,
		NewEvents:   c.newEvents,
	})
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// EditScript opens an update-mode session seeded with the script's current
// body. A script without an id indicates a state error upstream: it is
// logged and ignored without any user-facing dialog or remote call.
func (c *Controller) EditScript(ctx context.Context, s script.Script) error {
	if s.ID == "" {
		log.Printf("edit requested for script %q with no id; ignoring", s.Name)
		return nil
	}

	sess, err := session.Open(session.Options{
		Name:        s.Name,
		Language:    s.Language,
		Mode:        session.ModeUpdate,
		InitialText: s.Script,
		Host:        c.host,
		OnCommit:    c.updateCommit(s.ID),
		Workspace:   c.workspace,
		NewEvents:   c.newEvents,
	})
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// createCommit resolves the configured organization to exactly one id, then
// issues the create call. Zero or ambiguous matches surface as errors and
// leave the session open for retry.
func (c *Controller) createCommit(msg AddScriptMessage, lang script.Language) session.CommitFunc {
	return func(ctx context.Context, body string) error {
		orgs, err := c.client.ListOrganizations(ctx, c.org)
		if err != nil {
			return fmt.Errorf("organization lookup failed: %w", err)
		}
		if len(orgs) == 0 {
			return fmt.Errorf("no organization named %q", c.org)
		}
		if len(orgs) > 1 {
			return fmt.Errorf("organization name %q is ambiguous (%d matches)", c.org, len(orgs))
		}

		_, err = c.client.CreateScript(ctx, remote.CreateScriptRequest{
			Name:        msg.Name,
			Description: msg.Description,
			OrgID:       orgs[0].ID,
			Script:      body,
			Language:    string(lang),
		})
		if err != nil {
			return fmt.Errorf("failed to create script: %w", err)
		}

		// No refresh here: session disposal signals one after every
		// terminating path, this one included.
		c.host.CloseActiveEditor()
		return nil
	}
}

func (c *Controller) updateCommit(id string) session.CommitFunc {
	return func(ctx context.Context, body string) error {
		if _, err := c.client.UpdateScript(ctx, id, remote.UpdateScriptRequest{Script: body}); err != nil {
			return fmt.Errorf("failed to update script: %w", err)
		}
		c.host.CloseActiveEditor()
		return nil
	}
}
