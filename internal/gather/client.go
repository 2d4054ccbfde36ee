package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/contentforge/gathersync/internal/config"
)

const acceptHeader = "application/vnd.gathercontent.v0.5+json"

// Client talks to both GatherContent APIs. All methods return the zero
// value and an error when the remote call or decode fails; callers that
// treat absence as non-fatal check the error, not the value.
type Client struct {
	api    config.APIConfig
	plugin config.PluginAPIConfig
	httpc  *http.Client
	logger *slog.Logger

	snapshots   *Snapshots
	saveEnabled bool
}

// ClientOption adjusts a client at construction time.
type ClientOption func(*Client)

// WithSnapshotSaving enables snapshot saving regardless of the configured
// save_snapshots flag.
func WithSnapshotSaving() ClientOption {
	return func(c *Client) { c.saveEnabled = true }
}

// NewClient builds a client from normalized configuration. When snapshot
// saving is enabled every fetched payload is also written to the snapshot
// directory; previously saved items can be loaded back regardless.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		api:         cfg.API,
		plugin:      cfg.PluginAPI,
		httpc:       &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		snapshots:   NewSnapshots(cfg.SnapshotDir),
		saveEnabled: cfg.SaveSnapshots,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	return retry.WithMaxRetries(3, b)
}

// getData performs a standard API GET and unwraps the {"data": ...}
// envelope into out.
func (c *Client) getData(ctx context.Context, method string, out any) error {
	reqURL := c.api.URL + method
	var body []byte
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.api.Username, c.api.Key)
		req.Header.Set("Accept", acceptHeader)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("GET %s: %s", method, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: %s", method, resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", method, err)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("response for %s has no data", method)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", method, err)
	}
	return nil
}

// postPlugin performs a plugin API POST and extracts the named key from
// the {"success": true, ...} envelope into out.
func (c *Client) postPlugin(ctx context.Context, endpoint, payloadKey string, params url.Values, out any) error {
	reqURL := c.plugin.URL + endpoint
	var body []byte
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL,
			strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.plugin.Key, c.plugin.Password)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("POST %s: %s", endpoint, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("POST %s: %s", endpoint, resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	var ok bool
	if raw, found := envelope["success"]; found {
		_ = json.Unmarshal(raw, &ok)
	}
	if !ok {
		return fmt.Errorf("plugin call %s unsuccessful", endpoint)
	}
	raw, found := envelope[payloadKey]
	if !found {
		return fmt.Errorf("plugin response for %s has no %q", endpoint, payloadKey)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", endpoint, payloadKey, err)
	}
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.getData(ctx, "me", &u); err != nil {
		return User{}, err
	}
	c.save("me", u)
	return u, nil
}

// Accounts lists the accounts visible to the credentials.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.getData(ctx, "accounts", &accounts); err != nil {
		return nil, err
	}
	c.save("accounts", accounts)
	return accounts, nil
}

// Projects lists the projects of one account.
func (c *Client) Projects(ctx context.Context, accountID ID) ([]Project, error) {
	var projects []Project
	if err := c.getData(ctx, "projects?account_id="+url.QueryEscape(string(accountID)), &projects); err != nil {
		return nil, err
	}
	c.save("account_"+string(accountID)+"_projects", projects)
	return projects, nil
}

// ProjectByName walks all accounts and returns the first project whose
// name matches exactly.
func (c *Client) ProjectByName(ctx context.Context, name string) (Project, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return Project{}, err
	}
	for _, acc := range accounts {
		projects, err := c.Projects(ctx, acc.ID)
		if err != nil {
			return Project{}, err
		}
		for _, p := range projects {
			if p.Name == name {
				return p, nil
			}
		}
	}
	return Project{}, fmt.Errorf("project %q not found in any account", name)
}

// Items lists all items of a project, each with its full element content.
func (c *Client) Items(ctx context.Context, projectID ID) ([]Item, error) {
	var items []Item
	if err := c.getData(ctx, "items?project_id="+url.QueryEscape(string(projectID)), &items); err != nil {
		return nil, err
	}
	if c.saveEnabled {
		if err := c.snapshots.SaveItems(projectID, items); err != nil {
			c.logger.Warn("failed to save item snapshots", "error", err)
		}
	}
	return items, nil
}

// Item fetches a single item.
func (c *Client) Item(ctx context.Context, itemID ID) (Item, error) {
	var item Item
	if err := c.getData(ctx, "items/"+url.PathEscape(string(itemID)), &item); err != nil {
		return Item{}, err
	}
	c.save("project_"+string(item.ProjectID)+"_item_"+string(item.ID), item)
	return item, nil
}

// Templates lists the templates of a project.
func (c *Client) Templates(ctx context.Context, projectID ID) ([]Template, error) {
	var templates []Template
	if err := c.getData(ctx, "templates?project_id="+url.QueryEscape(string(projectID)), &templates); err != nil {
		return nil, err
	}
	c.save("project_"+string(projectID)+"_templates", templates)
	return templates, nil
}

// Template fetches a single template.
func (c *Client) Template(ctx context.Context, templateID ID) (Template, error) {
	var tpl Template
	if err := c.getData(ctx, "templates/"+url.PathEscape(string(templateID)), &tpl); err != nil {
		return Template{}, err
	}
	c.save("template_"+string(templateID), tpl)
	return tpl, nil
}

// Statuses lists the workflow statuses of a project.
func (c *Client) Statuses(ctx context.Context, projectID ID) ([]Status, error) {
	var statuses []Status
	if err := c.getData(ctx, "projects/"+url.PathEscape(string(projectID))+"/statuses", &statuses); err != nil {
		return nil, err
	}
	c.save("project_"+string(projectID)+"_statuses", statuses)
	return statuses, nil
}

// Status fetches a single workflow status of a project.
func (c *Client) Status(ctx context.Context, projectID, statusID ID) (Status, error) {
	var status Status
	path := "projects/" + url.PathEscape(string(projectID)) + "/statuses/" + url.PathEscape(string(statusID))
	if err := c.getData(ctx, path, &status); err != nil {
		return Status{}, err
	}
	c.save("project_"+string(projectID)+"_status_"+string(statusID), status)
	return status, nil
}

// FilesByProject lists all file records of a project via the plugin API.
func (c *Client) FilesByProject(ctx context.Context, projectID ID) ([]FileRef, error) {
	var files []FileRef
	params := url.Values{"project_id": {string(projectID)}}
	if err := c.postPlugin(ctx, "get_files_by_project", "files", params, &files); err != nil {
		return nil, err
	}
	c.save("project_"+string(projectID)+"_files", files)
	return files, nil
}

// FilesByItem lists the file records attached to one item.
func (c *Client) FilesByItem(ctx context.Context, itemID ID) ([]FileRef, error) {
	var files []FileRef
	params := url.Values{"page_id": {string(itemID)}}
	if err := c.postPlugin(ctx, "get_files_by_page", "files", params, &files); err != nil {
		return nil, err
	}
	c.save("item_"+string(itemID)+"_files", files)
	return files, nil
}

// FileByItemAndField returns the file records of one element of one item.
func (c *Client) FileByItemAndField(ctx context.Context, itemID ID, field string) ([]FileRef, error) {
	files, err := c.FilesByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	var matched []FileRef
	for _, f := range files {
		if f.Field == field {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// SavedItems returns previously snapshotted items of a project. Missing
// snapshot directories yield an empty slice, not an error.
func (c *Client) SavedItems(projectID ID) ([]Item, error) {
	return c.snapshots.LoadItems(projectID)
}

func (c *Client) save(name string, data any) {
	if !c.saveEnabled {
		return
	}
	if err := c.snapshots.Save(name, data); err != nil {
		c.logger.Warn("failed to save snapshot", "name", name, "error", err)
	}
}
