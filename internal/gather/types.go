// Package gather is the source client for the GatherContent APIs: the
// standard v0.5 API for accounts, projects, templates, statuses and items,
// and the legacy plugin API for file records.
package gather

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque source identifier. The source APIs serve IDs as JSON
// numbers in some payloads and strings in others; both decode into ID.
type ID string

// UnmarshalJSON accepts string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %q: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Account is one source account.
type Account struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Project is one source project.
type Project struct {
	ID        ID     `json:"id"`
	AccountID ID     `json:"account_id"`
	Name      string `json:"name"`
}

// User is the authenticated source user.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Template names a structural schema for items.
type Template struct {
	ID        ID     `json:"id"`
	ProjectID ID     `json:"project_id"`
	Name      string `json:"name"`
}

// Status is one workflow status.
type Status struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// StatusRef is the status envelope carried on items.
type StatusRef struct {
	Data Status `json:"data"`
}

// Element types found in item sections. Section elements are inert
// guidelines; unknown types are treated the same way.
const (
	ElementText           = "text"
	ElementChoiceRadio    = "choice_radio"
	ElementChoiceCheckbox = "choice_checkbox"
	ElementFiles          = "files"
	ElementSection        = "section"
)

// Option is one selectable choice of a radio or checkbox element.
type Option struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Element is one content field inside a section.
type Element struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Value   string   `json:"value"`
	Options []Option `json:"options"`
}

// SelectedLabels returns the labels of all selected options.
func (e *Element) SelectedLabels() []string {
	var labels []string
	for _, opt := range e.Options {
		if opt.Selected {
			labels = append(labels, opt.Label)
		}
	}
	return labels
}

// Section groups elements under a tab of the item's template.
type Section struct {
	Label    string    `json:"label"`
	Name     string    `json:"name"`
	Elements []Element `json:"elements"`
}

// Item is one unit of content fetched from the source service.
type Item struct {
	ID         ID        `json:"id"`
	ProjectID  ID        `json:"project_id"`
	ParentID   ID        `json:"parent_id"`
	TemplateID ID        `json:"template_id"`
	Name       string    `json:"name"`
	Status     StatusRef `json:"status"`
	Sections   []Section `json:"config"`
}

// FileRef is one file record from the plugin API. Filename is the storage
// key in the remote file store; OriginalFilename is the name the file was
// uploaded under.
type FileRef struct {
	ID               ID     `json:"id"`
	ItemID           ID     `json:"page_id"`
	Field            string `json:"field"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	Size             int64  `json:"size"`
}
