package importer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/contentforge/gathersync/internal/config"
	"github.com/contentforge/gathersync/internal/gather"
	"github.com/contentforge/gathersync/internal/mapping"
	"github.com/contentforge/gathersync/internal/pipeline"
	"github.com/contentforge/gathersync/pkg/store"
)

// processItem imports one item under the class mapping of its template.
func (imp *Importer) processItem(ctx context.Context, item *gather.Item, templateName string, statusNames map[gather.ID]string) {
	log := imp.logger.With("item", item.ID, "name", item.Name, "template", templateName)

	statusName := statusNames[item.Status.Data.ID]
	if statusName == "" {
		statusName = item.Status.Data.Name
	}
	statusClass := imp.cfg.StatusSets.Classify(statusName)
	if statusClass == config.StatusSkip {
		log.Debug("skipping item by status", "status", statusName)
		imp.report.SkippedStatus++
		return
	}

	cm, ok := imp.cfg.Spec.Resolve(templateName)
	if !ok {
		log.Debug("no mapping for template")
		imp.report.Unmapped++
		return
	}
	schema, ok := imp.cfg.Schemas.Class(cm.Class)
	if !ok {
		log.Error("no schema for mapped class", "class", cm.Class)
		imp.report.Failed++
		return
	}

	existing, err := imp.store.FindByField(ctx, cm.Class, imp.cfg.UniqueIDField, string(item.ID))
	if err != nil {
		log.Error("failed to look up existing item", "error", err)
		imp.report.Failed++
		return
	}

	var obj *store.Object
	updating := false
	switch {
	case existing == nil:
		obj = imp.store.Create(cm.Class)
	case imp.cfg.ExistingItems == config.PolicySkip:
		log.Debug("skipping previously imported item")
		imp.report.SkippedPolicy++
		return
	case imp.cfg.ExistingItems == config.PolicyUpdate:
		obj = existing
		updating = true
	case imp.cfg.ExistingItems == config.PolicyReplace:
		if err := imp.store.Delete(ctx, existing); err != nil {
			log.Error("failed to delete existing item", "error", err)
			imp.report.Failed++
			return
		}
		obj = imp.store.Create(cm.Class)
	default:
		obj = imp.store.Create(cm.Class)
	}

	if _, has := schema.Kind(imp.cfg.UniqueIDField); has {
		obj.SetField(imp.cfg.UniqueIDField, string(item.ID))
	}
	// parent_id 0 means a top-level item.
	if _, has := schema.Kind(imp.cfg.ParentIDField); has && item.ParentID != "" && item.ParentID != "0" {
		obj.SetField(imp.cfg.ParentIDField, string(item.ParentID))
	}
	if _, has := schema.Kind("Title"); has && item.Name != "" {
		obj.SetField("Title", item.Name)
	}

	var itemFiles []gather.FileRef
	filesLoaded := false
	loadFiles := func() []gather.FileRef {
		if filesLoaded {
			return itemFiles
		}
		filesLoaded = true
		refs, err := imp.source.FilesByItem(ctx, item.ID)
		if err != nil {
			log.Warn("failed to fetch item files", "error", err)
			return nil
		}
		itemFiles = refs
		return itemFiles
	}

	for _, section := range item.Sections {
		for _, el := range section.Elements {
			if el.Type == gather.ElementSection {
				continue
			}
			label := strings.TrimSpace(el.Label)
			if cm.Skipped(label) {
				continue
			}
			fm, mapped := cm.Mapping(label)

			field := imp.fieldName(label, cm, fm, mapped)
			if field == "" {
				continue
			}
			kind, known := schema.Kind(field)
			if !known {
				log.Debug("ignoring unmapped field", "label", label, "field", field)
				continue
			}

			if el.Type == gather.ElementFiles {
				imp.attachFiles(ctx, obj, field, kind, el.Name, loadFiles(), updating, log)
				continue
			}

			value := elementValue(&el)
			value = pipeline.Apply(imp.cfg.Generic.Value, value)
			value = pipeline.Apply(cm.Processors.Value, value)
			if mapped {
				value = pipeline.Apply(fm.Processors.Value, value)
			}
			value = translate(value, fm.Translations, imp.cfg.Translations)
			if pipeline.IsEmpty(value) {
				continue
			}

			switch kind {
			case store.KindScalar, store.KindEnum:
				obj.SetField(field, flatten(value))
			case store.KindSingleRef:
				imp.linkSingle(ctx, obj, field, schema.RefTarget(field), fm.Lookup, firstValue(value), log)
			case store.KindMultiRef:
				for _, v := range valueList(value) {
					imp.linkMulti(ctx, obj, field, schema.RefTarget(field), fm.Lookup, v, updating, log)
				}
			}
		}
	}

	if cm.Parent != nil && schema.Hierarchical {
		parentID, err := imp.resolveParent(ctx, cm.Parent)
		if err != nil {
			log.Error("failed to resolve parent", "error", err)
			imp.report.Failed++
			return
		}
		obj.ParentID = parentID
	}

	if err := imp.store.Write(ctx, obj); err != nil {
		log.Error("failed to write item", "error", err)
		imp.report.Failed++
		return
	}

	if statusClass == config.StatusPublish && imp.cfg.AllowPublish && schema.Publishable {
		if err := imp.store.Publish(ctx, obj); err != nil {
			log.Error("failed to publish item", "error", err)
			imp.report.Failed++
			return
		}
		imp.report.Published++
	}

	switch {
	case existing == nil:
		imp.report.Created++
	case imp.cfg.ExistingItems == config.PolicyUpdate:
		imp.report.Updated++
	case imp.cfg.ExistingItems == config.PolicyReplace:
		imp.report.Replaced++
	default:
		imp.report.Created++
	}
	log.Info("imported item", "class", cm.Class, "object", obj.ID)
}

// fieldName resolves the target field for a source label. Exact mappings
// bypass every name pipeline; otherwise the generic, class and field name
// pipelines run in that order.
func (imp *Importer) fieldName(label string, cm *mapping.ClassMapping, fm mapping.FieldMapping, mapped bool) string {
	if mapped && fm.Exact {
		return fm.Target
	}
	name := pipeline.ApplyString(imp.cfg.Generic.Field, label)
	name = pipeline.ApplyString(cm.Processors.Field, name)
	if mapped {
		name = pipeline.ApplyString(fm.Processors.Field, name)
	}
	return name
}

// linkSingle resolves one related object and links it, creating it when
// the lookup spec allows.
func (imp *Importer) linkSingle(ctx context.Context, obj *store.Object, field, relClass string, lookup mapping.LookupSpec, value string, log *slog.Logger) {
	if value == "" || relClass == "" {
		return
	}
	rel, err := imp.lookupOrCreate(ctx, relClass, lookup, value)
	if err != nil {
		log.Warn("failed to resolve relation", "field", field, "value", value, "error", err)
		return
	}
	if rel != nil {
		obj.LinkSingle(field, rel.ID)
	}
}

// linkMulti adds one related object to a multi-reference. In update mode
// an already linked relation is left alone rather than duplicated.
func (imp *Importer) linkMulti(ctx context.Context, obj *store.Object, field, relClass string, lookup mapping.LookupSpec, value string, updating bool, log *slog.Logger) {
	if value == "" || relClass == "" {
		return
	}
	rel, err := imp.lookupOrCreate(ctx, relClass, lookup, value)
	if err != nil {
		log.Warn("failed to resolve relation", "field", field, "value", value, "error", err)
		return
	}
	if rel == nil {
		return
	}
	if updating && obj.HasMulti(field, rel.ID) {
		return
	}
	obj.AddMulti(field, rel.ID)
}

// lookupOrCreate finds a related object by the lookup field, optionally
// creating and writing it when absent. A miss without create returns
// (nil, nil).
func (imp *Importer) lookupOrCreate(ctx context.Context, class string, lookup mapping.LookupSpec, value string) (*store.Object, error) {
	field := lookup.Field
	if field == "" {
		field = mapping.DefaultLookupField
	}
	rel, err := imp.store.FindByField(ctx, class, field, value)
	if err != nil {
		return nil, err
	}
	if rel != nil || !lookup.Create {
		return rel, nil
	}
	rel = imp.store.Create(class)
	rel.SetField(field, value)
	if err := imp.store.Write(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// attachFiles links the file objects of one element. File objects are
// keyed by the source file ID, so a re-run links the existing record
// instead of duplicating it.
func (imp *Importer) attachFiles(ctx context.Context, obj *store.Object, field string, kind store.FieldKind, elementName string, refs []gather.FileRef, updating bool, log *slog.Logger) {
	for _, ref := range refs {
		if ref.Field != elementName {
			continue
		}
		fileObj, err := imp.importFile(ctx, &ref)
		if err != nil {
			log.Warn("failed to import file", "file", ref.OriginalFilename, "error", err)
			continue
		}
		if fileObj == nil {
			continue
		}
		switch kind {
		case store.KindSingleRef:
			obj.LinkSingle(field, fileObj.ID)
			return
		case store.KindMultiRef:
			if updating && obj.HasMulti(field, fileObj.ID) {
				continue
			}
			obj.AddMulti(field, fileObj.ID)
		}
	}
}

// importFile returns the file object for one source file record. An
// already indexed file is returned as is; an unknown file is downloaded
// and written, but only when downloading is enabled. Returns (nil, nil)
// for an unknown file with downloading off.
func (imp *Importer) importFile(ctx context.Context, ref *gather.FileRef) (*store.Object, error) {
	fileObj, err := imp.store.FindByField(ctx, imp.cfg.FileClass, imp.cfg.UniqueIDField, string(ref.ID))
	if err != nil {
		return nil, err
	}
	if fileObj != nil {
		return fileObj, nil
	}
	if imp.fetch == nil {
		return nil, nil
	}

	path, err := imp.fetch.Download(ctx, ref.Filename, ref.OriginalFilename)
	if err != nil {
		return nil, err
	}
	imp.report.FilesDownloaded++

	fileObj = imp.store.Create(imp.cfg.FileClass)
	fileObj.SetField(imp.cfg.UniqueIDField, string(ref.ID))
	fileObj.SetField("Title", ref.OriginalFilename)
	fileObj.SetField("Filename", path)
	if err := imp.store.Write(ctx, fileObj); err != nil {
		return nil, err
	}
	return fileObj, nil
}

// resolveParent finds or creates the configured parent object and returns
// its ID.
func (imp *Importer) resolveParent(ctx context.Context, spec *mapping.ParentSpec) (string, error) {
	parent, err := imp.store.FindByField(ctx, spec.Class, "Title", spec.Title)
	if err != nil {
		return "", err
	}
	if parent != nil {
		return parent.ID, nil
	}
	parent = imp.store.Create(spec.Class)
	parent.SetField("Title", spec.Title)
	if err := imp.store.Write(ctx, parent); err != nil {
		return "", err
	}
	if imp.cfg.AllowPublish {
		if schema, ok := imp.cfg.Schemas.Class(spec.Class); ok && schema.Publishable {
			if err := imp.store.Publish(ctx, parent); err != nil {
				return "", err
			}
		}
	}
	return parent.ID, nil
}

// elementValue extracts the raw pipeline value of a content element.
func elementValue(el *gather.Element) pipeline.Value {
	switch el.Type {
	case gather.ElementText:
		return el.Value
	case gather.ElementChoiceRadio:
		labels := el.SelectedLabels()
		if len(labels) == 0 {
			return ""
		}
		return labels[0]
	case gather.ElementChoiceCheckbox:
		labels := el.SelectedLabels()
		if labels == nil {
			return []string{}
		}
		return labels
	}
	return nil
}

// translate maps values through the field-level table first, then the
// global one. Untranslated values pass through.
func translate(v pipeline.Value, local, global map[string]string) pipeline.Value {
	one := func(s string) string {
		if out, ok := local[s]; ok {
			return out
		}
		if out, ok := global[s]; ok {
			return out
		}
		return s
	}
	switch val := v.(type) {
	case string:
		return one(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = one(s)
		}
		return out
	}
	return v
}

// flatten renders a pipeline value as a single stored string.
func flatten(v pipeline.Value) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "\n")
	}
	return ""
}

// firstValue returns the single string of a value, taking the head of a
// list.
func firstValue(v pipeline.Value) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// valueList returns a value as a list of strings.
func valueList(v pipeline.Value) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	}
	return nil
}
