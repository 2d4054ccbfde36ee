package store

// Object is one content entity held in the store. Mutators only change the
// in-memory copy; nothing is persisted until Store.Write.
type Object struct {
	ID       string
	Class    string
	ParentID string

	// Fields holds scalar and enum values by field name.
	Fields map[string]string

	// SingleRefs maps a reference field to the related object's ID.
	SingleRefs map[string]string

	// MultiRefs maps a collection field to the ordered related object IDs.
	MultiRefs map[string][]string
}

// NewObject returns an empty object of the given class and ID.
func NewObject(class, id string) *Object {
	return &Object{
		ID:         id,
		Class:      class,
		Fields:     make(map[string]string),
		SingleRefs: make(map[string]string),
		MultiRefs:  make(map[string][]string),
	}
}

// SetField sets a scalar field value.
func (o *Object) SetField(field, value string) {
	o.Fields[field] = value
}

// Field returns the scalar field value, or "" when unset.
func (o *Object) Field(field string) string {
	return o.Fields[field]
}

// LinkSingle points a single-reference field at the related object.
func (o *Object) LinkSingle(field, relatedID string) {
	o.SingleRefs[field] = relatedID
}

// AddMulti appends the related object to a multi-reference collection.
// Callers are expected to check HasMulti first when duplicates matter.
func (o *Object) AddMulti(field, relatedID string) {
	o.MultiRefs[field] = append(o.MultiRefs[field], relatedID)
}

// HasMulti reports whether the related object is already a member of the
// multi-reference collection.
func (o *Object) HasMulti(field, relatedID string) bool {
	for _, id := range o.MultiRefs[field] {
		if id == relatedID {
			return true
		}
	}
	return false
}
