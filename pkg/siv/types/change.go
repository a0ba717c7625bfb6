package types

// Change is a (before, after) pair for one attribute.
type Change struct {
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// ChangeRecord describes the attributes that differ for a path present in
// both the baseline and the current manifest. A nil slot is unchanged.
type ChangeRecord struct {
	Path        string  `json:"path" yaml:"path"`
	Size        *Change `json:"size,omitempty" yaml:"size,omitempty"`
	Owner       *Change `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group       *Change `json:"group,omitempty" yaml:"group,omitempty"`
	Perm        *Change `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	ModTime     *Change `json:"modified,omitempty" yaml:"modified,omitempty"`
	Fingerprint *Change `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// Field is a named populated slot of a ChangeRecord.
type Field struct {
	Name   string
	Change Change
}

// Field names in report order.
const (
	FieldSize        = "size"
	FieldOwner       = "owner"
	FieldGroup       = "group"
	FieldPerm        = "permissions"
	FieldModTime     = "modified"
	FieldFingerprint = "fingerprint"
)

// Fields returns the populated slots in fixed order.
func (r ChangeRecord) Fields() []Field {
	slots := []struct {
		name string
		c    *Change
	}{
		{FieldSize, r.Size},
		{FieldOwner, r.Owner},
		{FieldGroup, r.Group},
		{FieldPerm, r.Perm},
		{FieldModTime, r.ModTime},
		{FieldFingerprint, r.Fingerprint},
	}

	var fields []Field
	for _, s := range slots {
		if s.c != nil {
			fields = append(fields, Field{Name: s.name, Change: *s.c})
		}
	}
	return fields
}

// Empty reports whether no slot is populated.
func (r ChangeRecord) Empty() bool {
	return r.Size == nil && r.Owner == nil && r.Group == nil &&
		r.Perm == nil && r.ModTime == nil && r.Fingerprint == nil
}
