package entity

// Kind is the resource kind an entity was read from.
type Kind string

const (
	// KindZone is a DNS zone managed by the service.
	KindZone Kind = "zone"

	// KindRecord is a resource record set belonging to a zone.
	KindRecord Kind = "record"
)

// Field names shared by zones and records.
const (
	FieldName    = "name"
	FieldType    = "type"
	FieldStatus  = "status"
	FieldOwner   = "owner"
	FieldAccount = "account"
	FieldRecords = "records"
	FieldDNSSEC  = "dnssec"
	FieldUpdated = "modified"
	FieldZone    = "zone"
	FieldTTL     = "ttl"
	FieldRData   = "rdata"
)

var schemas = map[Kind][]string{
	KindZone:   {FieldName, FieldType, FieldStatus, FieldOwner, FieldAccount, FieldRecords, FieldDNSSEC, FieldUpdated},
	KindRecord: {FieldZone, FieldOwner, FieldName, FieldType, FieldTTL, FieldRData},
}

// Fields returns the ordered field names entities of this kind carry.
func (k Kind) Fields() []string {
	fields := schemas[k]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// Plural returns the collection name used in messages ("zones", "records").
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Field is one named value of an entity.
type Field struct {
	Name  string
	Value string
}

// Entity is a zone or record normalized away from its wire representation.
// Entities are read-only once created.
type Entity struct {
	Kind   Kind
	Fields []Field
}

// New builds an entity of the given kind. values is keyed by field name;
// fields missing from values are present with an empty value so every
// entity of a kind has the same shape.
func New(kind Kind, values map[string]string) Entity {
	names := schemas[kind]
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field{Name: name, Value: values[name]})
	}
	return Entity{Kind: kind, Fields: fields}
}

// Get returns the value of the named field and whether the entity has it.
func (e Entity) Get(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the named field, or "" when absent.
func (e Entity) Value(name string) string {
	v, _ := e.Get(name)
	return v
}

// Names returns the entity's field names in order.
func (e Entity) Names() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the entity's field values in the order of Names.
func (e Entity) Values() []string {
	values := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		values[i] = f.Value
	}
	return values
}
