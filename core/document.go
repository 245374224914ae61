package core

// Document is a schemaless domain aggregate (school, lesson, question job)
// routed through the storage layer untouched. The layer only ever reads the
// "id" key; everything else belongs to the UI. Saves are last-write-wins on
// the whole document.
type Document map[string]interface{}

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

func (d Document) SetID(id string) {
	d["id"] = id
}
