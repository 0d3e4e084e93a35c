package domain

// Action is the persistence operation being intercepted.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionUpsert     Action = "upsert"
	ActionCreateMany Action = "createMany"
	ActionFindUnique Action = "findUnique"
	ActionFindFirst  Action = "findFirst"
	ActionFindMany   Action = "findMany"
)

// IsWrite reports whether the action carries field values to be stored.
func (a Action) IsWrite() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionUpsert, ActionCreateMany:
		return true
	}
	return false
}

// ReturnsRecords reports whether the action's result holds records to decrypt.
// createMany only returns a count.
func (a Action) ReturnsRecords() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionUpsert, ActionFindUnique, ActionFindFirst, ActionFindMany:
		return true
	}
	return false
}

// Params is the intercepted persistence call. Maps are keyed by column name and
// are modified in place by the hook.
type Params struct {
	Model    string
	Action   Action
	Data     map[string]any
	DataMany []map[string]any
	Where    map[string]any
	Create   map[string]any
	Update   map[string]any
}
