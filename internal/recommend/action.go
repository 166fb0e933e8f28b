package recommend

import "encoding/json"

type ActionKind string

const (
	KindReorderTasks  ActionKind = "reorder_tasks"
	KindAddBreak      ActionKind = "add_break"
	KindSetMust       ActionKind = "set_must"
	KindPostponeTasks ActionKind = "postpone_tasks"
)

// Action is an operation a recommendation proposes. The set of actions is
// closed: only the types in this file implement it, and consumers switch on
// them exhaustively.
type Action interface {
	Kind() ActionKind
	isAction()
}

// ReorderTasks moves TaskIDs, in order, to the front of the queue.
type ReorderTasks struct {
	TaskIDs []string `json:"task_ids"`
}

type AddBreak struct {
	Minutes int `json:"minutes"`
}

type SetMust struct {
	TaskID string `json:"task_id"`
	Must   bool   `json:"must"`
}

// PostponeTasks pushes the due date of each task back by Days.
type PostponeTasks struct {
	TaskIDs []string `json:"task_ids"`
	Days    int      `json:"days"`
}

func (ReorderTasks) Kind() ActionKind  { return KindReorderTasks }
func (AddBreak) Kind() ActionKind      { return KindAddBreak }
func (SetMust) Kind() ActionKind       { return KindSetMust }
func (PostponeTasks) Kind() ActionKind { return KindPostponeTasks }

func (ReorderTasks) isAction()  {}
func (AddBreak) isAction()      {}
func (SetMust) isAction()       {}
func (PostponeTasks) isAction() {}

func (a ReorderTasks) MarshalJSON() ([]byte, error) {
	type plain ReorderTasks
	return json.Marshal(struct {
		Kind ActionKind `json:"kind"`
		plain
	}{a.Kind(), plain(a)})
}

func (a AddBreak) MarshalJSON() ([]byte, error) {
	type plain AddBreak
	return json.Marshal(struct {
		Kind ActionKind `json:"kind"`
		plain
	}{a.Kind(), plain(a)})
}

func (a SetMust) MarshalJSON() ([]byte, error) {
	type plain SetMust
	return json.Marshal(struct {
		Kind ActionKind `json:"kind"`
		plain
	}{a.Kind(), plain(a)})
}

func (a PostponeTasks) MarshalJSON() ([]byte, error) {
	type plain PostponeTasks
	return json.Marshal(struct {
		Kind ActionKind `json:"kind"`
		plain
	}{a.Kind(), plain(a)})
}
