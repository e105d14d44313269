// Package action defines the structured actions the assistant may propose to
// the client, and parses them out of model output.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"clinic-agent/internal/jsonx"
)

type Type string

const (
	TypeCreateTask      Type = "create_task"
	TypeUpdateTask      Type = "update_task"
	TypeCompleteTask    Type = "complete_task"
	TypeAddMeetingPoint Type = "add_meeting_point"
)

var (
	ErrUnknownType = errors.New("unknown action type")
	ErrInvalid     = errors.New("invalid action")
)

// Action is one variant of the tagged union. The JSON form always carries a
// "type" discriminator.
type Action interface {
	Type() Type
	validate() error
}

type CreateTask struct {
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

type UpdateTask struct {
	TaskID      string `json:"task_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

type CompleteTask struct {
	TaskID      string `json:"task_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type AddMeetingPoint struct {
	Description string `json:"description"`
	MeetingID   string `json:"meeting_id,omitempty"`
}

func (CreateTask) Type() Type      { return TypeCreateTask }
func (UpdateTask) Type() Type      { return TypeUpdateTask }
func (CompleteTask) Type() Type    { return TypeCompleteTask }
func (AddMeetingPoint) Type() Type { return TypeAddMeetingPoint }

func (a CreateTask) validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("%w: create_task needs a description", ErrInvalid)
	}
	return nil
}

func (a UpdateTask) validate() error {
	if a.TaskID == "" && strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("%w: update_task needs task_id or description", ErrInvalid)
	}
	switch a.Status {
	case "", "pending", "confirmed", "completed":
		return nil
	}
	return fmt.Errorf("%w: update_task status %q", ErrInvalid, a.Status)
}

func (a CompleteTask) validate() error {
	if a.TaskID == "" && strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("%w: complete_task needs task_id or description", ErrInvalid)
	}
	return nil
}

func (a AddMeetingPoint) validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("%w: add_meeting_point needs a description", ErrInvalid)
	}
	return nil
}

func (a CreateTask) MarshalJSON() ([]byte, error) {
	type plain CreateTask
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{a.Type(), plain(a)})
}

func (a UpdateTask) MarshalJSON() ([]byte, error) {
	type plain UpdateTask
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{a.Type(), plain(a)})
}

func (a CompleteTask) MarshalJSON() ([]byte, error) {
	type plain CompleteTask
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{a.Type(), plain(a)})
}

func (a AddMeetingPoint) MarshalJSON() ([]byte, error) {
	type plain AddMeetingPoint
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{a.Type(), plain(a)})
}

// Decode reads one action object, dispatching on its "type" field.
func Decode(raw string) (Action, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalid)
	}
	t := Type(gjson.Get(raw, "type").String())

	var (
		a   Action
		err error
	)
	switch t {
	case TypeCreateTask:
		a, err = decodeAs[CreateTask](raw)
	case TypeUpdateTask:
		a, err = decodeAs[UpdateTask](raw)
	case TypeCompleteTask:
		a, err = decodeAs[CompleteTask](raw)
	case TypeAddMeetingPoint:
		a, err = decodeAs[AddMeetingPoint](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeAs[T Action](raw string) (Action, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Extract removes the {"actions": [...]} block from model output and decodes
// it. Invalid entries are dropped and reported in the returned error; the
// valid ones are still returned.
func Extract(text string) (string, []Action, error) {
	raw, clean, ok := cutBlock(text)
	if !ok {
		return strings.TrimSpace(text), nil, nil
	}

	var (
		out  []Action
		errs []error
	)
	gjson.Get(raw, "actions").ForEach(func(_, el gjson.Result) bool {
		a, err := Decode(el.Raw)
		if err != nil {
			errs = append(errs, err)
			return true
		}
		out = append(out, a)
		return true
	})
	return clean, out, errors.Join(errs...)
}

func cutBlock(text string) (raw, clean string, ok bool) {
	for _, m := range fenced.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		if gjson.Valid(body) && gjson.Get(body, "actions").IsArray() {
			return body, strings.TrimSpace(text[:m[0]] + text[m[1]:]), true
		}
	}
	obj, span, found := jsonx.FindObjectWithKey(text, "actions")
	if !found || !gjson.Get(obj, "actions").IsArray() {
		return "", "", false
	}
	return obj, strings.TrimSpace(text[:span.Start] + text[span.End:]), true
}
