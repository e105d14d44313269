package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"clinic-agent/internal/chat"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/metrics"
	"clinic-agent/internal/roster"
	"clinic-agent/internal/store"
	"clinic-agent/internal/textnorm"
)

const (
	listLimit     = 20
	suggestLimit  = 5
	minMatchShare = 0.6
	minJaccard    = 0.3
	originAgent   = "agent"
)

// AssignQuestion is how the assistant asks for a missing assignee. The
// reply to it is recognized by AwaitingAssignment.
const AssignQuestion = "À qui devrais-je assigner cette tâche ?"

// Store is the part of the relational store the mutator writes through.
type Store interface {
	OpenTodos(ctx context.Context, limit int) ([]store.Todo, error)
	TodoByID(ctx context.Context, id string) (store.Todo, error)
	CreateTodo(ctx context.Context, in store.NewTodo) (store.Todo, error)
	LinkAssignee(ctx context.Context, todoID string, p roster.Person) error
	UpdateTodoStatus(ctx context.Context, id, status string) error
	UpdateTodoDescription(ctx context.Context, id, description string) error
	Roster(ctx context.Context) ([]roster.Person, error)
}

type Mutator struct {
	store    Store
	resolver *roster.Resolver
	log      zerolog.Logger
}

func NewMutator(s Store, resolver *roster.Resolver) *Mutator {
	if resolver == nil {
		resolver = roster.NewResolver(nil)
	}
	return &Mutator{store: s, resolver: resolver, log: logging.Component("tasks")}
}

// Handle lists, creates, updates or completes a todo from a chat message.
// Failures end up in Context.Error; Handle never fails the request.
func (m *Mutator) Handle(ctx context.Context, message string, history []chat.Turn) Context {
	out := Context{Action: VerbList}

	open, err := m.store.OpenTodos(ctx, listLimit)
	if err != nil {
		m.log.Warn().Err(err).Msg("open todos read failed")
		out.Error = "Impossible de lire les tâches en cours."
	}
	out.CurrentTasks = open

	if AwaitingAssignment(message, history) {
		out.Action = VerbCreate
		desc := previousCreateRequest(history)
		if desc == "" {
			out.Clarification = "Je ne retrouve pas la tâche à créer. Pouvez-vous la décrire à nouveau ?"
		} else {
			m.create(ctx, &out, desc, strings.Trim(strings.TrimSpace(message), ".!"))
		}
		return finish(out)
	}

	out.Action = DetectVerb(message)
	switch out.Action {
	case VerbCreate:
		desc := ExtractDescription(message)
		if desc == "" {
			out.Clarification = "Quelle tâche voulez-vous créer ?"
			break
		}
		m.create(ctx, &out, desc, ExtractAssigneeName(message))
	case VerbUpdate, VerbComplete:
		m.mutate(ctx, &out, message)
	}
	return finish(out)
}

func finish(c Context) Context {
	c.HasTaskContext = len(c.CurrentTasks) > 0 || c.TaskCreated != nil ||
		c.TaskUpdated != nil || c.PendingTaskCreation != nil
	return c
}

// create inserts the todo when name resolves to a roster person. Otherwise
// it leaves a pending creation carrying suggestions and writes nothing.
func (m *Mutator) create(ctx context.Context, out *Context, desc, name string) {
	people, err := m.store.Roster(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("roster read failed")
	}

	var (
		p  roster.Person
		ok bool
	)
	if name != "" {
		p, ok = m.resolver.Resolve(name, people)
	}
	if !ok {
		suggestions := m.resolver.Suggest(name, people, suggestLimit)
		if len(suggestions) == 0 {
			suggestions = m.resolver.Suggest("", people, suggestLimit)
		}
		out.PendingTaskCreation = &Pending{
			Description:          desc,
			WaitingForAssignment: true,
			RequestedName:        name,
			Suggestions:          suggestions,
		}
		m.log.Info().Str("requested", name).Int("suggestions", len(suggestions)).Msg("task waiting for assignee")
		return
	}

	t, err := m.store.CreateTodo(ctx, store.NewTodo{
		Description: desc,
		Status:      store.StatusConfirmed,
		AssignedTo:  p.ID,
	})
	if err != nil {
		m.log.Error().Err(err).Msg("create todo failed")
		out.Error = "La tâche n'a pas pu être créée."
		return
	}
	if err := m.store.LinkAssignee(ctx, t.ID, p); err != nil {
		m.log.Warn().Err(err).Str("todo_id", t.ID).Msg("assignee link failed")
	}
	t.AssigneeName = p.Name
	metrics.TasksCreated.WithLabelValues(originAgent).Inc()

	out.TaskCreated = &t
	out.Assignee = &p
	out.CurrentTasks = append([]store.Todo{t}, out.CurrentTasks...)
}

func (m *Mutator) mutate(ctx context.Context, out *Context, message string) {
	target, ok := m.findTarget(ctx, message, out.CurrentTasks)
	if !ok {
		out.Clarification = "Je n'ai pas trouvé la tâche concernée. Pouvez-vous préciser sa description ?"
		return
	}

	var err error
	switch {
	case out.Action == VerbUpdate && newDescription.MatchString(message):
		desc := MakeConcise(newDescription.FindStringSubmatch(message)[1])
		err = m.store.UpdateTodoDescription(ctx, target.ID, desc)
		target.Description = desc
	default:
		status := statusFromMessage(message)
		if status == "" && out.Action == VerbComplete {
			status = store.StatusCompleted
		}
		if status == "" {
			out.Clarification = "Que voulez-vous modifier sur cette tâche : la description ou le statut ?"
			return
		}
		err = m.store.UpdateTodoStatus(ctx, target.ID, status)
		target.Status = status
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		out.Clarification = "Cette tâche n'existe plus."
		return
	case err != nil:
		m.log.Error().Err(err).Str("todo_id", target.ID).Msg("update todo failed")
		out.Error = "La tâche n'a pas pu être mise à jour."
		return
	}

	out.TaskUpdated = &target
	out.CurrentTasks = replaceTodo(out.CurrentTasks, target)
}

// findTarget picks the todo a message refers to: an explicit id first, then
// the open todo whose description the message matches best.
func (m *Mutator) findTarget(ctx context.Context, message string, open []store.Todo) (store.Todo, bool) {
	if id := uuidPattern.FindString(message); id != "" {
		for _, t := range open {
			if strings.EqualFold(t.ID, id) {
				return t, true
			}
		}
		t, err := m.store.TodoByID(ctx, id)
		if err == nil {
			return t, true
		}
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn().Err(err).Str("todo_id", id).Msg("todo lookup failed")
		}
	}

	var (
		best  store.Todo
		score float64
	)
	for _, t := range open {
		share := matchScore(message, t.Description)
		jac := textnorm.Jaccard(message, t.Description)
		if share < minMatchShare && jac < minJaccard {
			continue
		}
		if s := share + jac; s > score {
			best, score = t, s
		}
	}
	return best, score > 0
}

// replaceTodo swaps in the updated todo and drops it once completed.
func replaceTodo(list []store.Todo, t store.Todo) []store.Todo {
	out := make([]store.Todo, 0, len(list))
	for _, x := range list {
		if x.ID != t.ID {
			out = append(out, x)
			continue
		}
		if t.Status != store.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}
