package lifecycle

import "github.com/harrisonrobin/tasklink/pkg/model"

// Initial is the only status a task may be created in.
const Initial = model.StatusNew

// Transitions is the task state machine. A status missing from the table, or
// mapped to an empty set, is terminal. Self-transitions are not listed and
// therefore rejected.
var Transitions = map[model.Status]map[model.Status]struct{}{
	model.StatusNew: {
		model.StatusInProgress: {},
		model.StatusBlocked:    {},
	},
	model.StatusInProgress: {
		model.StatusDone:    {},
		model.StatusBlocked: {},
	},
	model.StatusBlocked: {
		model.StatusInProgress: {},
	},
	model.StatusDone: {},
}

func CanTransition(from, to model.Status) bool {
	next, ok := Transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.Status) bool {
	return len(Transitions[s]) == 0
}

// CheckInitial validates the status a new task is created with; empty means
// Initial.
func CheckInitial(s model.Status) error {
	if s == "" || s == Initial {
		return nil
	}
	if !s.Valid() {
		return model.Validationf("status", "unknown status %q", s)
	}
	return model.Validationf("status", "tasks are created as %q, got %q", Initial, s)
}

// Path returns the shortest sequence of statuses leading from from to to,
// excluding from itself. It reports false when to is unreachable. A task
// already in to needs no steps.
func Path(from, to model.Status) ([]model.Status, bool) {
	if from == to {
		return nil, true
	}
	prev := map[model.Status]model.Status{from: from}
	queue := []model.Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		// Walk model.Statuses rather than the map so the result is stable.
		for _, next := range model.Statuses {
			if _, seen := prev[next]; seen || !CanTransition(cur, next) {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []model.Status
				for s := to; s != from; s = prev[s] {
					path = append([]model.Status{s}, path...)
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
