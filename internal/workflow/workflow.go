// Package workflow implements the ordered status-name lists that constrain
// task statuses. Operations are pure; persistence and the in-use checks
// live in the project service.
package workflow

import "fmt"

// Directions accepted by Reorder.
const (
	DirUp   = "up"
	DirDown = "down"
)

// Default is the workflow applied to tasks whose project has none configured.
func Default() []string {
	return []string{"todo", "in-progress", "review", "done"}
}

// Contains does a case-sensitive membership check.
func Contains(steps []string, name string) bool {
	for _, s := range steps {
		if s == name {
			return true
		}
	}
	return false
}

// Terminal returns the last step, the status that counts as "done" for
// overdue and progress calculations. Empty list returns "".
func Terminal(steps []string) string {
	if len(steps) == 0 {
		return ""
	}
	return steps[len(steps)-1]
}

func Add(steps []string, name string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("40001:步骤名称不能为空")
	}
	if Contains(steps, name) {
		return nil, fmt.Errorf("40005:步骤名称已存在")
	}
	out := make([]string, 0, len(steps)+1)
	out = append(out, steps...)
	return append(out, name), nil
}

func Remove(steps []string, name string) ([]string, error) {
	if !Contains(steps, name) {
		return nil, fmt.Errorf("40406:工作流步骤不存在")
	}
	if len(steps) == 1 {
		return nil, fmt.Errorf("40002:不能删除最后一个步骤")
	}
	out := make([]string, 0, len(steps)-1)
	for _, s := range steps {
		if s != name {
			out = append(out, s)
		}
	}
	return out, nil
}

// Reorder swaps the named step with its neighbor in the given direction.
// At either boundary the list is returned unchanged.
func Reorder(steps []string, name, direction string) ([]string, error) {
	if direction != DirUp && direction != DirDown {
		return nil, fmt.Errorf("40001:direction 必须是 up 或 down")
	}
	idx := -1
	for i, s := range steps {
		if s == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("40406:工作流步骤不存在")
	}
	out := make([]string, len(steps))
	copy(out, steps)
	switch direction {
	case DirUp:
		if idx > 0 {
			out[idx-1], out[idx] = out[idx], out[idx-1]
		}
	case DirDown:
		if idx < len(out)-1 {
			out[idx], out[idx+1] = out[idx+1], out[idx]
		}
	}
	return out, nil
}

// Replace validates a full replacement list: non-empty, no empty names,
// no duplicates (case-sensitive).
func Replace(steps []string) ([]string, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("40001:工作流不能为空")
	}
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s == "" {
			return nil, fmt.Errorf("40001:步骤名称不能为空")
		}
		if seen[s] {
			return nil, fmt.Errorf("40005:步骤名称重复: %s", s)
		}
		seen[s] = true
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out, nil
}
