package domain

import "fmt"

type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionActive    SessionStatus = "active"
	SessionFinalized SessionStatus = "finalized"
)

type TaskType string

const (
	TaskAllocation    TaskType = "allocation"
	TaskPunchIn       TaskType = "punch_in"
	TaskLandSearch    TaskType = "land_search"
	TaskStallSearch   TaskType = "stall_search"
	TaskMoneyRecovery TaskType = "money_recovery"
	TaskAssetsUsage   TaskType = "assets_usage"
	TaskFeedback      TaskType = "feedback"
	TaskInspection    TaskType = "inspection"
	TaskPunchOut      TaskType = "punch_out"
)

// AllTaskTypes lists every task type in workflow order. Progress and
// aggregate task counts are keyed over this set.
var AllTaskTypes = []TaskType{
	TaskAllocation,
	TaskPunchIn,
	TaskLandSearch,
	TaskStallSearch,
	TaskMoneyRecovery,
	TaskAssetsUsage,
	TaskFeedback,
	TaskInspection,
	TaskPunchOut,
}

// ParseTaskType validates s against the known task types.
func ParseTaskType(s string) (TaskType, error) {
	for _, t := range AllTaskTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", Validation("task_type", fmt.Sprintf("unknown task type %q", s))
}

// Singleton reports whether at most one record of this type may exist per session.
func (t TaskType) Singleton() bool {
	return t == TaskPunchIn || t == TaskPunchOut
}

// Mutable reports whether records of this type may be updated or deleted
// by their owner while the session is open.
func (t TaskType) Mutable() bool {
	return t == TaskFeedback
}

// SingletonTaskTypes returns the task types limited to one record per session.
func SingletonTaskTypes() []TaskType {
	var out []TaskType
	for _, t := range AllTaskTypes {
		if t.Singleton() {
			out = append(out, t)
		}
	}
	return out
}

// MutableTaskTypes returns the task types whose records may be edited.
func MutableTaskTypes() []TaskType {
	var out []TaskType
	for _, t := range AllTaskTypes {
		if t.Mutable() {
			out = append(out, t)
		}
	}
	return out
}

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleAdmin:
		return Role(s), nil
	}
	return "", Validation("role", fmt.Sprintf("unknown role %q", s))
}

// Action names a lifecycle step that may be bound to a time window.
type Action string

const (
	ActionPunchIn  Action = "punch_in"
	ActionFinalize Action = "finalize"
)
