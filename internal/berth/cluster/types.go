package cluster

import (
	"encoding/json"
	"strconv"
)

// Container is one container-like object as reported by the controller. The
// controller attaches fields we don't model, and the dashboard forwards them
// untouched, so the object stays a map with typed accessors for the two
// fields this system depends on.
type Container map[string]any

// StackName returns the stack this container belongs to.
func (c Container) StackName() string {
	s, _ := c["stack_name"].(string)
	return s
}

// Account returns the owning user's id as a string. The controller has
// stored this as both a JSON string and a number over time, so both are
// accepted.
func (c Container) Account() string {
	switch v := c["account"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Set attaches an extra field, e.g. the registry domain for the dashboard.
func (c Container) Set(key string, value any) {
	c[key] = value
}

// DeployRequest is the payload for POST /deploy/{template}.
type DeployRequest struct {
	StackName string `json:"stack_name"`
	Domain    string `json:"domain"`
	CPUs      string `json:"cpus"`
	RAM       string `json:"ram"`
	AccountID string `json:"account_id"`
}

// DeployResult is the success shape of POST /deploy/{template}.
type DeployResult struct {
	Stack string `json:"stack"`
}
