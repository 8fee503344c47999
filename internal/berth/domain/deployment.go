package domain

import "time"

// Deployment records a stack deployed to the cluster and the domain minted
// for it. Stack name and domain are each globally unique; records are never
// mutated after creation.
type Deployment struct {
	ID        string
	StackName string
	Domain    string
	UserID    string
	CreatedAt time.Time
}

// RootDomain is an admin-approved base domain users may deploy under.
// Deployments reference it by name only, never by key.
type RootDomain struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
