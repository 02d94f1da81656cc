// Package identity reads the reverse proxy's user header and gates edits.
package identity

import (
	"encoding/json"
	"fmt"
)

// CredentialsHeader carries {"user": ..., "groups": [...]} set by the
// hosting platform's proxy.
const CredentialsHeader = "Rstudio-Connect-Credentials"

// Anonymous is the user name used when no credentials are present.
const Anonymous = "anon"

// Identity is the caller as reported by the proxy.
type Identity struct {
	User   string   `json:"user"`
	Groups []string `json:"groups"`
}

// Anon returns the identity used for requests without credentials.
func Anon() Identity {
	return Identity{User: Anonymous}
}

// FromHeader parses the credentials header. An empty header yields Anon; a
// header that is not valid JSON is an error.
func FromHeader(value string) (Identity, error) {
	if value == "" {
		return Anon(), nil
	}
	var id Identity
	if err := json.Unmarshal([]byte(value), &id); err != nil {
		return Anon(), fmt.Errorf("parse %s header: %w", CredentialsHeader, err)
	}
	if id.User == "" {
		id.User = Anonymous
	}
	return id, nil
}

// InGroup reports group membership.
func (i Identity) InGroup(group string) bool {
	for _, g := range i.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// PermissionDenied is returned when a caller lacks the required group.
type PermissionDenied struct {
	User   string
	Action string
	Group  string
}

func (e *PermissionDenied) Error() string {
	return fmt.Sprintf("user %s may not %s (requires group %s)", e.User, e.Action, e.Group)
}

// Authorizer grants an action to members of Group. Development grants
// everything, matching DEVELOPMENT=TRUE deployments.
type Authorizer struct {
	Group       string
	Development bool
}

// Check returns PermissionDenied unless the identity may act.
func (a Authorizer) Check(id Identity, action string) error {
	if a.Development {
		return nil
	}
	if a.Group != "" && id.InGroup(a.Group) {
		return nil
	}
	return &PermissionDenied{User: id.User, Action: action, Group: a.Group}
}
