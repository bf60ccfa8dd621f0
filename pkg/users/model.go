package users

import (
	"strings"

	"golang.org/x/mod/semver"
)

// CustomModelSince is the first user schema version that allows a custom
// user model. Older schemas always use Legacy.
const CustomModelSince = "v1.5.0"

// Model describes the table that holds users and its identifying columns.
type Model struct {
	Table         string
	UsernameField string
	EmailField    string
}

// Legacy is the built-in user model.
var Legacy = Model{Table: "users", UsernameField: "username", EmailField: "email"}

// Resolver picks the active user model for a schema version.
type Resolver struct {
	SchemaVersion string
	Custom        *Model
}

// NewResolver builds a Resolver. An empty custom table keeps the legacy model.
func NewResolver(schemaVersion, table, usernameField string) Resolver {
	r := Resolver{SchemaVersion: schemaVersion}
	if table != "" {
		m := Model{Table: table, UsernameField: usernameField, EmailField: Legacy.EmailField}
		if m.UsernameField == "" {
			m.UsernameField = Legacy.UsernameField
		}
		r.Custom = &m
	}
	return r
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func (r Resolver) supportsCustom() bool {
	v := canonical(r.SchemaVersion)
	return semver.IsValid(v) && semver.Compare(v, CustomModelSince) >= 0
}

// Model returns the active user model.
func (r Resolver) Model() Model {
	if r.Custom != nil && r.supportsCustom() {
		return *r.Custom
	}
	return Legacy
}

// UsernameField returns the identifying field of the active user model.
func (r Resolver) UsernameField() string {
	if !r.supportsCustom() {
		return Legacy.UsernameField
	}
	return r.Model().UsernameField
}
