// Package script defines the script data model shared by the remote client,
// the edit session, and the local cache.
package script

import (
	"fmt"
	"strings"
)

// Language identifies the query language a script is written in.
type Language string

const (
	LangFlux   Language = "flux"
	LangPython Language = "python"
)

// ParseLanguage validates a user-supplied language string.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangFlux:
		return LangFlux, nil
	case LangPython:
		return LangPython, nil
	default:
		return "", fmt.Errorf("unknown script language %q (expected flux or python)", s)
	}
}

// Ext returns the file extension used when the script is materialized on disk.
func (l Language) Ext() string {
	if l == LangPython {
		return ".py"
	}
	return ".flux"
}

// Valid reports whether the language is one of the supported values.
func (l Language) Valid() bool {
	return l == LangFlux || l == LangPython
}

// Script is a named, versioned snippet of query code owned by the remote
// service. ID is assigned by the service and is empty for scripts that have
// not been created yet.
type Script struct {
	ID          string   `json:"id,omitempty"`
	OrgID       string   `json:"orgID,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    Language `json:"language"`
	Script      string   `json:"script"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Filename returns the basename the script is given inside a scratch
// directory, e.g. "myScript.flux".
func (s Script) Filename() string {
	return s.Name + s.Language.Ext()
}
