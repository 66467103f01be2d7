package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies a class of configuration or planning failure. Callers
// switch on it to pick a remediation message.
type ErrorKind string

const (
	KindMalformedFieldDefinition  ErrorKind = "MalformedFieldDefinition"
	KindConstraintTypeMismatch    ErrorKind = "ConstraintTypeMismatch"
	KindMissingConfigFile         ErrorKind = "MissingConfigFile"
	KindDuplicateServiceName      ErrorKind = "DuplicateServiceName"
	KindUnreadableConfig          ErrorKind = "UnreadableConfig"
	KindDuplicateTableName        ErrorKind = "DuplicateTableName"
	KindMissingPrimaryKey         ErrorKind = "MissingPrimaryKey"
	KindInvalidIdentifier         ErrorKind = "InvalidIdentifier"
	KindDanglingRelation          ErrorKind = "DanglingRelation"
	KindIncompatibleReferenceType ErrorKind = "IncompatibleReferenceType"
	KindInvalidPermissionString   ErrorKind = "InvalidPermissionString"
	KindUnconfirmedBreakingChange ErrorKind = "UnconfirmedBreakingChange"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrMalformedFieldDefinition  = &Error{Kind: KindMalformedFieldDefinition}
	ErrConstraintTypeMismatch    = &Error{Kind: KindConstraintTypeMismatch}
	ErrMissingConfigFile         = &Error{Kind: KindMissingConfigFile}
	ErrDuplicateServiceName      = &Error{Kind: KindDuplicateServiceName}
	ErrUnreadableConfig          = &Error{Kind: KindUnreadableConfig}
	ErrDuplicateTableName        = &Error{Kind: KindDuplicateTableName}
	ErrMissingPrimaryKey         = &Error{Kind: KindMissingPrimaryKey}
	ErrInvalidIdentifier         = &Error{Kind: KindInvalidIdentifier}
	ErrDanglingRelation          = &Error{Kind: KindDanglingRelation}
	ErrIncompatibleReferenceType = &Error{Kind: KindIncompatibleReferenceType}
	ErrInvalidPermissionString   = &Error{Kind: KindInvalidPermissionString}
	ErrUnconfirmedBreakingChange = &Error{Kind: KindUnconfirmedBreakingChange}
)

// Error represents a single structured engine error.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Location string    `json:"location,omitempty"`
	Message  string    `json:"message"`
}

// Errorf builds an Error with a formatted message.
func Errorf(kind ErrorKind, location, format string, args ...any) *Error {
	return &Error{Kind: kind, Location: location, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another *Error of the same kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ErrorList is an ordered, non-empty list of errors reported together.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(l))
	for _, e := range l {
		sb.WriteString("\n  - ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap exposes every element to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// Kinds returns the kind of every element in order.
func (l ErrorList) Kinds() []ErrorKind {
	out := make([]ErrorKind, len(l))
	for i, e := range l {
		out[i] = e.Kind
	}
	return out
}

// OfKind returns the elements with the given kind.
func (l ErrorList) OfKind(kind ErrorKind) ErrorList {
	var out ErrorList
	for _, e := range l {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Err returns nil for an empty list, so a collector can be returned directly.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// AsList flattens err into an ErrorList. A plain error becomes nil.
func AsList(err error) ErrorList {
	var list ErrorList
	if errors.As(err, &list) {
		return list
	}
	var single *Error
	if errors.As(err, &single) {
		return ErrorList{single}
	}
	return nil
}
