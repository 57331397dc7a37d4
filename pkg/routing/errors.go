package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotAssigned is returned when resolution finds no usable conversation
// id for a channel or thread. Callers must treat this as a hard stop and
// never dispatch a request with a blank conversation id.
var ErrNotAssigned = errors.New("no memory assigned")

// ErrInvalidConversationID is returned when a conversation id is empty
// (or empty once stray quoting is trimmed) at write time.
var ErrInvalidConversationID = errors.New("invalid conversation id")

// ErrReservedMemory is returned when deleting one of the built-in memory
// slots every initialized category must keep.
var ErrReservedMemory = errors.New("cannot delete a reserved memory slot")

// MemoryNotFoundError reports a memory slot name that is not defined in
// the category, along with the slots that are, so the caller can present
// the options to the user.
type MemoryNotFoundError struct {
	Name      string
	Available []string
}

func (e *MemoryNotFoundError) Error() string {
	avail := append([]string(nil), e.Available...)
	sort.Strings(avail)
	if len(avail) == 0 {
		return fmt.Sprintf("memory %q not found (no memories defined)", e.Name)
	}
	return fmt.Sprintf("memory %q not found (available: %s)", e.Name, strings.Join(avail, ", "))
}

// UnknownCategoryError reports an operation against a category id with no
// record in the document.
type UnknownCategoryError struct {
	ID string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.ID)
}

// UnknownChannelError reports an operation against a channel id with no
// record under its category.
type UnknownChannelError struct {
	CategoryID string
	ID         string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %q in category %q", e.ID, e.CategoryID)
}
