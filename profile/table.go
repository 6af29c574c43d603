package profile

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// NewTable creates a new instance of a *Table with the specified
// initial context.
func NewTable(initialContext string) *Table {
	return &Table{
		currentContext:    initialContext,
		contextToProfiles: make(map[string]Profile),
	}
}

// Builtin returns a Table containing the built-in profiles with
// CSGOClient selected.
func Builtin() *Table {
	return NewTable(CSGOClient).
		Add(CSGOClientProfile())
}

// Table organizes profiles by context. A context is usually the
// name of the target binary, or of a particular build of it.
//
// Switching targets only requires selecting a different context.
type Table struct {
	currentContext    string
	contextToProfiles map[string]Profile
}

// SetContext sets the current context to the specified value.
func (o *Table) SetContext(context string) *Table {
	o.currentContext = context
	return o
}

// CurrentContext returns the current context.
func (o *Table) CurrentContext() string {
	return o.currentContext
}

// Add adds or replaces a profile using its name as the context.
func (o *Table) Add(p Profile) *Table {
	return o.AddInContext(p.Name, p)
}

// AddInContext adds or replaces the profile for the specified context.
func (o *Table) AddInContext(context string, p Profile) *Table {
	o.contextToProfiles[context] = p
	return o
}

// DeleteContext deletes the specified context.
func (o *Table) DeleteContext(context string) *Table {
	delete(o.contextToProfiles, context)
	return o
}

// Contexts returns the names of all contexts in sorted order.
func (o *Table) Contexts() []string {
	contexts := lo.Keys(o.contextToProfiles)
	sort.Strings(contexts)
	return contexts
}

// Lookup returns the profile for the specified context.
func (o *Table) Lookup(context string) (Profile, error) {
	p, hasIt := o.contextToProfiles[context]
	if !hasIt {
		return Profile{}, fmt.Errorf("unknown profile '%s' (known profiles: %v)",
			context, o.Contexts())
	}

	return p, nil
}

// Current returns the profile for the current context.
func (o *Table) Current() (Profile, error) {
	return o.Lookup(o.currentContext)
}

// CurrentOrExit returns the profile for the current context.
//
// If the context does not exist, then DefaultExitFn is invoked.
func (o *Table) CurrentOrExit() Profile {
	p, err := o.Current()
	if err != nil {
		DefaultExitFn(err)
	}

	return p
}
