package lower

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nooga/tslua/pkg/parser"
)

// Intent records where the value of an expression must end up. A lowering
// that claims the intent writes its value to Target itself and returns an
// empty string or the target.
type Intent struct {
	IsIdentifier    bool
	Target          string
	NeedsLocalizing bool // the target still needs its `local` declaration
}

// precedingEntry is one statement owed by an in-progress expression. Temporary
// declarations remember their expression so the next identical pure
// expression can reuse them.
type precedingEntry struct {
	text   string
	id     string
	expr   string
	indent string
}

type hoistScope struct {
	names        []string
	seen         map[string]bool
	declarations []hoistedDeclaration
}

type hoistedDeclaration struct {
	name string
	stmt string
}

type exportScope struct {
	stmts []string
	seen  map[string]bool
}

// Context is the mutable state of one file's compilation. It is threaded by
// pointer through every lowering function and never shared between files.
// All stacks are strictly LIFO.
type Context struct {
	idStack        []int
	preceding      [][]precedingEntry
	hoists         []*hoistScope
	exports        []*exportScope
	conditionalCtx string
	intents        map[parser.Expression]Intent
	indent         string

	IsModule    bool
	UsesRuntime bool
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{intents: make(map[parser.Expression]Intent)}
}

// --- Identifier allocation ---

func (c *Context) PushIDScope() {
	c.idStack = append(c.idStack, 0)
}

func (c *Context) PopIDScope() {
	c.idStack = c.idStack[:len(c.idStack)-1]
}

// NewID allocates a temporary name. The suffix is the sum of every active
// counter, so names stay distinct across sibling scopes of the same lineage.
func (c *Context) NewID() string {
	if len(c.idStack) == 0 {
		panic("lower: NewID called with no open identifier scope")
	}
	sum := 0
	for _, n := range c.idStack {
		sum += n
	}
	c.idStack[len(c.idStack)-1]++
	return "_" + strconv.Itoa(sum)
}

// --- Preceding statements ---

func (c *Context) EnterPreceding() {
	c.preceding = append(c.preceding, nil)
}

// Push appends statements to the innermost buffer. Statements must already
// carry the current indentation and a trailing newline.
func (c *Context) Push(stmts ...string) {
	top := len(c.preceding) - 1
	for _, s := range stmts {
		if s == "" {
			continue
		}
		c.preceding[top] = append(c.preceding[top], precedingEntry{text: s})
	}
}

// PushToNewID declares a temporary holding expr and returns its name. A pure
// expression identical to the one held by the temporary declared just before,
// at the same indentation and in the same buffer, reuses that temporary.
func (c *Context) PushToNewID(expr string, pure bool) string {
	top := len(c.preceding) - 1
	if pure {
		if n := len(c.preceding[top]); n > 0 {
			last := c.preceding[top][n-1]
			if last.id != "" && last.expr == expr && last.indent == c.indent {
				debugPrintf("// [Context] reusing %s for %s\n", last.id, expr)
				return last.id
			}
		}
	}
	id := c.NewID()
	c.preceding[top] = append(c.preceding[top], precedingEntry{
		text:   c.indent + "local " + id + " = " + expr + ";\n",
		id:     id,
		expr:   expr,
		indent: c.indent,
	})
	return id
}

// HasPending reports whether the innermost buffer holds statements.
func (c *Context) HasPending() bool {
	return len(c.preceding) > 0 && len(c.preceding[len(c.preceding)-1]) > 0
}

// ExitPreceding pops the innermost buffer and returns its statements in
// emission order.
func (c *Context) ExitPreceding() []string {
	top := c.preceding[len(c.preceding)-1]
	c.preceding = c.preceding[:len(c.preceding)-1]
	out := make([]string, len(top))
	for i, e := range top {
		out[i] = e.text
	}
	return out
}

func (c *Context) ExitPrecedingAndJoin() string {
	return strings.Join(c.ExitPreceding(), "")
}

// --- Hoisting ---

func (c *Context) PushHoistScope() {
	c.hoists = append(c.hoists, &hoistScope{seen: make(map[string]bool)})
}

// Hoist forward-declares name at the top of the current block.
func (c *Context) Hoist(name string) {
	h := c.hoists[len(c.hoists)-1]
	if h.seen[name] {
		return
	}
	h.seen[name] = true
	h.names = append(h.names, name)
}

// HoistDeclaration places a full declaration of name at the top of the
// current block. A name declared this way is not also declared bare.
func (c *Context) HoistDeclaration(name, stmt string) {
	h := c.hoists[len(c.hoists)-1]
	for _, d := range h.declarations {
		if d.name == name {
			return
		}
	}
	h.declarations = append(h.declarations, hoistedDeclaration{name: name, stmt: stmt})
}

// PopHoistScope returns the block's forward declarations: one `local` for
// the bare names, then the declarations with values.
func (c *Context) PopHoistScope() string {
	h := c.hoists[len(c.hoists)-1]
	c.hoists = c.hoists[:len(c.hoists)-1]

	withValue := make(map[string]bool, len(h.declarations))
	for _, d := range h.declarations {
		withValue[d.name] = true
	}
	var names []string
	for _, n := range h.names {
		if !withValue[n] {
			names = append(names, n)
		}
	}

	var sb strings.Builder
	if len(names) > 0 {
		sb.WriteString(c.indent + "local " + strings.Join(names, ", ") + ";\n")
	}
	for _, d := range h.declarations {
		sb.WriteString(c.indent + d.stmt + "\n")
	}
	return sb.String()
}

// --- Exports ---

func (c *Context) PushExportScope() {
	c.exports = append(c.exports, &exportScope{seen: make(map[string]bool)})
}

// Export attaches name to the table target under alias when the current
// block ends.
func (c *Context) Export(target, alias, name string) {
	e := c.exports[len(c.exports)-1]
	stmt := target + "." + alias + " = " + name + ";"
	if e.seen[stmt] {
		return
	}
	e.seen[stmt] = true
	e.stmts = append(e.stmts, stmt)
}

// PopExportScope returns the block's export statements in registration order.
func (c *Context) PopExportScope() string {
	e := c.exports[len(c.exports)-1]
	c.exports = c.exports[:len(c.exports)-1]
	var sb strings.Builder
	for _, s := range e.stmts {
		sb.WriteString(c.indent + s + "\n")
	}
	return sb.String()
}

// --- Conditional context ---

// ConditionalContext is the result variable an enclosing conditional
// expression lets nested conditionals reuse, or "".
func (c *Context) ConditionalContext() string {
	return c.conditionalCtx
}

func (c *Context) setConditionalContext(id string) {
	c.conditionalCtx = id
}

// --- Declaration intents ---

func (c *Context) SetIntent(expr parser.Expression, intent Intent) {
	c.intents[expr] = intent
}

// ClaimIntent removes and returns the intent for expr. The caller becomes
// responsible for writing the value to the intent's target.
func (c *Context) ClaimIntent(expr parser.Expression) (Intent, bool) {
	intent, ok := c.intents[expr]
	if ok {
		delete(c.intents, expr)
	}
	return intent, ok
}

// ReleaseIntent drops the intent for expr and reports whether it was still
// unclaimed.
func (c *Context) ReleaseIntent(expr parser.Expression) bool {
	_, ok := c.intents[expr]
	delete(c.intents, expr)
	return ok
}

// --- Indentation ---

func (c *Context) PushIndent() {
	c.indent += "\t"
}

func (c *Context) PopIndent() {
	c.indent = c.indent[:len(c.indent)-1]
}

func (c *Context) Indent() string {
	return c.indent
}

// Balanced reports whether every stack is back at its initial state.
func (c *Context) Balanced() bool {
	return len(c.idStack) == 0 && len(c.preceding) == 0 && len(c.hoists) == 0 &&
		len(c.exports) == 0 && c.indent == "" && len(c.intents) == 0 && c.conditionalCtx == ""
}

// pendingIntents lists the targets of unclaimed intents, for debugging.
func (c *Context) pendingIntents() []string {
	var targets []string
	for _, in := range c.intents {
		targets = append(targets, in.Target)
	}
	sort.Strings(targets)
	return targets
}
