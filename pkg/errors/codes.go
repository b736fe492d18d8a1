package errors

// Code is the stable tag attached to every CompileError.
type Code string

// Category groups codes into the three failure classes of the lowering engine.
type Category int

const (
	// Unsupported marks source constructs that have no valid lowering.
	Unsupported Category = iota
	// Invariant marks broken internal expectations about the tree shape.
	Invariant
	// TypeMismatch marks operations between incompatible static types.
	TypeMismatch
)

func (c Category) String() string {
	switch c {
	case Unsupported:
		return "unsupported"
	case Invariant:
		return "invariant"
	case TypeMismatch:
		return "type"
	}
	return "unknown"
}

const (
	CodeNoVarKeyword        Code = "NoVarKeyword"
	CodeNoLabeledStatement  Code = "NoLabeledStatement"
	CodeNoDynamicImport     Code = "NoDynamicImport"
	CodeNoNull              Code = "NoNull"
	CodeNoTypeOf            Code = "NoTypeOf"
	CodeNoEqualsEquals      Code = "NoEqualsEquals"
	CodeNoExclamationEquals Code = "NoExclamationEquals"
	CodeNoForInStatement    Code = "NoForInStatement"
	CodeNoThisOutsideMethod Code = "NoThisOutsideMethod"
	CodeNoClasses           Code = "NoClasses"
	CodeMixedMethodCall     Code = "MixedMethodCall"
	CodeReservedName        Code = "ReservedName"
	CodeBadForOfTarget      Code = "BadForOfTarget"
	CodeUnsupportedNode     Code = "UnsupportedNode"

	CodeBadSwitchDefaultPosition  Code = "BadSwitchDefaultPosition"
	CodeEmptyDestructuringPattern Code = "EmptyDestructuringPattern"
	CodeBadAssignmentTarget       Code = "BadAssignmentTarget"
	CodeBadLuaTupleUsage          Code = "BadLuaTupleUsage"
	CodeUnexpectedNode            Code = "UnexpectedNode"

	CodeBadAddition      Code = "BadAddition"
	CodeBadBinaryOperand Code = "BadBinaryOperand"
)

var codeCategories = map[Code]Category{
	CodeBadSwitchDefaultPosition:  Invariant,
	CodeEmptyDestructuringPattern: Invariant,
	CodeBadAssignmentTarget:       Invariant,
	CodeBadLuaTupleUsage:          Invariant,
	CodeUnexpectedNode:            Invariant,
	CodeBadAddition:               TypeMismatch,
	CodeBadBinaryOperand:          TypeMismatch,
}

// Category reports the failure class of the code. Codes not listed
// explicitly are unsupported-construct errors.
func (c Code) Category() Category {
	if cat, ok := codeCategories[c]; ok {
		return cat
	}
	return Unsupported
}
