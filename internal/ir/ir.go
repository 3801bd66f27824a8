// Package ir defines the structured intermediate representation the
// decompiler pipeline lifts CFGs into (spec §3.6): a small expression sum
// type, a larger statement sum type that includes the structured control
// forms (conditional, loop, switch, try) recovered from the CFG's shape,
// and the always-available flat fallback (a primitive jump or an
// untranslated opcode) used whenever pattern recognition does not apply.
//
// Grounded on the teacher's AST package shape (a closed Expr/Stmt
// interface pair, each variant a small struct, dispatched with a type
// switch rather than the visitor-interface style some of the other
// example repos use) — the same discipline already used for
// internal/hltype.Type's payload-selected-by-kind design, here split into
// two sum types because expressions and statements have genuinely
// different shapes rather than one tagged union trying to cover both.
package ir

// Expr is any IR expression node. It is a marker interface; callers type
// switch on the concrete type.
type Expr interface{ isExpr() }

// Stmt is any IR statement node.
type Stmt interface{ isStmt() }

// LoopKind classifies how a recovered loop tests its condition.
type LoopKind int

const (
	PreTested  LoopKind = iota // while (cond) { body }
	PostTested                 // do { body } while (cond)
	Infinite                   // while (true) { body }; exits only via break/return
)

func (k LoopKind) String() string {
	switch k {
	case PreTested:
		return "PreTested"
	case PostTested:
		return "PostTested"
	case Infinite:
		return "Infinite"
	default:
		return "LoopKind(?)"
	}
}

// ---- Expressions ----

// Const is a literal value already resolved from the module's constant
// pools (so the IR layer never needs to carry pool indices around).
type Const struct {
	// Exactly one of these is meaningful, chosen when the const was built.
	IsInt    bool
	Int      int32
	IsFloat  bool
	Float    float64
	IsString bool
	Str      string
	IsBool   bool
	Bool     bool
	IsBytes  bool
	Bytes    []byte
	IsNull   bool
}

func (*Const) isExpr() {}

// Local references a function register by its stable name, not its raw
// register index — coalescing (spec §4.6 pass 1) may have merged several
// registers under one name, and every IR node downstream should see only
// the merged name.
type Local struct {
	Name    string
	Reg     int // original register index at the point of reference
	TypeIdx int
}

func (*Local) isExpr() {}

// Arg references one of the function's declared parameters by position.
type Arg struct {
	Index   int
	TypeIdx int
}

func (*Arg) isExpr() {}

// Field reads obj.FieldName (a resolved field/slot access; the field's
// string name has already been looked up from the type table).
type Field struct {
	Obj       Expr
	FieldName string
}

func (*Field) isExpr() {}

// ArithOp names a binary arithmetic or bitwise operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	SDiv
	UDiv
	SMod
	UMod
	Shl
	SShr
	UShr
	BitAnd
	BitOr
	BitXor
)

var arithSymbols = map[ArithOp]string{
	Add: "+", Sub: "-", Mul: "*", SDiv: "/", UDiv: "/", SMod: "%", UMod: "%",
	Shl: "<<", SShr: ">>", UShr: ">>>", BitAnd: "&", BitOr: "|", BitXor: "^",
}

func (o ArithOp) String() string {
	if s, ok := arithSymbols[o]; ok {
		return s
	}
	return "?"
}

// Arithmetic is a binary arithmetic/bitwise expression.
type Arithmetic struct {
	Op   ArithOp
	A, B Expr
}

func (*Arithmetic) isExpr() {}

// CompareOp names a comparison operator.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNotEq
	CmpSLt
	CmpSGte
	CmpSGt
	CmpSLte
	CmpULt
	CmpUGte
)

var compareSymbols = map[CompareOp]string{
	CmpEq: "==", CmpNotEq: "!=", CmpSLt: "<", CmpSGte: ">=",
	CmpSGt: ">", CmpSLte: "<=", CmpULt: "<", CmpUGte: ">=",
}

func (o CompareOp) String() string {
	if s, ok := compareSymbols[o]; ok {
		return s
	}
	return "?"
}

// Negate returns the logically negated comparison.
func (o CompareOp) Negate() CompareOp {
	switch o {
	case CmpEq:
		return CmpNotEq
	case CmpNotEq:
		return CmpEq
	case CmpSLt:
		return CmpSGte
	case CmpSGte:
		return CmpSLt
	case CmpSGt:
		return CmpSLte
	case CmpSLte:
		return CmpSGt
	case CmpULt:
		return CmpUGte
	case CmpUGte:
		return CmpULt
	default:
		return o
	}
}

// Comparison is a binary comparison expression, typically the condition of
// a Conditional or Loop.
type Comparison struct {
	Op   CompareOp
	A, B Expr
}

func (*Comparison) isExpr() {}

// CallKind distinguishes the four call-site shapes HashLink's opcode set
// produces, each rendered differently by the emitter (spec §4.7).
type CallKind int

const (
	CallStatic   CallKind = iota // Call0..CallN: a plain function reference
	CallMethod                   // CallMethod: obj.method(args) via vtable slot
	CallThis                     // CallThis: implicit this.method(args)
	CallClosure                  // CallClosure: a closure value invoked directly
)

// Call is any function invocation.
type Call struct {
	Kind   CallKind
	Callee Expr // nil for CallThis, where the callee is implicit
	Method string // resolved field name, only set for CallMethod/CallThis
	Args   []Expr
}

func (*Call) isExpr() {}

// New allocates a fresh instance of a type.
type New struct {
	TypeIdx int
}

func (*New) isExpr() {}

// CastKind distinguishes checked from unchecked casts.
type CastKind int

const (
	CastDyn    CastKind = iota // ToDyn: box into a dynamic value
	CastSafe                   // SafeCast: checked, may throw
	CastUnsafe                 // UnsafeCast: unchecked reinterpretation
	CastNum                    // ToSFloat/ToUFloat/ToInt: numeric conversion
)

// Cast converts src to TypeIdx.
type Cast struct {
	Kind    CastKind
	Src     Expr
	TypeIdx int
}

func (*Cast) isExpr() {}

// Closure captures a method bound to an object (the OGetThis+OVirtualClosure
// / OInstanceClosure pattern, recognized by the optimizer's closure pass,
// spec §4.6 pass 7, or built directly by the lifter for OStaticClosure).
type Closure struct {
	Obj    Expr // nil for a static closure
	Method string
}

func (*Closure) isExpr() {}

// EnumConstruct builds an enum value of one named variant.
type EnumConstruct struct {
	TypeIdx   int
	Construct string
	Args      []Expr
}

func (*EnumConstruct) isExpr() {}

// EnumField reads one payload slot of an enum value already known (by a
// prior EnumIndex check or pattern match) to be a specific constructor.
type EnumField struct {
	Value     Expr
	Construct string
	FieldIdx  int
}

func (*EnumField) isExpr() {}

// Raw wraps an expression-shaped but otherwise uninterpreted value used by
// IRUntranslatedOpcode's operands (spec §7: unsupported opcodes must not
// abort lifting, only degrade the output for that one instruction).
type Raw struct {
	Text string
}

func (*Raw) isExpr() {}

// UnaryOp names a unary operator.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

func (o UnaryOp) String() string {
	if o == UnaryNot {
		return "!"
	}
	return "-"
}

// Unary is a unary arithmetic/logical expression.
type Unary struct {
	Op UnaryOp
	X  Expr
}

func (*Unary) isExpr() {}

// FuncRef names a function by its table index, resolved to a
// human-readable Name where the module's debug/native naming allows it.
type FuncRef struct {
	FIndex int
	Name   string
}

func (*FuncRef) isExpr() {}

// GlobalRef references a module-level global slot.
type GlobalRef struct {
	Index int
	Name  string
}

func (*GlobalRef) isExpr() {}

// ArrayAccess reads arr[idx].
type ArrayAccess struct {
	Arr Expr
	Idx Expr
}

func (*ArrayAccess) isExpr() {}

// DynField reads a dynamic object's field by precomputed name hash (no
// static field name is available at this op, since dynamic access is
// resolved at runtime by hash, spec §3.4 DynGet/DynSet).
type DynField struct {
	Obj  Expr
	Hash int32
}

func (*DynField) isExpr() {}

// RefOf / Deref model HashLink's boxed-reference primitives (Ref/Unref/
// Setref), used for captured-by-reference locals in closures.
type RefOf struct{ X Expr }

func (*RefOf) isExpr() {}

type Deref struct{ X Expr }

func (*Deref) isExpr() {}

// TypeOf resolves an object's runtime type/type id (GetType/GetTID).
type TypeOf struct{ X Expr }

func (*TypeOf) isExpr() {}

// EnumTag reads an enum value's constructor tag, typically used as the
// Value of an EnumField access or a Switch.
type EnumTag struct{ X Expr }

func (*EnumTag) isExpr() {}

// ---- Statements ----

// Block is a sequence of statements, the body of a function or of any
// structured statement below.
type Block struct {
	Stmts []Stmt
}

// Assign is dst = src. Dst is always *Local, *Field, or a global/array
// write target captured as an Expr for the emitter to render.
type Assign struct {
	Dst Expr
	Src Expr
}

func (*Assign) isStmt() {}

// ExprStmt evaluates an expression purely for its side effect (a call
// whose result is discarded).
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) isStmt() {}

// Return exits the function, optionally with a value (nil for a void
// return).
type Return struct {
	Value Expr
}

func (*Return) isStmt() {}

// Throw raises an exception.
type Throw struct {
	Value Expr
}

func (*Throw) isStmt() {}

// Conditional is structured if/else, recovered from a CFG diamond (spec
// §4.5): Cond decides between Then and Else; Else is nil when the original
// diamond had no separate else branch (the False edge targeted the join
// block directly).
type Conditional struct {
	Cond Expr
	Then *Block
	Else *Block
}

func (*Conditional) isStmt() {}

// Loop is structured iteration, recovered from a back edge (spec §4.5).
// Cond is nil when Kind is Infinite.
type Loop struct {
	Kind LoopKind
	Cond Expr
	Body *Block
}

func (*Loop) isStmt() {}

// Break exits the nearest enclosing Loop.
type Break struct{}

func (*Break) isStmt() {}

// Continue jumps to the nearest enclosing Loop's next iteration test.
type Continue struct{}

func (*Continue) isStmt() {}

// SwitchCase is one arm of a Switch.
type SwitchCase struct {
	Case int
	Body *Block
}

// Switch is a structured multi-way branch recovered from the Switch
// opcode (spec §4.5); Default is nil if the original had no default arm
// reachable beyond falling out of the switch entirely.
type Switch struct {
	Value   Expr
	Cases   []SwitchCase
	Default *Block
}

func (*Switch) isStmt() {}

// Try is a structured exception handler recovered from a trap region
// (spec §4.5): Body runs under the handler; Catch runs if it throws, with
// the thrown value bound to CatchVar.
type Try struct {
	Body     *Block
	CatchVar string
	Catch    *Block
}

func (*Try) isStmt() {}

// PrimitiveJump is the flat fallback for a jump whose CFG shape did not
// match any recognized pattern (spec §4.5: "a well-defined flat fallback
// ... never silently reorders semantics"). It preserves the original
// control transfer exactly, just without structured sugar.
type PrimitiveJump struct {
	Cond     Expr // nil for an unconditional jump
	Negate   bool // true if the jump is taken when Cond is false
	TargetOp int  // target block or op index, for diagnostics and re-emission ordering
}

func (*PrimitiveJump) isStmt() {}

// UntranslatedOpcode preserves an instruction the lifter has no IR shape
// for (spec §7 UnsupportedOpcode surfaced at the IR layer rather than
// aborting the whole function). The emitter renders it as a comment.
type UntranslatedOpcode struct {
	OpName string
	OpText string
}

func (*UntranslatedOpcode) isStmt() {}
