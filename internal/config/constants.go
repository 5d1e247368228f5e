package config

// SourceFileExt is the default extension of namespace source files.
const SourceFileExt = ".brj"

// ProjectFileName is looked up from the working directory upwards.
const ProjectFileName = "bridje.yaml"

// CoreNamespace is referred implicitly by every namespace.
const CoreNamespace = "brj.core"

// DefaultMaxMacroDepth bounds nested macro expansion.
const DefaultMaxMacroDepth = 256

// DefaultServerAddr is where `brj serve` listens when unconfigured.
const DefaultServerAddr = "127.0.0.1:7888"

// Special form names
const (
	IfForm     = "if"
	FnForm     = "fn"
	LetForm    = "let"
	DoForm     = "do"
	CaseForm   = "case"
	LoopForm   = "loop"
	RecurForm  = "recur"
	WithFxForm = "with-fx"
	NSForm     = "ns"
	HostForm   = "host"
)

// Declaration form names
const (
	DefForm      = "def"
	TypeDeclForm = "::"
	DefxForm     = "defx"
	DeftypeForm  = "deftype"
	DefmacroForm = "defmacro"
)

// Type form names
const (
	FnTypeName      = "Fn"
	VariantTypeName = "+"
)

// EffectLocalName is the name of the implicit effect-capability local.
const EffectLocalName = "_fx"
