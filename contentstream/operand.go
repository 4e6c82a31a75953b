package contentstream

// Operand is a type-safe operand value preceding an operator.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

type StringOperand struct{ Value []byte }

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// KeywordOperand is a bare literal keyword (true, false, null) inside an
// array or dictionary operand. It serializes without any delimiter.
type KeywordOperand struct{ Value string }

func (KeywordOperand) operand()     {}
func (KeywordOperand) Type() string { return "keyword" }

type DictOperand struct {
	Keys   []string // insertion order, for faithful re-serialization
	Values map[string]Operand
}

func (DictOperand) operand()     {}
func (DictOperand) Type() string { return "dict" }

func operandFloat(op Operand) float64 {
	if n, ok := op.(NumberOperand); ok {
		return n.Value
	}
	return 0
}

func operandName(op Operand) (string, bool) {
	n, ok := op.(NameOperand)
	return n.Value, ok
}
