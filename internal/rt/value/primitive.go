package value

import "github.com/aerojs/aerojs-core/pkg/errors"

// Hint selects the preferred result type of ToPrimitive.
type Hint string

const (
	HintDefault Hint = "default"
	HintNumber  Hint = "number"
	HintString  Hint = "string"
)

// ObjectPrimitiveHook lets the object-model collaborator (out of scope
// for this module, spec §1) plug in OrdinaryToPrimitive: given the raw
// object pointer recovered from a tagged Value and a hint, try valueOf
// then toString (or the reverse for hint "string"), returning the first
// method call that yields a primitive. A nil hook means no object model
// is wired in yet, which ToPrimitive reports as a TypeError rather than
// panicking on a nil call.
var ObjectPrimitiveHook func(obj Value, hint Hint) (Value, bool, error)

// ToPrimitive implements ECMAScript OrdinaryToPrimitive for the subset
// this module owns: primitives already are their own result; objects are
// handed to ObjectPrimitiveHook. If every candidate method is missing or
// returns another object, the conversion throws TypeError rather than
// silently falling back to undefined (resolved Open Question, spec §9:
// "what happens when ToPrimitive exhausts hints").
func (v Value) ToPrimitive(hint Hint) (Value, error) {
	if !v.IsObject() {
		return v, nil
	}
	if ObjectPrimitiveHook == nil {
		return Value{}, errors.New(errors.KindTypeError, errors.Position{}, "no object model wired in: cannot convert object to primitive")
	}
	result, ok, err := ObjectPrimitiveHook(v, hint)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, errors.New(errors.KindTypeError, errors.Position{}, "Cannot convert object to primitive value")
	}
	return result, nil
}
