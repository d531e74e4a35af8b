package stream

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// interfaceInfo caches the dispatchable methods of a declared interface.
type interfaceInfo struct {
	iface   Interface
	methods map[string]*method
}

// method describes one dispatchable interface method. Allowed shapes are
// (), (error), (R) and (R, error).
type method struct {
	name       string
	typ        reflect.Type
	result     reflect.Type
	returnsErr bool
}

func inspect(iface Interface) (*interfaceInfo, error) {
	info := &interfaceInfo{iface: iface, methods: make(map[string]*method)}
	t := iface.t
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name == "TagForStream" {
			continue
		}
		md := &method{name: m.Name, typ: m.Type}
		switch m.Type.NumOut() {
		case 0:
		case 1:
			if out := m.Type.Out(0); out == errorType {
				md.returnsErr = true
			} else {
				md.result = out
			}
		case 2:
			if m.Type.Out(1) != errorType {
				return nil, fmt.Errorf("%w: %s.%s: second result must be error", ErrInvalidInterface, iface, m.Name)
			}
			md.result = m.Type.Out(0)
			md.returnsErr = true
		default:
			return nil, fmt.Errorf("%w: %s.%s: too many results", ErrInvalidInterface, iface, m.Name)
		}
		info.methods[m.Name] = md
	}
	return info, nil
}

func (i *interfaceInfo) method(name string) (*method, error) {
	m, ok := i.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, i.iface, name)
	}
	return m, nil
}

// void reports whether the method produces no value for the caller.
func (m *method) void() bool { return m.result == nil }

// in converts args to call values matching the method signature.
func (m *method) in(args []any) ([]reflect.Value, error) {
	n := m.typ.NumIn()
	variadic := m.typ.IsVariadic()
	if (!variadic && len(args) != n) || (variadic && len(args) < n-1) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidArgument, m.name, n, len(args))
	}
	values := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if variadic && i >= n-1 {
			pt = m.typ.In(n - 1).Elem()
		} else {
			pt = m.typ.In(i)
		}
		v, err := argValue(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrInvalidArgument, m.name, i, err)
		}
		values[i] = v
	}
	return values, nil
}

func argValue(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		if nilable(pt) {
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %v", pt)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if numeric(v.Kind()) && numeric(pt.Kind()) && v.Type().ConvertibleTo(pt) {
		c := v.Convert(pt)
		if negative(c) != negative(v) || c.Convert(v.Type()).Interface() != v.Interface() {
			return reflect.Value{}, fmt.Errorf("%v does not fit %v", arg, pt)
		}
		return c, nil
	}
	return reflect.Value{}, fmt.Errorf("%v is not assignable to %v", v.Type(), pt)
}

func negative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

// call invokes the method on s. A nil nilable result is reported as nil.
func (m *method) call(s Stream, in []reflect.Value) (any, error) {
	out := reflect.ValueOf(s).MethodByName(m.name).Call(in)
	var err error
	if m.returnsErr {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	if m.result == nil {
		return nil, err
	}
	v := out[0]
	if nilable(v.Type()) && v.IsNil() {
		return nil, err
	}
	return v.Interface(), err
}

// normalize applies the return rules of a finished dispatch.
func (m *method) normalize(v any) any {
	if m.void() {
		return nil
	}
	if v == nil && !nilable(m.result) {
		return reflect.Zero(m.result).Interface()
	}
	return v
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
