package gojabind

import (
	"errors"
	"fmt"
)

// NamespaceBuilder collects the classes and values a hosting application
// wants to expose under one global namespace object:
//
//	ns := gojabind.NewNamespaceBuilder("app").
//		ExportClass(pointClass).
//		ExportValue("version", "1.2.0")
//	if _, err := ns.Apply(ctx); err != nil { ... }
type NamespaceBuilder struct {
	name    string
	classes []*Class
	exports []namespaceExport
}

type namespaceExport struct {
	name  string
	value interface{}
}

// NewNamespaceBuilder starts a namespace with the given global name.
func NewNamespaceBuilder(name string) *NamespaceBuilder {
	return &NamespaceBuilder{name: name}
}

// ExportClass exposes a class constructor under its own name.
func (nb *NamespaceBuilder) ExportClass(cls *Class) *NamespaceBuilder {
	nb.classes = append(nb.classes, cls)
	return nb
}

// ExportValue exposes a native Go value, converted through Marshal when the
// namespace is applied.
func (nb *NamespaceBuilder) ExportValue(name string, value interface{}) *NamespaceBuilder {
	nb.exports = append(nb.exports, namespaceExport{name: name, value: value})
	return nb
}

// Apply validates the namespace, materializes its classes in ctx (reusing
// any that are already registered there) and installs the namespace object
// on the globals. It returns the namespace object.
func (nb *NamespaceBuilder) Apply(ctx *Context) (Value, error) {
	if err := nb.validate(); err != nil {
		return Value{}, err
	}

	ns := ctx.Object()
	for _, cls := range nb.classes {
		ctor, ok := ctx.ClassConstructor(cls)
		if !ok {
			var err error
			if ctor, err = ctx.RegisterClass(cls); err != nil {
				return Value{}, err
			}
		}
		if err := ns.Set(cls.Name(), ctor); err != nil {
			return Value{}, err
		}
	}
	for _, exp := range nb.exports {
		val, err := ctx.Marshal(exp.value)
		if err != nil {
			return Value{}, err
		}
		if err := ns.Set(exp.name, val); err != nil {
			return Value{}, err
		}
	}
	if err := ctx.Globals().Set(nb.name, ns); err != nil {
		return Value{}, err
	}
	return ns, nil
}

func (nb *NamespaceBuilder) validate() error {
	if nb.name == "" {
		return errors.New("namespace name cannot be empty")
	}
	seen := make(map[string]bool)
	claim := func(name string) error {
		if name == "" {
			return fmt.Errorf("namespace %s: export name cannot be empty", nb.name)
		}
		if seen[name] {
			return fmt.Errorf("namespace %s: duplicate export name: %s", nb.name, name)
		}
		seen[name] = true
		return nil
	}
	for _, cls := range nb.classes {
		if cls == nil {
			return fmt.Errorf("namespace %s: exported class cannot be nil", nb.name)
		}
		if err := claim(cls.Name()); err != nil {
			return err
		}
	}
	for _, exp := range nb.exports {
		if err := claim(exp.name); err != nil {
			return err
		}
	}
	return nil
}
