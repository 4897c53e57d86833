package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/quarrydb/gojabind"
	"github.com/quarrydb/gojabind/schema"
)

// Rectangle is the struct-bound demo class: fields become accessors,
// methods become script methods.
type Rectangle struct {
	Width  float64 `js:"width"`
	Height float64 `js:"height"`
}

func (r *Rectangle) Area() float64 { return r.Width * r.Height }

func (r *Rectangle) Scale(factor float64) {
	r.Width *= factor
	r.Height *= factor
}

// numberList is the payload of the hand-built indexed demo class.
type numberList struct {
	items []float64
}

// numberListClass exercises the indexed access surface: reads past the end
// come back undefined, negative indexes raise a range error, and
// non-integer names behave like ordinary properties.
func numberListClass() (*gojabind.Class, error) {
	return gojabind.NewClassBuilder("NumberList").
		Constructor(func(ctx *gojabind.Context, instance gojabind.Value, args []gojabind.Value) (interface{}, error) {
			list := &numberList{}
			for _, arg := range args {
				n, err := arg.ToNumber()
				if err != nil {
					return nil, err
				}
				list.items = append(list.items, n)
			}
			return list, nil
		}).
		IndexedGetter(func(ctx *gojabind.Context, this gojabind.Value, index int64) (gojabind.Value, error) {
			list, err := demoPayload(ctx, this)
			if err != nil {
				return gojabind.Value{}, err
			}
			if index >= int64(len(list.items)) {
				return gojabind.Value{}, &gojabind.OutOfRangeError{
					Message: fmt.Sprintf("Index %d is out of range (length %d).", index, len(list.items)),
				}
			}
			return ctx.Float64(list.items[index]), nil
		}).
		IndexedSetter(func(ctx *gojabind.Context, this gojabind.Value, index int64, value gojabind.Value) error {
			list, err := demoPayload(ctx, this)
			if err != nil {
				return err
			}
			n, err := value.ToNumber()
			if err != nil {
				return err
			}
			for int64(len(list.items)) <= index {
				list.items = append(list.items, 0)
			}
			list.items[index] = n
			return nil
		}).
		Getter(func(ctx *gojabind.Context, this gojabind.Value, name string) (gojabind.Value, error) {
			if name == "length" {
				list, err := demoPayload(ctx, this)
				if err != nil {
					return gojabind.Value{}, err
				}
				return ctx.Int64(int64(len(list.items))), nil
			}
			return gojabind.Value{}, nil
		}).
		PropertyNames(func(ctx *gojabind.Context, this gojabind.Value) []string {
			list, err := demoPayload(ctx, this)
			if err != nil {
				return nil
			}
			names := make([]string, 0, len(list.items)+1)
			for i := range list.items {
				names = append(names, strconv.Itoa(i))
			}
			names = append(names, "length")
			sort.Strings(names)
			return names
		}).
		Method("sum", func(ctx *gojabind.Context, this gojabind.Value, args []gojabind.Value) (gojabind.Value, error) {
			if err := gojabind.ValidateArgumentCount(len(args), 0); err != nil {
				return gojabind.Value{}, err
			}
			list, err := demoPayload(ctx, this)
			if err != nil {
				return gojabind.Value{}, err
			}
			var total float64
			for _, n := range list.items {
				total += n
			}
			return ctx.Float64(total), nil
		}).
		Build()
}

func demoPayload(ctx *gojabind.Context, this gojabind.Value) (*numberList, error) {
	payload, err := ctx.InstancePayload(this)
	if err != nil {
		return nil, err
	}
	list, ok := payload.(*numberList)
	if !ok {
		return nil, fmt.Errorf("unexpected instance data %T", payload)
	}
	return list, nil
}

func demoRegistry() (*gojabind.ClassRegistry, error) {
	registry := gojabind.NewClassRegistry()

	rectBuilder, err := gojabind.BindClassBuilder(&Rectangle{})
	if err != nil {
		return nil, err
	}
	rectClass, err := rectBuilder.Build()
	if err != nil {
		return nil, err
	}
	if err := registry.Register(rectClass); err != nil {
		return nil, err
	}

	listClass, err := numberListClass()
	if err != nil {
		return nil, err
	}
	if err := registry.Register(listClass); err != nil {
		return nil, err
	}
	return registry, nil
}

// installDemoNamespace exposes the demo classes, and optionally a parsed
// schema snapshot, under the host global.
func installDemoNamespace(ctx *gojabind.Context, registry *gojabind.ClassRegistry, snapshotPath string) error {
	ns := gojabind.NewNamespaceBuilder("host").
		ExportValue("version", "0.3.0")
	for _, cls := range registry.Classes() {
		ns.ExportClass(cls)
	}
	nsObj, err := ns.Apply(ctx)
	if err != nil {
		return err
	}
	if snapshotPath == "" {
		return nil
	}
	snap, err := schema.LoadFile(snapshotPath)
	if err != nil {
		return err
	}
	snapVal, err := ctx.Marshal(snap)
	if err != nil {
		return err
	}
	return nsObj.Set("schema", snapVal)
}
