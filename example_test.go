package gojabind_test

import (
	"fmt"

	"github.com/quarrydb/gojabind"
)

func Example() {
	ctx, err := gojabind.NewContext()
	if err != nil {
		panic(err)
	}
	defer ctx.Close()

	type point struct {
		items []float64
	}

	cls, err := gojabind.NewClassBuilder("Samples").
		Constructor(func(ctx *gojabind.Context, instance gojabind.Value, args []gojabind.Value) (interface{}, error) {
			p := &point{}
			for _, arg := range args {
				n, err := arg.ToNumber()
				if err != nil {
					return nil, err
				}
				p.items = append(p.items, n)
			}
			return p, nil
		}).
		Method("total", func(ctx *gojabind.Context, this gojabind.Value, args []gojabind.Value) (gojabind.Value, error) {
			payload, err := ctx.InstancePayload(this)
			if err != nil {
				return gojabind.Value{}, err
			}
			var sum float64
			for _, n := range payload.(*point).items {
				sum += n
			}
			return ctx.Float64(sum), nil
		}).
		Build()
	if err != nil {
		panic(err)
	}
	if _, err := ctx.RegisterClass(cls); err != nil {
		panic(err)
	}

	result, err := ctx.Eval(`new Samples(1, 2, 3).total()`)
	if err != nil {
		panic(err)
	}
	fmt.Println(result.String())
	// Output: 6
}
