package events

import (
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/c360/latticectl/errors"
)

// TypePrefix is the CloudEvents type prefix hosts put in front of the category.
const TypePrefix = "com.wasmcloud.lattice."

// Category returns the event category, the last dot-separated token of the type
// ("component_scaled" for "com.wasmcloud.lattice.component_scaled").
func Category(e event.Event) string {
	t := e.Type()
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		return t[i+1:]
	}
	return t
}

// DataAs decodes the event data into a T.
func DataAs[T any](e event.Event) (T, error) {
	var v T
	if err := e.DataAs(&v); err != nil {
		return v, errors.WrapInvalid(errors.Deserialize(err), "events", "DataAs", "decode event data")
	}
	return v, nil
}
