package build

import (
	"fmt"
	"time"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("build-%d", n)
	}
}

func newTestConfigurator(opts ...Option) *Configurator {
	base := []Option{
		WithClock(func() time.Time { return testEpoch }),
		WithIDGenerator(sequentialIDs()),
	}
	return NewConfigurator(append(base, opts...)...)
}

func cpu(id, socket string, price catalog.Money) catalog.Component {
	return catalog.Component{ID: id, Category: catalog.CPU, Title: id, UnitPrice: price, Stock: 5,
		Spec: catalog.CPUSpec{Socket: socket}}
}

func board(id, socket, memType, form string, slots, maxGB int) catalog.Component {
	return catalog.Component{ID: id, Category: catalog.Motherboard, Title: id, UnitPrice: 2000, Stock: 5,
		Spec: catalog.MotherboardSpec{Socket: socket, MemoryType: memType, FormFactor: form, MemorySlots: slots, MaxMemoryGB: maxGB}}
}

func ram(id, memType string, gb int, price catalog.Money) catalog.Component {
	return catalog.Component{ID: id, Category: catalog.Memory, Title: id, UnitPrice: price, Stock: 20,
		Spec: catalog.MemorySpec{MemoryType: memType, CapacityGB: gb}}
}

func chassis(id, form string) catalog.Component {
	return catalog.Component{ID: id, Category: catalog.Case, Title: id, UnitPrice: 900, Stock: 5,
		Spec: catalog.CaseSpec{FormFactor: form}}
}

func cooler(id string, sockets ...string) catalog.Component {
	return catalog.Component{ID: id, Category: catalog.Cooler, Title: id, UnitPrice: 700, Stock: 5,
		Spec: catalog.CoolerSpec{Sockets: sockets}}
}

func simple(id string, cat catalog.Category, price catalog.Money) catalog.Component {
	return catalog.Component{ID: id, Category: cat, Title: id, UnitPrice: price, Stock: 5}
}
