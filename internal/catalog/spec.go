package catalog

import "strings"

// Wildcard is the attribute value that is compatible with anything.
const Wildcard = "Universal"

// Spec is the category-specific compatibility payload of a Component. The
// concrete type is determined by the component's category.
type Spec interface {
	Category() Category
	isSpec()
}

// CPUSpec describes a processor.
type CPUSpec struct {
	Socket   string `json:"socket,omitempty" yaml:"socket,omitempty"`
	Cores    int    `json:"cores,omitempty" yaml:"cores,omitempty"`
	TDPWatts int    `json:"tdp_watts,omitempty" yaml:"tdp_watts,omitempty"`
}

// MotherboardSpec describes a mainboard and its capacity limits.
type MotherboardSpec struct {
	Socket      string `json:"socket,omitempty" yaml:"socket,omitempty"`
	MemoryType  string `json:"memory_type,omitempty" yaml:"memory_type,omitempty"`
	FormFactor  string `json:"form_factor,omitempty" yaml:"form_factor,omitempty"`
	MemorySlots int    `json:"memory_slots,omitempty" yaml:"memory_slots,omitempty"`
	MaxMemoryGB int    `json:"max_memory_gb,omitempty" yaml:"max_memory_gb,omitempty"`
}

// MemorySpec describes a single memory module.
type MemorySpec struct {
	MemoryType string `json:"memory_type,omitempty" yaml:"memory_type,omitempty"`
	CapacityGB int    `json:"capacity_gb,omitempty" yaml:"capacity_gb,omitempty"`
}

// StorageSpec describes a drive.
type StorageSpec struct {
	Interface  string `json:"interface,omitempty" yaml:"interface,omitempty"`
	CapacityGB int    `json:"capacity_gb,omitempty" yaml:"capacity_gb,omitempty"`
}

// GPUSpec describes a graphics card.
type GPUSpec struct {
	LengthMM int `json:"length_mm,omitempty" yaml:"length_mm,omitempty"`
	TDPWatts int `json:"tdp_watts,omitempty" yaml:"tdp_watts,omitempty"`
}

// PSUSpec describes a power supply.
type PSUSpec struct {
	Wattage int `json:"wattage,omitempty" yaml:"wattage,omitempty"`
}

// CaseSpec describes a chassis.
type CaseSpec struct {
	FormFactor     string `json:"form_factor,omitempty" yaml:"form_factor,omitempty"`
	MaxGPULengthMM int    `json:"max_gpu_length_mm,omitempty" yaml:"max_gpu_length_mm,omitempty"`
}

// CoolerSpec describes a CPU cooler.
type CoolerSpec struct {
	Sockets []string `json:"sockets,omitempty" yaml:"sockets,omitempty"`
}

func (CPUSpec) Category() Category         { return CPU }
func (MotherboardSpec) Category() Category { return Motherboard }
func (MemorySpec) Category() Category      { return Memory }
func (StorageSpec) Category() Category     { return Storage }
func (GPUSpec) Category() Category         { return GPU }
func (PSUSpec) Category() Category         { return PSU }
func (CaseSpec) Category() Category        { return Case }
func (CoolerSpec) Category() Category      { return Cooler }

func (CPUSpec) isSpec()         {}
func (MotherboardSpec) isSpec() {}
func (MemorySpec) isSpec()      {}
func (StorageSpec) isSpec()     {}
func (GPUSpec) isSpec()         {}
func (PSUSpec) isSpec()         {}
func (CaseSpec) isSpec()        {}
func (CoolerSpec) isSpec()      {}

// Concrete reports whether an attribute value takes part in comparisons:
// it must be non-empty and not the wildcard.
func Concrete(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, Wildcard)
}

// decodeSpec picks the concrete Spec type for a category and fills it using
// the supplied decoder (json.Unmarshal, yaml.Node.Decode, ...).
func decodeSpec(c Category, decode func(v any) error) (Spec, error) {
	switch c {
	case CPU:
		return decodeInto[CPUSpec](decode)
	case Motherboard:
		return decodeInto[MotherboardSpec](decode)
	case Memory:
		return decodeInto[MemorySpec](decode)
	case Storage:
		return decodeInto[StorageSpec](decode)
	case GPU:
		return decodeInto[GPUSpec](decode)
	case PSU:
		return decodeInto[PSUSpec](decode)
	case Case:
		return decodeInto[CaseSpec](decode)
	case Cooler:
		return decodeInto[CoolerSpec](decode)
	default:
		return nil, nil
	}
}

func decodeInto[T Spec](decode func(v any) error) (Spec, error) {
	var s T
	if err := decode(&s); err != nil {
		return nil, err
	}
	return s, nil
}

// copySpec returns a Spec that shares no slices with s.
func copySpec(s Spec) Spec {
	if cs, ok := s.(CoolerSpec); ok {
		cs.Sockets = append([]string(nil), cs.Sockets...)
		return cs
	}
	return s
}
