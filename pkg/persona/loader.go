package persona

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/dealprobe/dealprobe/pkg/util"
)

const (
	KindPersona = "BuyerPersona"
)

// PersonaSpec is the on-disk envelope for a persona and its variants.
type PersonaSpec struct {
	util.TypeMeta

	Metadata PersonaMetadata `json:"metadata"`
	Spec     Persona         `json:"spec"`
	Variants []Variant       `json:"variants,omitempty"`
}

type PersonaMetadata struct {
	Name string `json:"name"`
}

func (s *PersonaSpec) UnmarshalJSON(data []byte) error {
	type Doppleganger PersonaSpec

	tmp := (*Doppleganger)(s)
	return util.UnmarshalWithKind(data, tmp, KindPersona)
}

// Variant returns the named variant defined alongside the persona.
func (s *PersonaSpec) Variant(name string) (*Variant, bool) {
	for i := range s.Variants {
		if s.Variants[i].Name == name {
			return &s.Variants[i], true
		}
	}
	return nil, false
}

// Read parses and validates a persona spec. Validation failures halt
// loading; a persona never degrades silently at run time.
func Read(data []byte) (*PersonaSpec, error) {
	spec := &PersonaSpec{}

	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, err
	}

	if spec.Metadata.Name == "" {
		return nil, fmt.Errorf("persona metadata.name must be set")
	}
	if spec.Spec.Name == "" {
		spec.Spec.Name = spec.Metadata.Name
	}
	if spec.Spec.ID == "" {
		spec.Spec.ID = spec.Metadata.Name
	}

	var err error
	err = errors.Join(err, spec.TypeMeta.Validate(KindPersona))
	err = errors.Join(err, spec.Spec.Validate())
	for i := range spec.Variants {
		if verr := spec.Variants[i].Validate(); verr != nil {
			err = errors.Join(err, fmt.Errorf("variant %d: %w", i, verr))
		}
	}
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func FromFile(path string) (*PersonaSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s' for persona spec: %w", path, err)
	}

	spec, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona at path %s: %w", path, err)
	}

	return spec, nil
}
