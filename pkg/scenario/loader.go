package scenario

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/dealprobe/dealprobe/pkg/util"
)

const (
	KindScenario = "Scenario"
)

// ScenarioSpec is the on-disk envelope for one scenario.
type ScenarioSpec struct {
	util.TypeMeta

	Metadata ScenarioMetadata `json:"metadata"`
	Spec     Scenario         `json:"spec"`
}

type ScenarioMetadata struct {
	Name string `json:"name"`
}

func (s *ScenarioSpec) UnmarshalJSON(data []byte) error {
	type Doppleganger ScenarioSpec

	tmp := (*Doppleganger)(s)
	return util.UnmarshalWithKind(data, tmp, KindScenario)
}

func Read(data []byte) (*ScenarioSpec, error) {
	spec := &ScenarioSpec{}

	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, err
	}

	if spec.Metadata.Name == "" {
		return nil, fmt.Errorf("scenario metadata.name must be set")
	}
	if spec.Spec.Name == "" {
		spec.Spec.Name = spec.Metadata.Name
	}
	if spec.Spec.ID == "" {
		spec.Spec.ID = spec.Metadata.Name
	}

	var err error
	err = errors.Join(err, spec.TypeMeta.Validate(KindScenario))
	err = errors.Join(err, spec.Spec.Validate())
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func FromFile(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s' for scenario spec: %w", path, err)
	}

	spec, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario at path %s: %w", path, err)
	}

	return spec, nil
}
