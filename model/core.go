package model

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/c360/semmodel/datatype"
	"github.com/c360/semmodel/datatype/geo"
)

//go:embed coremodel.yaml
var coreModelYAML []byte

type typeDef struct {
	Name string         `yaml:"name"`
	Base string         `yaml:"base"`
	Opts map[string]any `yaml:"opts"`
	Info datatype.Info  `yaml:"info"`
}

type propDef struct {
	Name string         `yaml:"name"`
	Type string         `yaml:"type"`
	Opts map[string]any `yaml:"opts"`
	Info Info           `yaml:"info"`
}

type formDef struct {
	Name  string         `yaml:"name"`
	Type  string         `yaml:"type"`
	Opts  map[string]any `yaml:"opts"`
	Info  Info           `yaml:"info"`
	Props []propDef      `yaml:"props"`
}

// definitions is a model document: derived types, forms, universal
// properties and tag properties.
type definitions struct {
	Types    []typeDef `yaml:"types"`
	Forms    []formDef `yaml:"forms"`
	Univs    []propDef `yaml:"univs"`
	TagProps []propDef `yaml:"tagprops"`
}

func parseDefinitions(data []byte) (*definitions, error) {
	var defs definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse model definitions: %w", err)
	}
	return &defs, nil
}

func (m *Model) loadCore() error {
	if _, err := m.types.Type(geo.TypeLatLong); err != nil {
		if err := geo.Register(m.types); err != nil {
			return err
		}
	}

	defs, err := parseDefinitions(coreModelYAML)
	if err != nil {
		return err
	}
	return m.loadDefinitions(defs, false)
}

func (m *Model) loadDefinitions(defs *definitions, extended bool) error {
	for _, td := range defs.Types {
		if _, err := m.types.Define(td.Name, td.Base, td.Opts, td.Info); err != nil {
			return fmt.Errorf("type %s: %w", td.Name, err)
		}
	}
	for _, fd := range defs.Forms {
		if _, err := m.addForm(fd.Name, fd.Type, fd.Opts, fd.Info, extended); err != nil {
			return fmt.Errorf("form %s: %w", fd.Name, err)
		}
		for _, pd := range fd.Props {
			if _, err := m.addFormProp(fd.Name, pd.Name, pd.Type, pd.Opts, pd.Info, extended); err != nil {
				return fmt.Errorf("prop %s:%s: %w", fd.Name, pd.Name, err)
			}
		}
	}
	for _, ud := range defs.Univs {
		if _, err := m.addUnivProp(ud.Name, ud.Type, ud.Opts, ud.Info, extended); err != nil {
			return fmt.Errorf("univ %s: %w", ud.Name, err)
		}
	}
	for _, tp := range defs.TagProps {
		if _, err := m.addTagProp(tp.Name, tp.Type, tp.Opts, tp.Info, extended); err != nil {
			return fmt.Errorf("tagprop %s: %w", tp.Name, err)
		}
	}
	return nil
}
