// Package universe seeds a graph store with a small Doctor Who dataset:
// planets, species, characters, the actors who played them and the
// relationships between them, plus an index per entity kind.
package universe

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/koan-graphdb/pkg/storage"
)

//go:embed universe.yaml
var defaultDataset []byte

// Well-known relationship types
var (
	CompanionOf = storage.MustRelationshipType("COMPANION_OF")
	EnemyOf     = storage.MustRelationshipType("ENEMY_OF")
	Loves       = storage.MustRelationshipType("LOVES")
	Played      = storage.MustRelationshipType("PLAYED")
	IsA         = storage.MustRelationshipType("IS_A")
	ComesFrom   = storage.MustRelationshipType("COMES_FROM")
)

// Index names and the property key each one is keyed by
const (
	CharactersIndex = "characters"
	SpeciesIndex    = "species"
	ActorsIndex     = "actors"
	PlanetsIndex    = "planets"

	CharacterKey = "character"
	SpeciesKey   = "species"
	ActorKey     = "actor"
	PlanetKey    = "planet"
)

// Dataset is the parsed form of a universe file
type Dataset struct {
	Planets    []string    `yaml:"planets" validate:"dive,required"`
	Species    []Species   `yaml:"species" validate:"dive"`
	Characters []Character `yaml:"characters" validate:"dive"`
}

// Species is a race of beings, optionally tied to a home planet
type Species struct {
	Name    string   `yaml:"name" validate:"required"`
	Planet  string   `yaml:"planet"`
	EnemyOf []string `yaml:"enemy_of" validate:"dive,required"`
}

// Character is a person in the show
type Character struct {
	Name        string   `yaml:"name" validate:"required"`
	Species     string   `yaml:"species"`
	Planet      string   `yaml:"planet"`
	Actors      []string `yaml:"actors" validate:"dive,required"`
	CompanionOf []string `yaml:"companion_of" validate:"dive,required"`
	EnemyOf     []string `yaml:"enemy_of" validate:"dive,required"`
	Loves       []string `yaml:"loves" validate:"dive,required"`
}

var validate = validator.New()

// Default returns the embedded dataset
func Default() (*Dataset, error) {
	return Parse(defaultDataset)
}

// Parse decodes and checks a YAML dataset. Unknown fields are rejected and
// every reference must name an entity declared in the dataset.
func Parse(data []byte) (*Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to parse universe: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks required fields, uniqueness of names and references
func (ds *Dataset) Validate() error {
	if err := validate.Struct(ds); err != nil {
		return fmt.Errorf("invalid universe: %w", err)
	}

	planets, err := uniqueNames("planet", ds.Planets)
	if err != nil {
		return err
	}

	speciesNames := make([]string, len(ds.Species))
	for i, s := range ds.Species {
		speciesNames[i] = s.Name
	}
	species, err := uniqueNames("species", speciesNames)
	if err != nil {
		return err
	}

	characterNames := make([]string, len(ds.Characters))
	for i, c := range ds.Characters {
		characterNames[i] = c.Name
	}
	characters, err := uniqueNames("character", characterNames)
	if err != nil {
		return err
	}

	var errs []error
	ref := func(owner, kind, name string, known map[string]struct{}) {
		if name == "" {
			return
		}
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Errorf("%s refers to unknown %s %q", owner, kind, name))
		}
	}

	for _, s := range ds.Species {
		ref(s.Name, "planet", s.Planet, planets)
		for _, e := range s.EnemyOf {
			ref(s.Name, "character", e, characters)
		}
	}
	for _, c := range ds.Characters {
		ref(c.Name, "species", c.Species, species)
		ref(c.Name, "planet", c.Planet, planets)
		for _, group := range [][]string{c.CompanionOf, c.EnemyOf, c.Loves} {
			for _, other := range group {
				ref(c.Name, "character", other, characters)
			}
		}
	}
	return errors.Join(errs...)
}

func uniqueNames(kind string, names []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := set[name]; dup {
			return nil, fmt.Errorf("duplicate %s %q", kind, name)
		}
		set[name] = struct{}{}
	}
	return set, nil
}

// ActorNames returns every distinct actor in declaration order
func (ds *Dataset) ActorNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range ds.Characters {
		for _, a := range c.Actors {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			names = append(names, a)
		}
	}
	return names
}
