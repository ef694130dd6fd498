package universe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/koan-graphdb/pkg/storage"
)

// ErrAlreadySeeded is returned by Seed when the store already holds a
// characters index
var ErrAlreadySeeded = errors.New("universe already seeded")

// seedMu serialises Seed calls. Commits are validated optimistically, so
// two concurrent seeds would otherwise both find an empty index.
var seedMu sync.Mutex

// Universe maps entity names to the node IDs Seed created for them
type Universe struct {
	Planets    map[string]uint64
	Species    map[string]uint64
	Characters map[string]uint64
	Actors     map[string]uint64
}

// Seed loads ds into gs in a single transaction. Each section is written in
// a nested scope, so a failure in any section leaves the store unchanged.
func Seed(gs *storage.GraphStorage, ds *Dataset) (*Universe, error) {
	seedMu.Lock()
	defer seedMu.Unlock()

	u := &Universe{
		Planets:    make(map[string]uint64),
		Species:    make(map[string]uint64),
		Characters: make(map[string]uint64),
		Actors:     make(map[string]uint64),
	}

	sections := []struct {
		name string
		load func(tx *storage.Transaction, ds *Dataset) error
	}{
		{"planets", u.loadPlanets},
		{"species", u.loadSpecies},
		{"characters", u.loadCharacters},
		{"actors", u.loadActors},
		{"relationships", u.loadRelationships},
	}

	err := gs.Update(func(tx *storage.Transaction) error {
		existing, err := tx.NodeIndex(CharactersIndex).Query(CharacterKey, "*")
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAlreadySeeded
		}

		for _, section := range sections {
			scope, err := tx.Begin()
			if err != nil {
				return err
			}
			if err := section.load(scope, ds); err != nil {
				err = fmt.Errorf("seed %s: %w", section.name, err)
				if rbErr := scope.Rollback(); rbErr != nil {
					return errors.Join(err, fmt.Errorf("rollback %s: %w", section.name, rbErr))
				}
				return err
			}
			if err := scope.Commit(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SeedDefault seeds gs with the embedded dataset
func SeedDefault(gs *storage.GraphStorage) (*Universe, error) {
	ds, err := Default()
	if err != nil {
		return nil, err
	}
	return Seed(gs, ds)
}

// addIndexed creates a node with key=name and indexes it under the same pair
func addIndexed(tx *storage.Transaction, index, key, name string) (uint64, error) {
	value := storage.StringValue(name)
	n, err := tx.CreateNodeWithProperties(map[string]storage.Value{key: value})
	if err != nil {
		return 0, err
	}
	if err := tx.NodeIndex(index).Add(n.ID, key, value); err != nil {
		return 0, err
	}
	return n.ID, nil
}

func (u *Universe) loadPlanets(tx *storage.Transaction, ds *Dataset) error {
	for _, name := range ds.Planets {
		id, err := addIndexed(tx, PlanetsIndex, PlanetKey, name)
		if err != nil {
			return err
		}
		u.Planets[name] = id
	}
	return nil
}

func (u *Universe) loadSpecies(tx *storage.Transaction, ds *Dataset) error {
	for _, s := range ds.Species {
		id, err := addIndexed(tx, SpeciesIndex, SpeciesKey, s.Name)
		if err != nil {
			return err
		}
		u.Species[s.Name] = id

		if s.Planet != "" {
			if _, err := tx.CreateRelationship(id, u.Planets[s.Planet], ComesFrom); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Universe) loadCharacters(tx *storage.Transaction, ds *Dataset) error {
	for _, c := range ds.Characters {
		id, err := addIndexed(tx, CharactersIndex, CharacterKey, c.Name)
		if err != nil {
			return err
		}
		u.Characters[c.Name] = id

		if c.Species != "" {
			if _, err := tx.CreateRelationship(id, u.Species[c.Species], IsA); err != nil {
				return err
			}
		}
		if c.Planet != "" {
			if _, err := tx.CreateRelationship(id, u.Planets[c.Planet], ComesFrom); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Universe) loadActors(tx *storage.Transaction, ds *Dataset) error {
	for _, name := range ds.ActorNames() {
		id, err := addIndexed(tx, ActorsIndex, ActorKey, name)
		if err != nil {
			return err
		}
		u.Actors[name] = id
	}
	for _, c := range ds.Characters {
		for _, actor := range c.Actors {
			if _, err := tx.CreateRelationship(u.Actors[actor], u.Characters[c.Name], Played); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Universe) loadRelationships(tx *storage.Transaction, ds *Dataset) error {
	for _, s := range ds.Species {
		for _, enemy := range s.EnemyOf {
			if _, err := tx.CreateRelationship(u.Species[s.Name], u.Characters[enemy], EnemyOf); err != nil {
				return err
			}
		}
	}

	for _, c := range ds.Characters {
		from := u.Characters[c.Name]
		for _, link := range []struct {
			relType storage.RelationshipType
			targets []string
		}{
			{CompanionOf, c.CompanionOf},
			{EnemyOf, c.EnemyOf},
			{Loves, c.Loves},
		} {
			for _, target := range link.targets {
				if _, err := tx.CreateRelationship(from, u.Characters[target], link.relType); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
