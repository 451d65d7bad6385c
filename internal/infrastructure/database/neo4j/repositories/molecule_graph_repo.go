// Package repositories holds the Neo4j implementations of the domain graph
// ports.
package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	driver "github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

const (
	cypherClearMolecule = `
		MATCH (m:Molecule {id: $id})
		OPTIONAL MATCH (m)-[:HAS_ATOM]->(a:Atom)
		DETACH DELETE a`

	cypherMergeMolecule = `
		MERGE (m:Molecule {id: $id})
		ON CREATE SET m.created_at = datetime()
		SET m.smiles = $smiles,
		    m.formula = $formula,
		    m.num_atoms = $num_atoms,
		    m.num_bonds = $num_bonds,
		    m.updated_at = datetime()`

	cypherCreateAtoms = `
		MATCH (m:Molecule {id: $id})
		UNWIND $atoms AS atom
		CREATE (m)-[:HAS_ATOM]->(:Atom {
			molecule_id: $id,
			idx: atom.idx,
			atomic_num: atom.atomic_num,
			symbol: atom.symbol,
			charge: atom.charge,
			h_count: atom.h_count,
			aromatic: atom.aromatic
		})`

	cypherCreateBonds = `
		UNWIND $bonds AS bond
		MATCH (a:Atom {molecule_id: $id, idx: bond.begin}), (b:Atom {molecule_id: $id, idx: bond.end})
		CREATE (a)-[:BOND {code: bond.code, type: bond.type}]->(b)`

	cypherLoadAtoms = `
		MATCH (m:Molecule {id: $id})
		OPTIONAL MATCH (m)-[:HAS_ATOM]->(a:Atom)
		RETURN a.idx AS idx, a.atomic_num AS atomic_num, a.charge AS charge,
		       a.h_count AS h_count, a.aromatic AS aromatic
		ORDER BY idx`

	cypherLoadBonds = `
		MATCH (:Molecule {id: $id})-[:HAS_ATOM]->(a:Atom)-[r:BOND]->(b:Atom)
		RETURN a.idx AS begin, b.idx AS end, r.type AS type
		ORDER BY begin, end`

	cypherDeleteMolecule = `
		MATCH (m:Molecule {id: $id})
		OPTIONAL MATCH (m)-[:HAS_ATOM]->(a:Atom)
		DETACH DELETE a, m
		RETURN count(DISTINCT m) AS deleted`
)

// MoleculeGraphStore keeps molecule topologies as
// (:Molecule)-[:HAS_ATOM]->(:Atom)-[:BOND]->(:Atom) subgraphs.
type MoleculeGraphStore struct {
	driver driver.DriverInterface
	log    logging.Logger
}

var _ molgraph.GraphStore = (*MoleculeGraphStore)(nil)

func NewMoleculeGraphStore(d driver.DriverInterface, log logging.Logger) *MoleculeGraphStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MoleculeGraphStore{driver: d, log: log}
}

// SaveMolecule replaces any stored topology for id with m.
func (s *MoleculeGraphStore) SaveMolecule(ctx context.Context, id, smiles string, m *molgraph.Mol) error {
	if id == "" || m == nil {
		return errors.InvalidParam("molecule id and structure are required")
	}

	params := map[string]any{
		"id":        id,
		"smiles":    smiles,
		"formula":   m.Formula(),
		"num_atoms": m.NumAtoms(),
		"num_bonds": m.NumBonds(),
		"atoms":     atomParams(m),
		"bonds":     bondParams(m),
	}

	_, err := s.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		for _, cypher := range []string{cypherClearMolecule, cypherMergeMolecule, cypherCreateAtoms, cypherCreateBonds} {
			if _, err := tx.Run(ctx, cypher, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		s.log.Error("failed to save molecule graph", logging.String("id", id), logging.Err(err))
		return err
	}
	s.log.Debug("saved molecule graph", logging.String("id", id), logging.Int("atoms", m.NumAtoms()))
	return nil
}

// LoadMolecule rebuilds the stored topology.  A missing id yields
// ErrCodeGraphNotFound.
func (s *MoleculeGraphStore) LoadMolecule(ctx context.Context, id string) (*molgraph.Mol, error) {
	res, err := s.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		params := map[string]any{"id": id}

		atomRes, err := tx.Run(ctx, cypherLoadAtoms, params)
		if err != nil {
			return nil, err
		}
		rows := 0
		m := molgraph.NewMol()
		for atomRes.Next(ctx) {
			rows++
			rec := atomRes.Record()
			if v, _ := rec.Get("idx"); v == nil {
				continue
			}
			atom, err := atomFromRecord(rec)
			if err != nil {
				return nil, err
			}
			m.AddMolAtom(atom)
		}
		if err := atomRes.Err(); err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, errors.New(errors.ErrCodeGraphNotFound, "molecule graph not found").WithDetailf("id=%s", id)
		}

		bondRes, err := tx.Run(ctx, cypherLoadBonds, params)
		if err != nil {
			return nil, err
		}
		for bondRes.Next(ctx) {
			if err := addBondFromRecord(m, bondRes.Record()); err != nil {
				return nil, err
			}
		}
		if err := bondRes.Err(); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*molgraph.Mol), nil
}

// DeleteMolecule removes the molecule node and its atoms.
func (s *MoleculeGraphStore) DeleteMolecule(ctx context.Context, id string) error {
	res, err := s.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, cypherDeleteMolecule, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, result, func(r *neo4j.Record) (int, error) {
			return driver.RecordInt(r, "deleted")
		})
	})
	if err != nil {
		return err
	}
	if n, _ := res.(int); n == 0 {
		return errors.New(errors.ErrCodeGraphNotFound, "molecule graph not found").WithDetailf("id=%s", id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// mapping
// ─────────────────────────────────────────────────────────────────────────────

func atomParams(m *molgraph.Mol) []map[string]any {
	atoms := m.Atoms()
	out := make([]map[string]any, len(atoms))
	for i, a := range atoms {
		out[i] = map[string]any{
			"idx":        i,
			"atomic_num": a.Number,
			"symbol":     a.Symbol(),
			"charge":     a.Charge,
			"h_count":    a.HCount,
			"aromatic":   a.Aromatic,
		}
	}
	return out
}

// bondParams records the codec code next to the category name; categories
// outside the bond table are stored with code 0.
func bondParams(m *molgraph.Mol) []map[string]any {
	bonds := m.Bonds()
	out := make([]map[string]any, len(bonds))
	for i, b := range bonds {
		code, err := molgraph.EncodeBond(b.Type)
		if err != nil {
			code = molgraph.NoBond
		}
		out[i] = map[string]any{
			"begin": b.Begin,
			"end":   b.End,
			"code":  code,
			"type":  b.Type.String(),
		}
	}
	return out
}

func atomFromRecord(rec *neo4j.Record) (molgraph.MolAtom, error) {
	var atom molgraph.MolAtom
	var err error
	if atom.Number, err = driver.RecordInt(rec, "atomic_num"); err != nil {
		return atom, err
	}
	if atom.Charge, err = driver.RecordInt(rec, "charge"); err != nil {
		return atom, err
	}
	if atom.HCount, err = driver.RecordInt(rec, "h_count"); err != nil {
		return atom, err
	}
	if v, ok := rec.Get("aromatic"); ok {
		atom.Aromatic, _ = v.(bool)
	}
	return atom, nil
}

func addBondFromRecord(m *molgraph.Mol, rec *neo4j.Record) error {
	begin, err := driver.RecordInt(rec, "begin")
	if err != nil {
		return err
	}
	end, err := driver.RecordInt(rec, "end")
	if err != nil {
		return err
	}
	v, _ := rec.Get("type")
	name, _ := v.(string)
	bt, err := molgraph.ParseBondType(name)
	if err != nil {
		return err
	}
	return m.AddBond(begin, end, bt)
}

//Personal.AI order the ending
