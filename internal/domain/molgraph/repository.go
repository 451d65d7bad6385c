package molgraph

import (
	"context"

	"github.com/google/uuid"
)

// GraphRepository persists encoded graphs.
type GraphRepository interface {
	// Save inserts rec.  A record with the same SMILES and max length is
	// replaced and rec.ID is updated to the stored id.
	Save(ctx context.Context, rec *GraphRecord) error

	// BatchSave inserts all records in one round trip.
	BatchSave(ctx context.Context, recs []*GraphRecord) error

	// FindByID returns ErrCodeGraphNotFound when no record exists.
	FindByID(ctx context.Context, id uuid.UUID) (*GraphRecord, error)

	// FindBySMILES returns ErrCodeGraphNotFound when no record exists.
	FindBySMILES(ctx context.Context, smiles string, maxLength int) (*GraphRecord, error)

	// List returns a page ordered by creation time, newest first, and the
	// total count.
	List(ctx context.Context, limit, offset int) ([]*GraphRecord, int64, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// GraphStore keeps the full molecule topology in a graph database.
type GraphStore interface {
	SaveMolecule(ctx context.Context, id, smiles string, m *Mol) error
	LoadMolecule(ctx context.Context, id string) (*Mol, error)
	DeleteMolecule(ctx context.Context, id string) error
}

//Personal.AI order the ending
