package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/refbase-io/refbase/internal/db"
)

// CreateIndex creates a RediSearch index per the definition.
// Returns db.ErrIndexExists if an index with that name already exists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(buildCreateArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether the named index exists via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

func buildCreateArgs(def *db.IndexDefinition) []string {
	args := []string{def.Name, "ON", "HASH"}

	if len(def.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(def.Prefixes)))
		args = append(args, def.Prefixes...)
	}

	args = append(args, "SCHEMA")
	for _, f := range def.Fields {
		switch f.Type {
		case db.FieldTypeNumeric:
			args = append(args, f.Name, "NUMERIC")
		case db.FieldTypeTag:
			args = append(args, f.Name, "TAG")
			if f.TagSeparator != "" {
				args = append(args, "SEPARATOR", f.TagSeparator)
			}
		case db.FieldTypeVector:
			args = append(args, buildVectorFieldArgs(f)...)
		}
	}
	return args
}

func buildVectorFieldArgs(f db.IndexField) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(f.VectorDistance),
	}
	if f.VectorAlgo == db.VectorAlgoHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	args := []string{f.Name, "VECTOR", string(f.VectorAlgo), strconv.Itoa(len(attrs))}
	return append(args, attrs...)
}

// EnsureIndex creates the index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	exists, err := s.IndexExists(ctx, def.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("ensure index %q: %w", def.Name, err)
	}
	return nil
}
