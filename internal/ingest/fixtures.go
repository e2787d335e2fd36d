package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"

	"VectorInit/internal/errs"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Fixture is one seed file bound to its destination collection.
type Fixture struct {
	Name       string
	Source     string
	Collection string
	Records    []bson.D
}

// LoadFixture reads source (a path or an http(s) URL) and parses it as a
// JSON array of objects.
func LoadFixture(ctx context.Context, source string) ([]bson.D, error) {
	path := source
	if isURL(source) {
		tmp, err := downloadToTemp(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", source, errs.Wrap(errs.ErrIO, err))
		}
		defer os.Remove(tmp)
		path = tmp
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", source, errs.Wrap(errs.ErrNotFound, err))
		}
		return nil, fmt.Errorf("read %s: %w", source, errs.Wrap(errs.ErrIO, err))
	}

	records, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return records, nil
}

// ParseFixture decodes a top-level JSON array whose elements are objects.
// Each object is read as relaxed Extended JSON, so field order is kept and
// $oid/$date wrappers become native BSON values. A key repeated within one
// object keeps its first position and its last value.
func ParseFixture(data []byte) ([]bson.D, error) {
	if !utf8.Valid(data) {
		return nil, errs.Wrap(errs.ErrParse, errors.New("input is not valid UTF-8"))
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, errs.Wrap(errs.ErrSchemaViolation,
				fmt.Errorf("top-level value is %s, want array", te.Value))
		}
		return nil, errs.Wrap(errs.ErrParse, err)
	}
	if raws == nil {
		return nil, errs.Wrap(errs.ErrSchemaViolation, errors.New("top-level value is null, want array"))
	}

	out := make([]bson.D, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, errs.Wrap(errs.ErrSchemaViolation,
				fmt.Errorf("record %d is not an object", i))
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
			return nil, errs.Wrap(errs.ErrParse, fmt.Errorf("record %d: %w", i, err))
		}
		out = append(out, lastKeyWins(doc))
	}
	return out, nil
}

func lastKeyWins(d bson.D) bson.D {
	out := make(bson.D, 0, len(d))
	pos := make(map[string]int, len(d))
	for _, e := range d {
		e.Value = dedupeValue(e.Value)
		if i, ok := pos[e.Key]; ok {
			out[i].Value = e.Value
			continue
		}
		pos[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

func dedupeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.D:
		return lastKeyWins(t)
	case bson.A:
		for i := range t {
			t[i] = dedupeValue(t[i])
		}
		return t
	}
	return v
}

func loadAll(ctx context.Context, fixtures []Fixture) error {
	for i := range fixtures {
		recs, err := LoadFixture(ctx, fixtures[i].Source)
		if err != nil {
			return err
		}
		fixtures[i].Records = recs
		log.Info().Str("fixture", fixtures[i].Name).Str("source", fixtures[i].Source).
			Int("records", len(recs)).Msg("fixture-loaded")
	}
	return nil
}
