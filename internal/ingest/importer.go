package ingest

import (
	"context"
	"time"

	"VectorInit/internal/config"
	mdb "VectorInit/internal/mongo"

	"github.com/rs/zerolog/log"
)

type FixtureReport struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Written    int    `json:"written"`
	Matched    int    `json:"matched,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
}

type Report struct {
	Database   string          `json:"database"`
	User       string          `json:"user"`
	Idempotent bool            `json:"idempotent"`
	Fixtures   []FixtureReport `json:"fixtures"`
	Started    time.Time       `json:"started"`
	Finished   time.Time       `json:"finished"`
}

func Fixtures(cfg config.Config) []Fixture {
	return []Fixture{
		{Name: "libraries", Source: cfg.LibrariesSource, Collection: cfg.LibrariesCollection},
		{Name: "documents", Source: cfg.DocumentsSource, Collection: cfg.DocumentsCollection},
	}
}

// RunAll provisions the application user, then loads and writes both
// fixtures. Both files are parsed before either insert, so a bad fixture
// leaves the collections untouched. Nothing is retried or rolled back.
func RunAll(ctx context.Context, cfg config.Config, mc *mdb.Client) (Report, error) {
	rep := Report{
		Database:   mc.DB.Name(),
		User:       cfg.AppUser,
		Idempotent: cfg.Idempotent,
		Started:    time.Now().UTC(),
	}

	// === User ===
	user := mdb.UserSpec{
		Username: cfg.AppUser,
		Password: cfg.AppPassword,
		Roles:    []mdb.Grant{{Role: cfg.AppRole, DB: mc.DB.Name()}},
	}
	provision := mc.CreateUser
	if cfg.Idempotent {
		provision = mc.EnsureUser
	}
	if err := provision(ctx, user); err != nil {
		return rep, err
	}

	// === Fixtures ===
	fixtures := Fixtures(cfg)
	if err := loadAll(ctx, fixtures); err != nil {
		return rep, err
	}

	for _, f := range fixtures {
		fr := FixtureReport{Collection: f.Collection, Records: len(f.Records)}
		if cfg.Idempotent {
			res, err := mc.UpsertFixtures(ctx, f.Collection, cfg.UpsertKey, f.Records)
			fr.Written = int(res.Written())
			fr.Matched = int(res.Matched)
			fr.Skipped = res.Skipped
			rep.Fixtures = append(rep.Fixtures, fr)
			if err != nil {
				return rep, err
			}
			continue
		}
		n, err := mc.InsertFixtures(ctx, f.Collection, f.Records)
		fr.Written = n
		rep.Fixtures = append(rep.Fixtures, fr)
		if err != nil {
			return rep, err
		}
	}

	rep.Finished = time.Now().UTC()
	log.Info().Str("db", rep.Database).Dur("took", rep.Finished.Sub(rep.Started)).Msg("bootstrap-done")
	return rep, nil
}
