package repository

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"venue_enrichment_backend/internal/listings/domain"
)

func dryRunStore(t *testing.T) *DirectStore {
	t.Helper()
	return NewDirectStore(dryRunDB(t).Session(&gorm.Session{DryRun: true, SkipDefaultTransaction: true}))
}

func findVar[T any](vars []any) (T, bool) {
	for _, v := range vars {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func TestDirectUpdateSQL(t *testing.T) {
	store := dryRunStore(t)
	id := uuid.New()
	stamped := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	description := "A converted stone barn."
	var u domain.ListingUpdate
	u.Description = &description
	u.Features = []string{"Hot tub", "Games room"}
	u.OtherBookingURLs = []string{"https://www.hostunusual.com/church-farm"}
	u.Mark(domain.FlagContentGenerated)
	cols := u.Columns()
	cols["updated_at"] = stamped

	stmt := store.update(context.Background(), id, cols).Statement
	sql := stmt.SQL.String()

	for _, fragment := range []string{
		`UPDATE "listings" SET`,
		`"content_generated"=$1`,
		`"description"=$2`,
		`"features"=$3`,
		`"other_booking_url"=$4`,
		`"updated_at"=$5`,
		`WHERE "listings"."id" = $6`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("expected %q in %s", fragment, sql)
		}
	}
	if len(stmt.Vars) != 6 {
		t.Fatalf("expected 6 bind vars, got %v", stmt.Vars)
	}
	if stmt.Vars[0] != true || stmt.Vars[1] != description {
		t.Errorf("flag/description vars = %v %v", stmt.Vars[0], stmt.Vars[1])
	}
	features, ok := findVar[pq.StringArray](stmt.Vars)
	if !ok || !reflect.DeepEqual([]string(features), []string{"Hot tub", "Games room"}) {
		t.Errorf("features var = %#v", features)
	}
	if stmt.Vars[3] != `["https://www.hostunusual.com/church-farm"]` {
		t.Errorf("other_booking_url var = %#v", stmt.Vars[3])
	}
	if got, ok := findVar[time.Time](stmt.Vars); !ok || !got.Equal(stamped) {
		t.Errorf("updated_at var = %v", got)
	}
	if got, ok := findVar[uuid.UUID](stmt.Vars); !ok || got != id {
		t.Errorf("id var = %v", got)
	}
}

func TestDirectInsertSQL(t *testing.T) {
	store := dryRunStore(t)
	cols := domain.NewListing{
		Title:       "Church Farm Barn",
		RawAddress:  "Church Farm, Guiting Power",
		Postcode:    "gl54 3aa",
		IsPublished: true,
	}.Columns()

	rec := recordFromColumns(cols)
	rec.ID = uuid.New()
	stmt := store.create(context.Background(), &rec).Statement
	sql := stmt.SQL.String()

	for _, fragment := range []string{
		`INSERT INTO "listings"`,
		`"title"`,
		`"slug"`,
		`"raw_address"`,
		`"postcode"`,
		`"region"`,
		`"features"`,
		`"is_published"`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("expected %q in %s", fragment, sql)
		}
	}
	features, ok := findVar[pq.StringArray](stmt.Vars)
	if !ok || features == nil || len(features) != 0 {
		t.Errorf("features var = %#v, want empty array", features)
	}
	if _, ok := findVar[string](stmt.Vars); !ok {
		t.Errorf("expected string vars in %v", stmt.Vars)
	}
}

func TestRecordFromColumns(t *testing.T) {
	rec := recordFromColumns(map[string]any{
		"title":        "Lake View Lodge",
		"slug":         "lake-view-lodge",
		"postcode":     "LA23 1AA",
		"region":       "Lake District",
		"website_url":  "https://lakeviewlodge.co.uk",
		"is_published": true,
		"features":     []string{"Jetty"},
	})

	if rec.Title != "Lake View Lodge" || rec.Slug != "lake-view-lodge" {
		t.Errorf("identity = %q %q", rec.Title, rec.Slug)
	}
	if deref(rec.Postcode) != "LA23 1AA" || deref(rec.Region) != "Lake District" || deref(rec.WebsiteURL) == "" {
		t.Errorf("location columns = %v %v %v", rec.Postcode, rec.Region, rec.WebsiteURL)
	}
	if rec.Address != nil || rec.Location != nil {
		t.Error("absent columns must stay NULL")
	}
	if !derefBool(rec.IsPublished) || derefBool(rec.EnrichmentComplete) {
		t.Errorf("flags = published %v complete %v", rec.IsPublished, rec.EnrichmentComplete)
	}
	if !reflect.DeepEqual([]string(rec.Features), []string{"Jetty"}) {
		t.Errorf("features = %v", rec.Features)
	}
}

func TestGormColumnsWrapsTextArrays(t *testing.T) {
	out := gormColumns(map[string]any{"features": []string{"a"}, "description": "d"})
	if _, ok := out["features"].(pq.StringArray); !ok {
		t.Errorf("features = %T, want pq.StringArray", out["features"])
	}
	if out["description"] != "d" {
		t.Errorf("description = %v", out["description"])
	}
}
