package repository

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// columns lists every filterable/orderable column of the listings table.
var columns = map[string]struct{}{
	"id": {}, "slug": {}, "title": {}, "raw_address": {}, "address": {}, "verified_address": {},
	"postcode": {}, "region": {}, "location": {}, "latitude": {}, "longitude": {}, "google_maps_url": {},
	"website_url": {}, "airbnb_url": {}, "booking_com_url": {}, "vrbo_url": {}, "other_booking_url": {},
	"image_url": {}, "photo_1_url": {}, "photo_2_url": {}, "photo_3_url": {},
	"description": {}, "content": {}, "sleeps": {}, "meta_title": {}, "meta_description": {},
	"address_verified": {}, "booking_links_found": {}, "photos_extracted": {}, "content_generated": {},
	"enrichment_complete": {}, "is_published": {}, "is_featured": {}, "created_at": {}, "updated_at": {},
}

// Cond is a column equality.
type Cond struct {
	Column string
	Value  any
}

// Order is a single sort key.
type Order struct {
	Column string
	Desc   bool
}

// Query is the one predicate model both data paths translate from.
// All Eq conditions, the AnyOf group and NotNull columns are ANDed together.
type Query struct {
	Eqs      []Cond
	AnyOf    []Cond
	NotNulls []string
	Orders   []Order
	Limit    int
}

// NewQuery starts an empty query.
func NewQuery() Query { return Query{} }

// Eq adds column = value.
func (q Query) Eq(column string, value any) Query {
	q.Eqs = append(append([]Cond(nil), q.Eqs...), Cond{Column: column, Value: value})
	return q
}

// In adds (column = v1 OR column = v2 ...) to the OR group.
func (q Query) In(column string, values ...any) Query {
	group := append([]Cond(nil), q.AnyOf...)
	for _, v := range values {
		group = append(group, Cond{Column: column, Value: v})
	}
	q.AnyOf = group
	return q
}

// NotNull adds column IS NOT NULL.
func (q Query) NotNull(column string) Query {
	q.NotNulls = append(append([]string(nil), q.NotNulls...), column)
	return q
}

// OrderBy appends a sort key.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Desc: desc})
	return q
}

// WithLimit caps the result size. Zero means no limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Validate rejects unknown columns and negative limits.
func (q Query) Validate() error {
	check := func(col string) error {
		if _, ok := columns[col]; !ok {
			return fmt.Errorf("unknown column %q", col)
		}
		return nil
	}
	for _, c := range q.Eqs {
		if err := check(c.Column); err != nil {
			return err
		}
	}
	for _, c := range q.AnyOf {
		if err := check(c.Column); err != nil {
			return err
		}
	}
	for _, col := range q.NotNulls {
		if err := check(col); err != nil {
			return err
		}
	}
	for _, o := range q.Orders {
		if err := check(o.Column); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

// RESTParams renders the query as PostgREST URL parameters.
func (q Query) RESTParams() (url.Values, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("select", "*")
	for _, c := range q.Eqs {
		params.Add(c.Column, "eq."+formatValue(c.Value))
	}
	switch len(q.AnyOf) {
	case 0:
	case 1:
		params.Add(q.AnyOf[0].Column, "eq."+formatValue(q.AnyOf[0].Value))
	default:
		parts := make([]string, 0, len(q.AnyOf))
		for _, c := range q.AnyOf {
			parts = append(parts, c.Column+".eq."+quoteReserved(formatValue(c.Value)))
		}
		params.Add("or", "("+strings.Join(parts, ",")+")")
	}
	for _, col := range q.NotNulls {
		params.Add(col, "not.is.null")
	}
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

// Apply adds the query's clauses to a GORM statement.
func (q Query) Apply(db *gorm.DB) (*gorm.DB, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, c := range q.Eqs {
		db = db.Where(clause.Eq{Column: clause.Column{Name: c.Column}, Value: sqlValue(c.Value)})
	}
	switch len(q.AnyOf) {
	case 0:
	case 1:
		c := q.AnyOf[0]
		db = db.Where(clause.Eq{Column: clause.Column{Name: c.Column}, Value: sqlValue(c.Value)})
	default:
		exprs := make([]clause.Expression, 0, len(q.AnyOf))
		for _, c := range q.AnyOf {
			exprs = append(exprs, clause.Eq{Column: clause.Column{Name: c.Column}, Value: sqlValue(c.Value)})
		}
		db = db.Where(clause.Or(exprs...))
	}
	for _, col := range q.NotNulls {
		db = db.Where(clause.Neq{Column: clause.Column{Name: col}, Value: nil})
	}
	for _, o := range q.Orders {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db, nil
}

func formatValue(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case uuid.UUID:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// sqlValue passes driver-friendly types through and stringifies the rest.
func sqlValue(v any) any {
	switch typed := v.(type) {
	case uuid.UUID:
		return typed.String()
	default:
		return v
	}
}

// quoteReserved double-quotes values containing PostgREST logic-tree delimiters.
func quoteReserved(value string) string {
	if !strings.ContainsAny(value, ",.:()\" \\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}
