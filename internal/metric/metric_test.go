package metric

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"zipheat/internal/geom"
)

func TestReadCSV(t *testing.T) {
	in := "ZCTA,Impressions,Conversions,Spend\n2134,1000,10,\"$1,250.50\"\n02134,500,5,0\nbad-row\n90210,7,,3\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl["02134"]; got != (Record{Impressions: 1500, Conversions: 15, Spend: 1250.5}) {
		t.Fatalf("02134 = %+v", got)
	}
	if got := tbl["90210"]; got != (Record{Impressions: 7, Spend: 3}) {
		t.Fatalf("90210 = %+v", got)
	}
	if _, err := ReadCSV(strings.NewReader("lat,lon\n1,2\n")); err == nil {
		t.Fatal("expected missing zip column error")
	}
}

func TestReadJSON(t *testing.T) {
	obj := `{"02134": {"impressions": 10, "conversions": "2", "spend": 1.5}, "501": {"impressions": 1}}`
	tbl, err := ReadJSON([]byte(obj))
	if err != nil {
		t.Fatal(err)
	}
	if tbl["02134"] != (Record{Impressions: 10, Conversions: 2, Spend: 1.5}) || tbl["00501"].Impressions != 1 {
		t.Fatalf("object table %+v", tbl)
	}
	rows := `[{"ZIP": 2134, "impressions": 4}, {"postal_code": "10001-1234", "spend": 9}, {"other": 1}]`
	tbl, err = ReadJSON([]byte(rows))
	if err != nil {
		t.Fatal(err)
	}
	if tbl["02134"].Impressions != 4 || tbl["10001"].Spend != 9 || len(tbl) != 2 {
		t.Fatalf("rows table %+v", tbl)
	}
	if _, err := ReadJSON([]byte(`"nope"`)); err == nil {
		t.Fatal("expected error for scalar json")
	}
}

func TestDecodeByExtension(t *testing.T) {
	tbl, err := Decode("metrics.CSV.gz", []byte("zip,spend\n12345,2\n"))
	if err != nil || tbl["12345"].Spend != 2 {
		t.Fatalf("csv decode: %v %+v", err, tbl)
	}
	tbl, err = Decode("metrics.json", []byte(`{"12345":{"spend":3}}`))
	if err != nil || tbl["12345"].Spend != 3 {
		t.Fatalf("json decode: %v %+v", err, tbl)
	}
}

func TestFileSource(t *testing.T) {
	p := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(p, []byte(`{"60601":{"conversions":8}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := FileSource{Path: p}.Load(context.Background())
	if err != nil || tbl["60601"].Conversions != 8 {
		t.Fatalf("file source: %v %+v", err, tbl)
	}
}

func TestJoinMissingKeyGetsZero(t *testing.T) {
	features := []geom.Feature{
		{Properties: map[string]any{"ZCTA5CE20": "02134"}},
		{Properties: map[string]any{"ZCTA5CE20": "99999"}},
		{Properties: map[string]any{}},
	}
	tbl := Table{"02134": {Impressions: 100}}
	recs := Join(features, tbl, geom.PropertyKey())
	if len(recs) != 3 || recs[0].Impressions != 100 || recs[1] != (Record{}) || recs[2] != (Record{}) {
		t.Fatalf("join = %+v", recs)
	}
	ramp := DefaultRamp()
	style := Styler(recs, Impressions, ramp)
	if style(1) != ramp.Zero() || style(2) != ramp.Zero() {
		t.Fatal("unmatched features should use the zero colour")
	}
	if style(0).A != uint8(0.9*255+0.5) {
		t.Fatalf("max feature alpha %d", style(0).A)
	}
}

func TestRamp(t *testing.T) {
	r := DefaultRamp()
	lo, hi := r.Color(0, 10), r.Color(10, 10)
	if lo.R != r.Low.R || lo.G != r.Low.G || lo.A != 38 {
		t.Fatalf("low colour %v", lo)
	}
	if hi.R != 255 || hi.G != 0 || hi.A != 230 {
		t.Fatalf("high colour %v", hi)
	}
	if r.Color(50, 10) != hi {
		t.Fatal("values above max should saturate")
	}
	if r.Color(5, 0) != r.Zero() || r.Color(-3, 10) != r.Zero() {
		t.Fatal("non-positive max or value should give the zero colour")
	}
	mid := r.Color(5, 10)
	if !(mid.A > lo.A && mid.A < hi.A) {
		t.Fatalf("mid alpha %d not between %d and %d", mid.A, lo.A, hi.A)
	}
}

func TestParseField(t *testing.T) {
	for _, s := range []string{"impressions", "Conversions", " spend "} {
		f, err := ParseField(s)
		if err != nil || f.String() != strings.ToLower(strings.TrimSpace(s)) {
			t.Fatalf("%q -> %v %v", s, f, err)
		}
	}
	if _, err := ParseField("clicks"); err == nil {
		t.Fatal("expected error")
	}
	r := Record{Impressions: 1, Conversions: 2, Spend: 3}
	if Spend.Value(r) != 3 || Conversions.Value(r) != 2 || Impressions.Value(r) != 1 {
		t.Fatal("field values wrong")
	}
}

func TestFormat(t *testing.T) {
	s := Format("02134", Record{Impressions: 12345, Conversions: 67, Spend: 1234.5})
	for _, want := range []string{"ZIP 02134", "Impressions: 12,345", "Conversions: 67", "Spend: $1,234.50", "Conv. rate: 0.54%"} {
		if !strings.Contains(s, want) {
			t.Fatalf("%q missing %q", s, want)
		}
	}
}

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	*dest[0].(*string) = row[0].(string)
	for k := 1; k < 4; k++ {
		*dest[k].(*float64) = row[k].(float64)
	}
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return r.data[r.i-1], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeQuerier struct {
	sql  string
	rows *fakeRows
	err  error
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.sql = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPostgresSource(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"2134", 10.0, 1.0, 2.0},
		{"02134", 5.0, 0.0, 1.0},
		{"30301", 1.0, 1.0, 1.0},
	}}}
	tbl, err := PostgresSource{DB: q, Table: "ads.zip_metrics"}.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tbl["02134"] != (Record{Impressions: 15, Conversions: 1, Spend: 3}) || len(tbl) != 2 {
		t.Fatalf("table %+v", tbl)
	}
	if !strings.Contains(q.sql, `FROM "ads"."zip_metrics"`) {
		t.Fatalf("table not sanitized: %s", q.sql)
	}
	boom := errors.New("boom")
	_, err = PostgresSource{DB: &fakeQuerier{err: boom}, Table: "m"}.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped query error, got %v", err)
	}
}

type fakeHash struct {
	m   map[string]string
	err error
}

func (f fakeHash) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	return redis.NewMapStringStringResult(f.m, f.err)
}

func TestRedisSource(t *testing.T) {
	src := RedisSource{Client: fakeHash{m: map[string]string{
		"02134": `{"impressions":3,"spend":1.25}`,
	}}, Key: "zipheat:metrics"}
	tbl, err := src.Load(context.Background())
	if err != nil || tbl["02134"] != (Record{Impressions: 3, Spend: 1.25}) {
		t.Fatalf("redis: %v %+v", err, tbl)
	}
	src.Client = fakeHash{m: map[string]string{"02134": "{"}}
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
