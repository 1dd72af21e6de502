// Command genmock writes synthetic climate reports in the newline-delimited
// JSON layout the producer reads, one file per day. It runs every generated
// document through the domain row mapper so the printed stats match what the
// ingest pipeline would accept.
//
// Usage:
//
//	go run ./cmd/genmock -out data -year 2025 -month 08 -days 10,11 -points 25 -invalid 0.02
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Bounding box of the default grid (Germany).
const (
	minLat = 47.3
	maxLat = 55.1
	minLon = 5.9
	maxLon = 15.0
)

type options struct {
	out     string
	year    int
	month   int
	days    []int
	points  int
	invalid float64
	seed    uint64
}

type stats struct {
	docs     int
	valid    int
	rejected map[string]int
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	opts, err := parseFlags()
	if err != nil {
		flag.Usage()
		return err
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	grid := makeGrid(rng, opts.points)
	st := stats{rejected: map[string]int{}}

	for _, day := range opts.days {
		date := time.Date(opts.year, time.Month(opts.month), day, 0, 0, 0, 0, time.UTC)
		path := filepath.Join(opts.out, fmt.Sprintf("%s.ndjson", date.Format("2006-01-02")))
		n, err := writeDay(path, date, grid, opts.invalid, rng, &st)
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %d documents", path, n)
	}

	printStats(st)
	return nil
}

func parseFlags() (options, error) {
	out := flag.String("out", "data", "output directory for the .ndjson files")
	year := flag.Int("year", 2025, "report year")
	month := flag.Int("month", 8, "report month (1-12)")
	days := flag.String("days", "10,11,12,13,14", "comma-separated days of month")
	points := flag.Int("points", 25, "number of grid points per hour")
	invalid := flag.Float64("invalid", 0, "fraction of documents to corrupt (0-1)")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *month < 1 || *month > 12 {
		return options{}, fmt.Errorf("invalid -month %d", *month)
	}
	if *points <= 0 {
		return options{}, fmt.Errorf("invalid -points %d", *points)
	}
	if *invalid < 0 || *invalid > 1 {
		return options{}, fmt.Errorf("invalid -invalid %g", *invalid)
	}

	var dayList []int
	for _, part := range strings.Split(*days, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d < 1 || d > 31 {
			return options{}, fmt.Errorf("invalid day %q", part)
		}
		dayList = append(dayList, d)
	}

	return options{
		out:     *out,
		year:    *year,
		month:   *month,
		days:    dayList,
		points:  *points,
		invalid: *invalid,
		seed:    *seed,
	}, nil
}

type point struct{ lat, lon float64 }

func makeGrid(rng *rand.Rand, n int) []point {
	grid := make([]point, n)
	for i := range grid {
		grid[i] = point{
			lat: round(minLat+rng.Float64()*(maxLat-minLat), 2),
			lon: round(minLon+rng.Float64()*(maxLon-minLon), 2),
		}
	}
	return grid
}

func writeDay(path string, date time.Time, grid []point, invalid float64, rng *rand.Rand, st *stats) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := 0
	for hour := range 24 {
		ts := date.Add(time.Duration(hour) * time.Hour)
		for _, p := range grid {
			doc := observation(ts, p, rng)
			if rng.Float64() < invalid {
				corrupt(doc, rng)
			}

			line, err := json.Marshal(doc)
			if err != nil {
				return n, err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return n, err
			}
			st.record(line)
			n++
		}
	}
	if err := w.Flush(); err != nil {
		return n, err
	}
	return n, f.Close()
}

func observation(ts time.Time, p point, rng *rand.Rand) map[string]any {
	// Diurnal cycle peaking mid-afternoon, in Kelvin.
	hour := float64(ts.Hour())
	tempK := 288.15 + 6*math.Sin((hour-9)/24*2*math.Pi) + rng.NormFloat64()

	return map[string]any{
		"timestamp":   ts.UnixNano(),
		"latitude":    p.lat,
		"longitude":   p.lon,
		"temperature": round(tempK, 2),
		"u10":         round(rng.NormFloat64()*3, 3),
		"v10":         round(rng.NormFloat64()*3, 3),
		"pressure":    round(101325+rng.NormFloat64()*800, 1),
	}
}

var corruptibleFields = []string{
	domain.FieldTimestamp, domain.FieldTemperature, domain.FieldU10, domain.FieldV10,
	domain.FieldPressure, domain.FieldLatitude, domain.FieldLongitude,
}

func corrupt(doc map[string]any, rng *rand.Rand) {
	field := corruptibleFields[rng.IntN(len(corruptibleFields))]
	if rng.IntN(2) == 0 {
		delete(doc, field)
		return
	}
	doc[field] = "n/a"
}

// record maps the document exactly as the ingest handler would.
func (s *stats) record(line []byte) {
	s.docs++
	p, _ := domain.DecodeRecord(domain.RawRecord{Value: domain.EncodeValue(line)})
	if _, rej := domain.MapRow(0, p); rej != nil {
		s.rejected[rej.Field]++
		return
	}
	s.valid++
}

func printStats(s stats) {
	fmt.Printf("\nDocuments: %d\n", s.docs)
	fmt.Printf("Valid rows: %d\n", s.valid)
	for _, f := range corruptibleFields {
		if n := s.rejected[f]; n > 0 {
			fmt.Printf("Rejected (%s): %d\n", f, n)
		}
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
