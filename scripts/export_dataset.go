// Command export_dataset fetches historical candles, runs them through the
// feature pipeline and writes the raw labeled dataset to CSV for offline
// experimentation.
//
// Usage:
//
//	go run scripts/export_dataset.go -pair BTCUSDT -limit 2000 -output dataset.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"litmus-ml/internal/feed"
	"litmus-ml/internal/frame"
)

func main() {
	var (
		baseURL     = flag.String("base-url", "https://api.bitunix.com", "Exchange REST base URL")
		pair        = flag.String("pair", "BTCUSDT", "Trading pair to export")
		interval    = flag.String("interval", "5m", "Candle interval")
		limit       = flag.Int("limit", 2000, "Number of candles to fetch")
		labelPeriod = flag.Int("label-period", 12, "Forward-return horizon in candles")
		labelThresh = flag.Float64("label-threshold", 0.002, "Forward-return threshold for up/down labels")
		output      = flag.String("output", "dataset.csv", "Output CSV path")
	)
	flag.Parse()

	client := feed.NewREST(*baseURL, 30*time.Second)
	klines, err := client.GetKlines(*pair, *interval, *limit)
	if err != nil {
		log.Fatalf("fetch klines: %v", err)
	}
	log.Printf("fetched %d candles for %s", len(klines), *pair)

	raw, err := feed.FrameFromKlines(klines, *labelPeriod, *labelThresh)
	if err != nil {
		log.Fatalf("build dataset: %v", err)
	}

	if err := writeCSV(*output, raw); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	log.Printf("wrote %d rows to %s", raw.NumRows(), *output)
}

func writeCSV(path string, raw *frame.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	featureCols := raw.Columns()
	labelCols := raw.LabelColumns()
	if err := w.Write(append(append([]string{}, featureCols...), labelCols...)); err != nil {
		return err
	}

	for i := 0; i < raw.NumRows(); i++ {
		record := make([]string, 0, len(featureCols)+len(labelCols))
		for _, name := range featureCols {
			col, ok := raw.Column(name)
			if !ok {
				return fmt.Errorf("missing column %q", name)
			}
			record = append(record, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		for _, name := range labelCols {
			col, ok := raw.LabelColumn(name)
			if !ok {
				return fmt.Errorf("missing label column %q", name)
			}
			record = append(record, col[i])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}
