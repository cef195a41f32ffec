// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/ingestion"
	"github.com/poiesic/sprintly/reembed"
	"github.com/poiesic/sprintly/search"
)

var errResetNotConfirmed = errors.New("reset deletes all data; pass --yes to confirm")

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("ingest requires exactly one CSV file")
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ingestion.ReadConnectionsCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	owner, err := db.EnsureOwner(c.Context, c.String("owner-name"), c.String("owner-email"))
	if err != nil {
		return fmt.Errorf("failed to resolve network owner: %w", err)
	}

	pipeline, err := db.NewIngestionPipeline(ingestion.WithPoolSize(c.Int("concurrency")))
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	slog.Info("ingesting connections", "file", path, "records", len(records), "owner", owner.Id)

	out := c.App.Writer
	done := make(chan struct{})
	go reportIngestProgress(out, pipeline, c.Duration("progress-interval"), done)

	result, err := pipeline.Ingest(c.Context, records, owner.Id, ingestion.IngestOptions{
		SkipEnrichment: c.Bool("skip-enrichment"),
	})
	close(done)
	if result != nil {
		printIngestResult(out, result)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func reportIngestProgress(w io.Writer, pipeline *ingestion.Pipeline, interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := pipeline.Progress()
			if p.Status != ingestion.StatusProcessing {
				continue
			}
			line := fmt.Sprintf("Processed %d/%d (%.1f%%), enriched %d, embedded %d",
				p.Processed, p.Total, p.Percent(), p.Enriched, p.Embedded)
			if p.HasEstimate {
				line += fmt.Sprintf(", ~%.0fs left", p.EstimatedRemainingSeconds)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func printIngestResult(w io.Writer, result *ingestion.Result) {
	fmt.Fprintf(w, "Imported %d of %d records (%d skipped)\n", result.Created, result.Total, result.Skipped)
	if len(result.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "%d warnings:\n", len(result.Errors))
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search requires a query")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	matches, err := searcher.Search(c.Context, query, search.Filters{
		Role:     c.String("role"),
		Sector:   c.String("sector"),
		Stage:    c.String("stage"),
		Location: c.String("location"),
	}, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(out, "%2d. %5.1f  %s\n", i+1, m.Score, describe(m.Entity))
		for _, reason := range m.Reasons {
			fmt.Fprintf(out, "           - %s\n", reason)
		}
	}
	return nil
}

func introPathCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewGraphService()
	if err != nil {
		return fmt.Errorf("failed to create graph service: %w", err)
	}

	path, err := service.IntroPath(c.Context, core.ID(c.Uint64("from")), core.ID(c.Uint64("to")), c.Int("max-depth"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(path) == 0 {
		fmt.Fprintln(out, "No introduction path found")
		return nil
	}
	fmt.Fprintf(out, "Introduction path (%d hops):\n", len(path)-1)
	for i, node := range path {
		fmt.Fprintf(out, "%d. %s\n", i+1, describeNode(node))
	}
	return nil
}

func mutualCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewGraphService()
	if err != nil {
		return fmt.Errorf("failed to create graph service: %w", err)
	}

	mutual, err := service.MutualConnections(c.Context, core.ID(c.Uint64("a")), core.ID(c.Uint64("b")))
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "%d mutual connections\n", len(mutual))
	for _, node := range mutual {
		fmt.Fprintf(out, "  %s\n", describeNode(node))
	}
	return nil
}

func strengthCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewGraphService()
	if err != nil {
		return fmt.Errorf("failed to create graph service: %w", err)
	}

	strength, err := service.ConnectionStrength(c.Context, core.ID(c.Uint64("from")), core.ID(c.Uint64("to")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Connection strength: %.1f\n", strength)
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewGraphService()
	if err != nil {
		return fmt.Errorf("failed to create graph service: %w", err)
	}

	stats, err := service.NetworkStats(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Entities:    %d\n", stats.TotalEntities)
	fmt.Fprintf(out, "Investors:   %d\n", stats.Investors)
	fmt.Fprintf(out, "Founders:    %d\n", stats.Founders)
	fmt.Fprintf(out, "Enablers:    %d\n", stats.Enablers)
	fmt.Fprintf(out, "Other:       %d\n", stats.Others)
	fmt.Fprintf(out, "Connections: %d\n", stats.TotalConnections)
	return nil
}

func investorsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var investors []*core.Entity
	if owner := c.Uint64("owner"); owner != 0 {
		service, err := db.NewGraphService()
		if err != nil {
			return fmt.Errorf("failed to create graph service: %w", err)
		}
		investors, err = service.ConnectedInvestors(c.Context, core.ID(owner), c.Int("limit"))
		if err != nil {
			return err
		}
	} else {
		searcher, err := db.NewSearcher()
		if err != nil {
			return fmt.Errorf("failed to create searcher: %w", err)
		}
		investors, err = searcher.FindInvestors(c.Context, search.InvestorCriteria{
			Sector:       c.String("sector"),
			Stage:        c.String("stage"),
			Location:     c.String("location"),
			MinCheckSize: c.Int64("min-check"),
			MaxCheckSize: c.Int64("max-check"),
			Limit:        c.Int("limit"),
		})
		if err != nil {
			return err
		}
	}

	out := c.App.Writer
	fmt.Fprintf(out, "%d investors\n", len(investors))
	for _, e := range investors {
		fmt.Fprintf(out, "  %s\n", describe(e))
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := reembed.DefaultConfig()
	config.All = c.Bool("all")
	config.BatchSize = c.Int("batch-size")
	config.ReportInterval = c.Int("report-interval")
	config.MaxRetries = c.Int("max-retries")
	config.RetryDelay = c.Duration("retry-delay")

	reembedder, err := db.NewReembedder(config, c.App.Writer)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}
	return nil
}

func resetCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errResetNotConfirmed
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Reset(c.Context); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "All data deleted")
	return nil
}

func describe(e *core.Entity) string {
	return describeNode(e.Summary())
}

func describeNode(n core.NodeSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", n.Id, n.Name)
	if n.Role != "" {
		fmt.Fprintf(&b, " (%s)", n.Role)
	}
	switch {
	case n.Position != "" && n.Company != "":
		fmt.Fprintf(&b, ", %s at %s", n.Position, n.Company)
	case n.Company != "":
		fmt.Fprintf(&b, ", %s", n.Company)
	}
	return b.String()
}
