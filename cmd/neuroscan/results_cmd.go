package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"neuroscan/internal/results"
	"neuroscan/pkg/domain"
)

func (a *app) cmdResults(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	search := fs.String("search", "", "free-text filter")
	filter := fs.String("filter", "all", "analysis type: all|brain|pneumonia")
	sortBy := fs.String("sort", "date", "sort key: date|patient|confidence|result")
	page := fs.Int("page", 1, "page number (1-indexed)")
	refresh := fs.Bool("refresh", false, "drop the cache and re-prime before querying")
	interactive := fs.Bool("interactive", false, "read search input lines from stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	user, _ := a.session.User()

	// Restore the persisted cache so a fresh process can search locally.
	a.engine.LoadPersisted(user.ID)
	if *refresh {
		a.engine.Refresh(ctx, user.ID)
	} else if !a.engine.CacheUsable(user.ID) {
		a.engine.Prime(ctx, user.ID)
	}

	q := results.Query{
		Filter: results.Filter(*filter),
		Search: *search,
		Sort:   results.SortKey(*sortBy),
		Page:   *page,
	}
	if *interactive {
		return a.searchLoop(ctx, user.ID, q)
	}

	resPage, stats, err := a.engine.LoadDashboard(ctx, user.ID, q)
	if err != nil {
		return a.reportErr(err)
	}
	printStats(stats)
	printPage(resPage, q.Page, a.engine)
	return nil
}

// searchLoop reads search text line by line and runs debounced queries, so
// fast typing collapses into a single evaluation of the final text. A
// search edit always goes back to page 1.
func (a *app) searchLoop(ctx context.Context, userID int, q results.Query) error {
	debouncer := results.NewDebouncer(300 * time.Millisecond)
	defer debouncer.Cancel()

	var mu sync.Mutex
	runQuery := func(gen uint64, search string) {
		page, err := a.engine.Query(ctx, userID, results.Query{
			Filter: q.Filter,
			Search: search,
			Sort:   q.Sort,
			Page:   1,
		})
		if debouncer.Stale(gen) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintln(os.Stderr, "search failed:", a.reportErr(err))
			return
		}
		printPage(page, 1, a.engine)
		fmt.Print("search> ")
	}

	fmt.Println("Type to search; empty line exits.")
	fmt.Print("search> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		debouncer.Schedule(func(gen uint64) { runQuery(gen, text) })
	}
	return scanner.Err()
}

func (a *app) cmdResult(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: neuroscan result <show|annotate|status> --id N")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("result "+sub, flag.ContinueOnError)
	id := fs.Int("id", 0, "prediction id")
	notes := fs.String("notes", "", "notes to attach (annotate)")
	status := fs.String("status", "", "new status (status)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("--id is required")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	switch sub {
	case "show":
		rec, err := a.history.Prediction(ctx, *id)
		if err != nil {
			return a.reportErr(err)
		}
		printRecord(rec)
		return nil
	case "annotate":
		if *notes == "" {
			return fmt.Errorf("--notes is required")
		}
		rec, err := a.history.AddNote(ctx, *id, *notes)
		if err != nil {
			return a.reportErr(err)
		}
		fmt.Printf("Notes saved on prediction %d.\n", rec.ID)
		return nil
	case "status":
		if *status == "" {
			return fmt.Errorf("--status is required")
		}
		rec, err := a.history.SetStatus(ctx, *id, domain.PredictionStatus(*status))
		if err != nil {
			return a.reportErr(err)
		}
		fmt.Printf("Prediction %d moved to %s.\n", rec.ID, rec.Status)
		return nil
	default:
		return fmt.Errorf("unknown result subcommand %q", sub)
	}
}

func (a *app) cmdStats(ctx context.Context) error {
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	stats, err := a.history.Statistics(ctx)
	if err != nil {
		return a.reportErr(err)
	}
	printStats(stats)
	return nil
}

func printStats(stats domain.Statistics) {
	fmt.Printf("Total analyses: %d\n", stats.TotalPredictions)
	for model, n := range stats.ByModelType {
		fmt.Printf("  %-12s %d\n", model, n)
	}
	for status, n := range stats.ByStatus {
		fmt.Printf("  %-12s %d\n", status, n)
	}
}

func printPage(page results.Page, pageNum int, engine *results.Engine) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATIENT\tPATIENT ID\tAGE\tANALYSIS\tRESULT\tCONF\tDATE")
	for _, e := range page.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d%%\t%s %s\n",
			e.ID, e.PatientName, e.PatientID, e.Age, e.AnalysisType,
			e.Result, e.Confidence, e.Date, e.Time)
	}
	w.Flush()
	source := "backend"
	if page.Local {
		source = "local cache"
	}
	if size, age := engine.CacheInfo(); size > 0 {
		fmt.Printf("Page %d/%d, %d results (%s; %d cached, %s old)\n",
			pageNum, page.TotalPages, page.Total, source, size, age.Round(time.Second))
	} else {
		fmt.Printf("Page %d/%d, %d results (%s)\n", pageNum, page.TotalPages, page.Total, source)
	}
}

func printRecord(rec domain.PredictionRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Prediction\t%d\n", rec.ID)
	fmt.Fprintf(w, "Patient\t%s (%s)\n", rec.Patient.FullName, results.FormatPatientID(rec.Patient.ID))
	fmt.Fprintf(w, "Analysis\t%s\n", rec.ModelType.DisplayName())
	fmt.Fprintf(w, "Result\t%s\n", rec.Prediction)
	fmt.Fprintf(w, "Confidence\t%.1f%%\n", rec.Confidence*100)
	if rec.Entropy != nil {
		fmt.Fprintf(w, "Entropy\t%.4f\n", *rec.Entropy)
	}
	fmt.Fprintf(w, "Status\t%s\n", rec.Status)
	fmt.Fprintf(w, "Created\t%s\n", rec.CreatedAt.Local().Format(time.RFC1123))
	if rec.ImageFilename != "" {
		fmt.Fprintf(w, "Image\t/uploads/%s\n", rec.ImageFilename)
	}
	if rec.Notes != "" {
		fmt.Fprintf(w, "Notes\t%s\n", rec.Notes)
	}
	w.Flush()
	if len(rec.Probabilities) > 0 {
		fmt.Println("Class probabilities:")
		for label, p := range rec.Probabilities {
			fmt.Printf("  %-24s %6.2f%%\n", label, p*100)
		}
	}
}
