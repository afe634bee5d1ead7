package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
)

// export writes the run's three artifacts into the working directory: the
// scores CSV, the full JSON dump with raw agent responses, and the
// human-readable summary. The post-archive sweep moves them to the
// historical store.
func (o *Orchestrator) export(run *Run) error {
	dir := o.cfg.Pipeline.WorkDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, fmt.Sprintf("scores_%s.csv", run.ID)), run); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, fmt.Sprintf("run_%s.json", run.ID)), run); err != nil {
		return err
	}
	return writeSummary(filepath.Join(dir, fmt.Sprintf("summary_%s.txt", run.ID)), run)
}

// writeCSV emits one row per article with the weighted participant scores in
// stable column order.
func writeCSV(path string, run *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	participants := make([]string, len(scoring.Participants))
	copy(participants, scoring.Participants)
	sort.Strings(participants)

	w := csv.NewWriter(f)
	header := append([]string{"article_id", "title", "source", "status", "final_score", "category"}, participants...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range run.Records {
		row := []string{
			rec.Article.ID,
			rec.Article.Title,
			rec.Article.Source,
			string(rec.Status),
			"",
			"",
		}
		if rec.Consolidation != nil {
			row[4] = fmt.Sprintf("%.2f", rec.Consolidation.FinalScore)
			row[5] = string(rec.Consolidation.Category)
		}
		for _, participant := range participants {
			cell := ""
			if rec.Consolidation != nil {
				cell = fmt.Sprintf("%.2f", rec.Consolidation.AgentScores[participant])
			}
			row = append(row, cell)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeJSON dumps the complete run, raw model responses included, for audit
// and replay.
func writeJSON(path string, run *Run) error {
	payload, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// writeSummary renders the operator-facing report.
func writeSummary(path string, run *Run) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Finished: %s\n\n", run.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Articles:   %d\n", run.Stats.Total)
	fmt.Fprintf(&b, "Scored:     %d\n", run.Stats.Scored)
	fmt.Fprintf(&b, "Duplicates: %d\n", run.Stats.Duplicates)
	fmt.Fprintf(&b, "Rejected:   %d\n", run.Stats.Rejected)
	fmt.Fprintf(&b, "Failed:     %d\n", run.Stats.Failed)
	fmt.Fprintf(&b, "Fallbacks:  %d\n", run.Stats.Fallbacks)
	if run.Stats.Scored > 0 {
		fmt.Fprintf(&b, "\nFinal score mean %.2f, min %.2f, max %.2f\n",
			run.Stats.MeanFinal, run.Stats.MinFinal, run.Stats.MaxFinal)
	}

	for _, rec := range run.Records {
		fmt.Fprintf(&b, "\n- [%s] %s", rec.Status, rec.Article.Title)
		switch {
		case rec.Consolidation != nil:
			fmt.Fprintf(&b, ": %.2f (%s)", rec.Consolidation.FinalScore, rec.Consolidation.Category)
			for _, d := range rec.Consolidation.Divergences {
				fmt.Fprintf(&b, "\n  divergent: %s at %.1f (delta %+.1f)", d.Agent, d.Score, d.Delta)
			}
		case rec.RejectReason != "":
			fmt.Fprintf(&b, ": %s", rec.RejectReason)
		case rec.Error != "":
			fmt.Fprintf(&b, ": %s", rec.Error)
		}
	}
	b.WriteString("\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
